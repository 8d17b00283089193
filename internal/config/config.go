package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Mihir369/legal-arena-ai/pkg/narration"
	"github.com/Mihir369/legal-arena-ai/pkg/playback"
	"github.com/Mihir369/legal-arena-ai/pkg/reveal"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	// ScriptPath is a JSON or YAML script file. Empty uses the built-in script.
	ScriptPath string
	// RedisURL enables event publishing. Empty disables it.
	RedisURL string

	PlaybackBaseInterval time.Duration
	PlaybackRate         float64
	RevealInterval       time.Duration
	RevealHold           time.Duration

	NarrationEnabled bool
	NarrationVolume  float64
	NarrationRate    float64
	NarrationWPM     int

	// BattleSeed pins the confidence random source. Zero seeds from crypto/rand.
	BattleSeed uint64
}

// Load reads the configuration from the environment. Every malformed or
// out-of-range value is reported in the returned error.
func Load() (*Config, error) {
	p := &parser{}
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		ScriptPath:  getEnv("SCRIPT_PATH", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		PlaybackBaseInterval: p.getDuration("PLAYBACK_BASE_INTERVAL", playback.DefaultBaseInterval),
		PlaybackRate:         p.getFloat("PLAYBACK_RATE", 1),
		RevealInterval:       p.getDuration("REVEAL_INTERVAL", reveal.DefaultInterval),
		RevealHold:           p.getDuration("REVEAL_HOLD", reveal.DefaultHold),

		NarrationEnabled: p.getBool("NARRATION_ENABLED", true),
		NarrationVolume:  p.getFloat("NARRATION_VOLUME", 0.8),
		NarrationRate:    p.getFloat("NARRATION_RATE", 1.0),
		NarrationWPM:     p.getInt("NARRATION_WPM", narration.DefaultWordsPerMinute),
		BattleSeed:       p.getUint("BATTLE_SEED", 0),
	}
	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.PlaybackBaseInterval <= 0 {
		errs = append(errs, fmt.Errorf("PLAYBACK_BASE_INTERVAL must be positive, got %s", c.PlaybackBaseInterval))
	}
	if err := playback.ValidateRate(c.PlaybackRate); err != nil {
		errs = append(errs, fmt.Errorf("PLAYBACK_RATE: %w", err))
	}
	if c.RevealInterval <= 0 {
		errs = append(errs, fmt.Errorf("REVEAL_INTERVAL must be positive, got %s", c.RevealInterval))
	}
	if c.RevealHold < 0 {
		errs = append(errs, fmt.Errorf("REVEAL_HOLD must not be negative, got %s", c.RevealHold))
	}
	if err := c.NarrationSettings().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("NARRATION_VOLUME/NARRATION_RATE: %w", err))
	}
	if c.NarrationWPM <= 0 {
		errs = append(errs, fmt.Errorf("NARRATION_WPM must be positive, got %d", c.NarrationWPM))
	}
	return errors.Join(errs...)
}

// NarrationSettings returns the initial narration settings.
func (c *Config) NarrationSettings() narration.Settings {
	return narration.Settings{
		Enabled: c.NarrationEnabled,
		Volume:  c.NarrationVolume,
		Rate:    c.NarrationRate,
	}
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser collects conversion errors so Load can report them all at once.
type parser struct {
	errs []error
}

func (p *parser) fail(key, value string, err error) {
	p.errs = append(p.errs, fmt.Errorf("invalid %s %q: %w", key, value, err))
}

func (p *parser) getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}

func (p *parser) getFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return f
}

func (p *parser) getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) getUint(key string, def uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}
