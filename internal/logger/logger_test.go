package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mihir369/legal-arena-ai/internal/config"
)

func TestSetup_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := setup(&config.Config{Environment: "production", LogLevel: slog.LevelInfo}, &buf)

	WithError(WithBattleID(log, "b-1"), errors.New("boom")).Info("Battle complete", "outcome", "defense_wins")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Battle complete", entry["msg"])
	assert.Equal(t, "b-1", entry["battle_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "defense_wins", entry["outcome"])
}

func TestSetup_DevelopmentWritesTextAndFilters(t *testing.T) {
	var buf bytes.Buffer
	log := setup(&config.Config{Environment: "development", LogLevel: slog.LevelWarn}, &buf)

	log.Info("hidden")
	WithRequestID(log, "req-9").Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "request_id=req-9")
	assert.Same(t, log, slog.Default())
}
