package arena

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mihir369/legal-arena-ai/internal/config"
	"github.com/Mihir369/legal-arena-ai/internal/services/events"
	"github.com/Mihir369/legal-arena-ai/pkg/battle"
	"github.com/Mihir369/legal-arena-ai/pkg/narration"
	"github.com/Mihir369/legal-arena-ai/pkg/playback"
	"github.com/Mihir369/legal-arena-ai/pkg/sched"
	"github.com/Mihir369/legal-arena-ai/pkg/script"
	"github.com/Mihir369/legal-arena-ai/pkg/state"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

type recordingPublisher struct {
	mu        sync.Mutex
	types     []events.EventType
	snapshots int
	last      View
}

func (p *recordingPublisher) Publish(_ context.Context, _ uuid.UUID, t events.EventType, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, t)
	p.last = data.(View)
	return nil
}

func (p *recordingPublisher) SaveSnapshot(context.Context, uuid.UUID, any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots++
	return nil
}

func (p *recordingPublisher) has(t events.EventType) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, got := range p.types {
		if got == t {
			return true
		}
	}
	return false
}

func fastConfig(t *testing.T) Config {
	t.Helper()
	s, err := script.Default()
	require.NoError(t, err)
	return Config{
		Script:               s,
		Seed:                 7,
		PlaybackBaseInterval: 4 * time.Millisecond,
		PlaybackRate:         1,
		RevealInterval:       time.Microsecond,
		RevealHold:           time.Millisecond,
		Narration:            narration.Settings{Enabled: false, Volume: 1, Rate: 1},
		WordsPerMinute:       narration.DefaultWordsPerMinute,
	}
}

func startArena(t *testing.T, cfg Config, pub Publisher) *Arena {
	t.Helper()
	a, err := New(cfg, pub, testLogger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return a
}

func TestNew_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty script", func(c *Config) { c.Script = &script.Script{Closing: "x"} }},
		{"bad rate", func(c *Config) { c.PlaybackRate = 3 }},
		{"bad narration", func(c *Config) { c.Narration.Volume = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fastConfig(t)
			tt.mutate(&cfg)
			_, err := New(cfg, nil, testLogger)
			assert.Error(t, err)
		})
	}
}

func TestArena_RunsFullBattle(t *testing.T) {
	pub := &recordingPublisher{}
	a := startArena(t, fastConfig(t), pub)
	ctx := context.Background()

	v, err := a.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID().String(), v.BattleID)
	assert.Equal(t, state.PhaseNotStarted, v.State.Phase)
	assert.Equal(t, "Arjun Sharma", v.Prosecution.Name)
	assert.Equal(t, "Priya Singh", v.Defense.Name)
	assert.Equal(t, "The Court", v.Moderator.Name)
	assert.Equal(t, "Building Case", v.Prosecution.ConfidenceLabel)
	assert.NotEmpty(t, v.Prosecution.Evidence)
	assert.True(t, v.Narration.Supported)

	_, err = a.Upload(ctx)
	require.NoError(t, err)
	v, err = a.Play(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.PhaseInProgress, v.State.Phase)
	assert.Equal(t, state.AnimationSpeaking, v.Prosecution.Animation)
	assert.Equal(t, state.AnimationThinking, v.Defense.Animation)

	require.Eventually(t, func() bool {
		v, err = a.View(ctx)
		return err == nil && v.State.Phase == state.PhaseComplete
	}, 10*time.Second, 5*time.Millisecond)

	assert.Equal(t, script.PartyModerator, v.State.ActiveParty)
	assert.Equal(t, state.AnimationSpeaking, v.Moderator.Animation)
	winner := v.State.Outcome.Winner()
	w, ok := v.Speaker(winner)
	require.True(t, ok)
	assert.Equal(t, state.AnimationCelebrating, w.Animation)

	_, entries, err := a.Transcript(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 14)

	require.Eventually(t, func() bool { return pub.has(events.EventType(battle.EventComplete)) }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, pub.has(events.EventType(battle.EventStarted)))
	assert.False(t, pub.has(events.EventType(battle.EventReveal)))
	pub.mu.Lock()
	assert.Positive(t, pub.snapshots)
	pub.mu.Unlock()
}

func TestArena_Preconditions(t *testing.T) {
	a := startArena(t, fastConfig(t), nil)
	ctx := context.Background()

	_, err := a.Start(ctx)
	assert.ErrorIs(t, err, ErrPreconditionNotMet)
	assert.Contains(t, err.Error(), "upload")

	_, err = a.Play(ctx)
	assert.ErrorIs(t, err, ErrPreconditionNotMet)

	_, err = a.Advance(ctx)
	assert.ErrorIs(t, err, ErrPreconditionNotMet)

	_, err = a.Replay(ctx)
	assert.ErrorIs(t, err, ErrPreconditionNotMet)

	v, err := a.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.New(), v.State)

	_, err = a.Upload(ctx)
	require.NoError(t, err)
	_, err = a.Start(ctx)
	require.NoError(t, err)
	_, err = a.Start(ctx)
	assert.ErrorIs(t, err, ErrPreconditionNotMet)
	assert.Contains(t, err.Error(), "already started")
}

func TestArena_ManualControl(t *testing.T) {
	cfg := fastConfig(t)
	cfg.PlaybackBaseInterval = time.Hour
	a := startArena(t, cfg, nil)
	ctx := context.Background()

	_, err := a.Upload(ctx)
	require.NoError(t, err)
	_, err = a.Start(ctx)
	require.NoError(t, err)

	v, err := a.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, script.PartyDefense, v.State.ActiveParty)

	v, err = a.Pause(ctx)
	require.NoError(t, err)
	assert.False(t, v.Playback.Running)
	_, err = a.Advance(ctx)
	assert.ErrorIs(t, err, ErrPreconditionNotMet)

	v, err = a.Resume(ctx)
	require.NoError(t, err)
	assert.True(t, v.Playback.Running)

	v, err = a.Restart(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.New(), v.State)
	assert.True(t, v.DocumentUploaded)
	assert.Equal(t, battle.StageIdle, v.Stage)
}

func TestArena_Settings(t *testing.T) {
	a := startArena(t, fastConfig(t), nil)
	ctx := context.Background()

	_, err := a.SetRate(ctx, 3)
	assert.ErrorIs(t, err, playback.ErrInvalidRate)
	v, err := a.SetRate(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v.Playback.Rate)

	set := func(s narration.Settings) func(narration.Settings) narration.Settings {
		return func(narration.Settings) narration.Settings { return s }
	}
	_, err = a.PatchNarration(ctx, set(narration.Settings{Enabled: true, Volume: -1, Rate: 1}))
	assert.ErrorIs(t, err, narration.ErrInvalidSettings)
	v, err = a.PatchNarration(ctx, set(narration.Settings{Enabled: true, Volume: 0.3, Rate: 1.5}))
	require.NoError(t, err)
	assert.Equal(t, narration.Settings{Enabled: true, Volume: 0.3, Rate: 1.5}, v.Narration.Settings)

	_, err = a.PauseNarration(ctx)
	assert.NoError(t, err)
	_, err = a.ResumeNarration(ctx)
	assert.NoError(t, err)
}

func TestArena_ConcurrentNarrationPatches(t *testing.T) {
	a := startArena(t, fastConfig(t), nil)
	ctx := context.Background()

	volumes := []float64{0.1, 0.2, 0.3, 0.4}
	rates := []float64{0.5, 1.5, 2, 2.5}

	var wg sync.WaitGroup
	for i := range volumes {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := a.PatchNarration(ctx, func(s narration.Settings) narration.Settings {
				s.Volume = volumes[i]
				return s
			})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := a.PatchNarration(ctx, func(s narration.Settings) narration.Settings {
				s.Rate = rates[i]
				s.Enabled = true
				return s
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	v, err := a.View(ctx)
	require.NoError(t, err)
	assert.True(t, v.Narration.Settings.Enabled)
	assert.Contains(t, volumes, v.Narration.Settings.Volume, "no patch reverts the volume to its default")
	assert.Contains(t, rates, v.Narration.Settings.Rate, "no patch reverts the rate to its default")
}

func TestArena_NarrationGatesTurns(t *testing.T) {
	cfg := fastConfig(t)
	cfg.Narration = narration.Settings{Enabled: true, Volume: 1, Rate: 1}
	cfg.WordsPerMinute = 6000
	cfg.PlaybackBaseInterval = time.Hour
	pub := &recordingPublisher{}
	a := startArena(t, cfg, pub)
	ctx := context.Background()

	_, err := a.Upload(ctx)
	require.NoError(t, err)
	v, err := a.Start(ctx)
	require.NoError(t, err)
	assert.True(t, v.Narration.State.Speaking)
	assert.Equal(t, script.PartyProsecution, v.Narration.State.Speaker)

	require.Eventually(t, func() bool {
		v, err = a.View(ctx)
		return err == nil && v.Stage == battle.StageReady
	}, 30*time.Second, 10*time.Millisecond)
	assert.False(t, v.Narration.State.Speaking)
	assert.Equal(t, v.State.CurrentStatement.Text, v.Revealed)

	require.Eventually(t, func() bool { return pub.has(events.EventType(narration.EventEnded)) }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, pub.has(events.EventType(narration.EventStarted)))
}

func TestArena_ClosedAndRunTwice(t *testing.T) {
	a, err := New(fastConfig(t), nil, testLogger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	_, err = a.View(ctx)
	require.NoError(t, err)
	assert.Error(t, a.Run(ctx), "second Run is rejected")

	a.Close()
	assert.NoError(t, <-done)
	cancel()

	_, err = a.View(context.Background())
	assert.ErrorIs(t, err, sched.ErrLoopClosed)
}

func TestConfigFrom(t *testing.T) {
	s, err := script.Default()
	require.NoError(t, err)
	cfg := ConfigFrom(&config.Config{
		BattleSeed:           9,
		PlaybackBaseInterval: time.Second,
		PlaybackRate:         2,
		RevealInterval:       time.Millisecond,
		RevealHold:           time.Second,
		NarrationEnabled:     true,
		NarrationVolume:      0.5,
		NarrationRate:        1,
		NarrationWPM:         200,
	}, s)

	assert.Same(t, s, cfg.Script)
	assert.Equal(t, uint64(9), cfg.Seed)
	assert.Equal(t, 2.0, cfg.PlaybackRate)
	assert.Equal(t, narration.Settings{Enabled: true, Volume: 0.5, Rate: 1}, cfg.Narration)
	assert.Equal(t, 200, cfg.WordsPerMinute)
}
