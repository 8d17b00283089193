package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mihir369/legal-arena-ai/internal/arena"
	"github.com/Mihir369/legal-arena-ai/pkg/narration"
	"github.com/Mihir369/legal-arena-ai/pkg/playback"
	"github.com/Mihir369/legal-arena-ai/pkg/sched"
	"github.com/Mihir369/legal-arena-ai/pkg/script"
	"github.com/Mihir369/legal-arena-ai/pkg/state"
	"github.com/Mihir369/legal-arena-ai/pkg/transcript"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
	Level: slog.LevelError,
}))

type fakeBattle struct {
	id      uuid.UUID
	view    arena.View
	err     error
	calls   []string
	rate    float64
	applied narration.Settings
	header  transcript.Header
	entries []transcript.Entry
}

func newFakeBattle() *fakeBattle {
	id := uuid.MustParse("0b7e6a1c-3f0e-4d8e-9a43-6c1d2e3f4a5b")
	return &fakeBattle{
		id: id,
		view: arena.View{
			BattleID: id.String(),
			Title:    "Cold Showers",
			State:    state.New(),
			Narration: arena.NarrationView{
				Supported: true,
				Settings:  narration.DefaultSettings(),
			},
		},
	}
}

func (f *fakeBattle) call(name string) (arena.View, error) {
	f.calls = append(f.calls, name)
	if f.err != nil {
		return arena.View{}, f.err
	}
	return f.view, nil
}

func (f *fakeBattle) ID() uuid.UUID { return f.id }
func (f *fakeBattle) View(context.Context) (arena.View, error) {
	if f.err != nil {
		return arena.View{}, f.err
	}
	return f.view, nil
}
func (f *fakeBattle) Upload(context.Context) (arena.View, error)  { return f.call("upload") }
func (f *fakeBattle) Start(context.Context) (arena.View, error)   { return f.call("start") }
func (f *fakeBattle) Play(context.Context) (arena.View, error)    { return f.call("play") }
func (f *fakeBattle) Advance(context.Context) (arena.View, error) { return f.call("advance") }
func (f *fakeBattle) Pause(context.Context) (arena.View, error)   { return f.call("pause") }
func (f *fakeBattle) Resume(context.Context) (arena.View, error)  { return f.call("resume") }
func (f *fakeBattle) Restart(context.Context) (arena.View, error) { return f.call("restart") }
func (f *fakeBattle) Replay(context.Context) (arena.View, error)  { return f.call("replay") }
func (f *fakeBattle) SetRate(_ context.Context, rate float64) (arena.View, error) {
	f.rate = rate
	return f.call("rate")
}
func (f *fakeBattle) PatchNarration(_ context.Context, patch func(narration.Settings) narration.Settings) (arena.View, error) {
	f.applied = patch(f.view.Narration.Settings)
	return f.call("narration")
}
func (f *fakeBattle) PauseNarration(context.Context) (arena.View, error) {
	return f.call("narration/pause")
}
func (f *fakeBattle) ResumeNarration(context.Context) (arena.View, error) {
	return f.call("narration/resume")
}
func (f *fakeBattle) Transcript(context.Context) (transcript.Header, []transcript.Entry, error) {
	return f.header, f.entries, f.err
}

func serve(h http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}

func TestBattleHandler_GetView(t *testing.T) {
	fb := newFakeBattle()
	h := NewBattleHandler(fb, testLogger)

	rr := serve(h, http.MethodGet, "/v1/battle", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var v arena.View
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	assert.Equal(t, fb.id.String(), v.BattleID)
	assert.Equal(t, "Cold Showers", v.Title)
	assert.Equal(t, state.PhaseNotStarted, v.State.Phase)

	rr = serve(h, http.MethodGet, "/v1/battle/elsewhere", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBattleHandler_Actions(t *testing.T) {
	actions := []string{
		"upload", "start", "play", "advance", "pause", "resume", "restart", "replay",
		"narration/pause", "narration/resume",
	}
	for _, action := range actions {
		t.Run(action, func(t *testing.T) {
			fb := newFakeBattle()
			h := NewBattleHandler(fb, testLogger)

			rr := serve(h, http.MethodPost, "/v1/battle/"+action, "")
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, []string{action}, fb.calls)
		})
	}
}

func TestBattleHandler_RejectsMethodsAndUnknownActions(t *testing.T) {
	h := NewBattleHandler(newFakeBattle(), testLogger)

	rr := serve(h, http.MethodDelete, "/v1/battle", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET, POST", rr.Header().Get("Allow"))

	rr = serve(h, http.MethodPost, "/v1/battle/objection", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "Unknown battle action", resp.Error)
}

func TestBattleHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"precondition", fmt.Errorf("%w: upload a case document first", arena.ErrPreconditionNotMet), http.StatusConflict},
		{"invalid rate", fmt.Errorf("%w: 3", playback.ErrInvalidRate), http.StatusBadRequest},
		{"invalid narration", narration.ErrInvalidSettings, http.StatusBadRequest},
		{"loop closed", sched.ErrLoopClosed, http.StatusServiceUnavailable},
		{"timeout", context.DeadlineExceeded, http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBattle()
			fb.err = tt.err
			h := NewBattleHandler(fb, testLogger)

			rr := serve(h, http.MethodPost, "/v1/battle/start", "")
			assert.Equal(t, tt.wantStatus, rr.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.err.Error(), resp.Error)
		})
	}
}

func TestBattleHandler_Rate(t *testing.T) {
	fb := newFakeBattle()
	h := NewBattleHandler(fb, testLogger)

	rr := serve(h, http.MethodPost, "/v1/battle/rate", `{"rate": 2}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2.0, fb.rate)

	rr = serve(h, http.MethodPost, "/v1/battle/rate", `{"rate":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBattleHandler_NarrationMergesSettings(t *testing.T) {
	fb := newFakeBattle()
	h := NewBattleHandler(fb, testLogger)

	rr := serve(h, http.MethodPost, "/v1/battle/narration", `{"volume": 0.5}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, narration.Settings{Enabled: true, Volume: 0.5, Rate: 1}, fb.applied)

	rr = serve(h, http.MethodPost, "/v1/battle/narration", `{"enabled": false, "rate": 2}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, narration.Settings{Enabled: false, Volume: 0.8, Rate: 2}, fb.applied)

	rr = serve(h, http.MethodPost, "/v1/battle/narration", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBattleHandler_UploadLimit(t *testing.T) {
	fb := newFakeBattle()
	h := NewBattleHandler(fb, testLogger)

	req := httptest.NewRequest(http.MethodPost, "/v1/battle/upload", bytes.NewReader(make([]byte, MaxUploadBytes+1)))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Empty(t, fb.calls, "oversized documents do not open the gate")
}

// Drives a real arena through the HTTP surface.
func TestBattleHandler_WithArena(t *testing.T) {
	s, err := script.New("http", []script.Statement{{Text: "P"}}, []script.Statement{{Text: "D"}}, "Done")
	require.NoError(t, err)
	a, err := arena.New(arena.Config{
		Script:               s,
		Seed:                 1,
		PlaybackBaseInterval: time.Hour,
		RevealInterval:       time.Millisecond,
		RevealHold:           time.Millisecond,
		Narration:            narration.Settings{Volume: 1, Rate: 1},
	}, nil, testLogger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	h := NewBattleHandler(a, testLogger)

	rr := serve(h, http.MethodPost, "/v1/battle/start", "")
	assert.Equal(t, http.StatusConflict, rr.Code, "start requires an upload")

	rr = serve(h, http.MethodPost, "/v1/battle/upload", "%PDF-1.4 case file")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(h, http.MethodPost, "/v1/battle/start", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var v arena.View
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	assert.Equal(t, script.PartyProsecution, v.State.ActiveParty)
	assert.Equal(t, state.AnimationSpeaking, v.Prosecution.Animation)

	serve(h, http.MethodPost, "/v1/battle/advance", "")
	rr = serve(h, http.MethodPost, "/v1/battle/advance", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	assert.Equal(t, state.PhaseComplete, v.State.Phase)

	rr = serve(NewTranscriptHandler(a, testLogger), http.MethodGet, "/v1/battle/transcript?format=markdown", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "# http")
	assert.Contains(t, rr.Body.String(), "## Ruling")
}
