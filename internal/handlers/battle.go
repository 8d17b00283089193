package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Mihir369/legal-arena-ai/internal/arena"
	"github.com/Mihir369/legal-arena-ai/pkg/narration"
	"github.com/Mihir369/legal-arena-ai/pkg/playback"
	"github.com/Mihir369/legal-arena-ai/pkg/sched"
	"github.com/Mihir369/legal-arena-ai/pkg/transcript"
)

// MaxUploadBytes caps the case document upload.
const MaxUploadBytes = 10 << 20

type ErrorResponse struct {
	Error string `json:"error"`
}

// Battle is the control surface of a running arena.
type Battle interface {
	ID() uuid.UUID
	View(ctx context.Context) (arena.View, error)
	Upload(ctx context.Context) (arena.View, error)
	Start(ctx context.Context) (arena.View, error)
	Play(ctx context.Context) (arena.View, error)
	Advance(ctx context.Context) (arena.View, error)
	Pause(ctx context.Context) (arena.View, error)
	Resume(ctx context.Context) (arena.View, error)
	Restart(ctx context.Context) (arena.View, error)
	Replay(ctx context.Context) (arena.View, error)
	SetRate(ctx context.Context, rate float64) (arena.View, error)
	PatchNarration(ctx context.Context, patch func(narration.Settings) narration.Settings) (arena.View, error)
	PauseNarration(ctx context.Context) (arena.View, error)
	ResumeNarration(ctx context.Context) (arena.View, error)
	Transcript(ctx context.Context) (transcript.Header, []transcript.Entry, error)
}

var _ Battle = (*arena.Arena)(nil)

// RateRequest is the body of POST /v1/battle/rate.
type RateRequest struct {
	Rate float64 `json:"rate"`
}

// NarrationRequest is the body of POST /v1/battle/narration. Omitted fields
// keep their current value.
type NarrationRequest struct {
	Enabled *bool    `json:"enabled,omitempty"`
	Volume  *float64 `json:"volume,omitempty"`
	Rate    *float64 `json:"rate,omitempty"`
}

func (n NarrationRequest) apply(s narration.Settings) narration.Settings {
	if n.Enabled != nil {
		s.Enabled = *n.Enabled
	}
	if n.Volume != nil {
		s.Volume = *n.Volume
	}
	if n.Rate != nil {
		s.Rate = *n.Rate
	}
	return s
}

type BattleHandler struct {
	battle Battle
	logger *slog.Logger
}

func NewBattleHandler(battle Battle, logger *slog.Logger) *BattleHandler {
	return &BattleHandler{
		battle: battle,
		logger: logger,
	}
}

// ServeHTTP handles battle control requests
// Routes:
// GET  /v1/battle                   - Current view
// POST /v1/battle/upload            - Upload the case document
// POST /v1/battle/{action}          - start, play, advance, pause, resume, restart, replay
// POST /v1/battle/rate              - Set playback rate
// POST /v1/battle/narration         - Update narration settings
// POST /v1/battle/narration/pause   - Pause the voice
// POST /v1/battle/narration/resume  - Resume the voice
func (h *BattleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/battle"), "/")

	if r.Method == http.MethodGet {
		if action != "" {
			h.writeError(w, http.StatusNotFound, "Unknown battle resource")
			return
		}
		h.respond(w, r, h.battle.View)
		return
	}
	if r.Method != http.MethodPost {
		h.logger.Warn("Method not allowed for battle endpoint", "method", r.Method, "path", r.URL.Path)
		w.Header().Set("Allow", "GET, POST")
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Use GET or POST.")
		return
	}

	switch action {
	case "upload":
		h.handleUpload(w, r)
	case "start":
		h.respond(w, r, h.battle.Start)
	case "play":
		h.respond(w, r, h.battle.Play)
	case "advance":
		h.respond(w, r, h.battle.Advance)
	case "pause":
		h.respond(w, r, h.battle.Pause)
	case "resume":
		h.respond(w, r, h.battle.Resume)
	case "restart":
		h.respond(w, r, h.battle.Restart)
	case "replay":
		h.respond(w, r, h.battle.Replay)
	case "rate":
		h.handleRate(w, r)
	case "narration":
		h.handleNarration(w, r)
	case "narration/pause":
		h.respond(w, r, h.battle.PauseNarration)
	case "narration/resume":
		h.respond(w, r, h.battle.ResumeNarration)
	default:
		h.writeError(w, http.StatusNotFound, "Unknown battle action")
	}
}

func (h *BattleHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	n, err := io.Copy(io.Discard, body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "Document exceeds upload limit")
			return
		}
		h.writeError(w, http.StatusBadRequest, "Failed to read document")
		return
	}
	h.logger.Info("Case document uploaded", "bytes", n, "content_type", r.Header.Get("Content-Type"))
	h.respond(w, r, h.battle.Upload)
}

func (h *BattleHandler) handleRate(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid rate request", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	h.respond(w, r, func(ctx context.Context) (arena.View, error) {
		return h.battle.SetRate(ctx, req.Rate)
	})
}

func (h *BattleHandler) handleNarration(w http.ResponseWriter, r *http.Request) {
	var req NarrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid narration request", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	h.respond(w, r, func(ctx context.Context) (arena.View, error) {
		return h.battle.PatchNarration(ctx, req.apply)
	})
}

func (h *BattleHandler) respond(w http.ResponseWriter, r *http.Request, op func(context.Context) (arena.View, error)) {
	view, err := op(r.Context())
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Battle operation failed", "path", r.URL.Path, "error", err)
		} else {
			h.logger.Debug("Battle operation rejected", "path", r.URL.Path, "error", err)
		}
		h.writeError(w, status, err.Error())
		return
	}

	if err := json.NewEncoder(w).Encode(view); err != nil {
		h.logger.Error("Failed to encode battle view", "error", err)
	}
}

func (h *BattleHandler) writeError(w http.ResponseWriter, status int, msg string) {
	writeError(w, h.logger, status, msg)
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: msg}); err != nil {
		logger.Error("Failed to encode error response", "error", err)
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, arena.ErrPreconditionNotMet):
		return http.StatusConflict
	case errors.Is(err, playback.ErrInvalidRate), errors.Is(err, narration.ErrInvalidSettings):
		return http.StatusBadRequest
	case errors.Is(err, sched.ErrLoopClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
