package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Mihir369/legal-arena-ai/internal/services/events"
)

const defaultKeepalive = 30 * time.Second

// SnapshotLoader returns the last published view of a battle.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, battleID uuid.UUID) (json.RawMessage, bool, error)
}

// EventsHandler handles Server-Sent Events (SSE) for real-time battle updates
type EventsHandler struct {
	redisClient *redis.Client
	snapshots   SnapshotLoader
	battleID    uuid.UUID
	keepalive   time.Duration
	logger      *slog.Logger
}

// NewEventsHandler creates a new events handler for battleID. snapshots may
// be nil.
func NewEventsHandler(redisClient *redis.Client, snapshots SnapshotLoader, battleID uuid.UUID, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		redisClient: redisClient,
		snapshots:   snapshots,
		battleID:    battleID,
		keepalive:   defaultKeepalive,
		logger:      logger,
	}
}

// ServeHTTP handles SSE requests for battle events
// GET /v1/events/battle
// GET /v1/events/battle/{battleID}
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.logger.Warn("Method not allowed for events endpoint",
			"method", r.Method,
			"path", r.URL.Path)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	if idStr := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/events/battle"), "/"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid battle ID format.")
			return
		}
		if id != h.battleID {
			writeError(w, h.logger, http.StatusNotFound, "Battle not found.")
			return
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, h.logger, http.StatusInternalServerError, "Streaming unsupported.")
		return
	}

	ctx := r.Context()
	channel := events.Channel(h.battleID)
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer func() {
		if err := pubsub.Close(); err != nil {
			h.logger.Error("Failed to close pubsub", "error", err)
		}
	}()
	// wait for the subscription so no event published after this point is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		h.logger.Error("Failed to subscribe to battle events", "channel", channel, "error", err)
		writeError(w, h.logger, http.StatusServiceUnavailable, "Event stream unavailable.")
		return
	}

	h.logger.Info("SSE connection established",
		"battle_id", h.battleID.String(),
		"remote_addr", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.sendSSE(w, flusher, string(events.EventTypeConnected), map[string]string{
		"battle_id": h.battleID.String(),
		"message":   "Connected to event stream",
	})
	h.sendSnapshot(ctx, w, flusher)

	msgChan := pubsub.Channel()
	keepaliveTicker := time.NewTicker(h.keepalive)
	defer keepaliveTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("SSE client disconnected", "battle_id", h.battleID.String())
			return

		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			var event events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.logger.Error("Failed to unmarshal event", "error", err, "payload", msg.Payload)
				continue
			}
			h.sendSSE(w, flusher, string(event.Type), event.Data)

		case <-keepaliveTicker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				h.logger.Error("Failed to write keepalive", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) sendSnapshot(ctx context.Context, w http.ResponseWriter, flusher http.Flusher) {
	if h.snapshots == nil {
		return
	}
	raw, ok, err := h.snapshots.LoadSnapshot(ctx, h.battleID)
	if err != nil {
		h.logger.Warn("Failed to load battle snapshot", "error", err)
		return
	}
	if ok {
		h.sendSSE(w, flusher, "snapshot", raw)
	}
}

// sendSSE sends a Server-Sent Event to the client
func (h *EventsHandler) sendSSE(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to marshal SSE data", "error", err)
		return
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, dataJSON); err != nil {
		h.logger.Error("Failed to write event", "error", err)
		return
	}
	flusher.Flush()
}
