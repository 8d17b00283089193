package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Mihir369/legal-arena-ai/internal/arena"
	"github.com/Mihir369/legal-arena-ai/internal/services"
)

const serviceName = "legal-arena-ai"

type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Service    string            `json:"service"`
	Components map[string]string `json:"components"`
}

// ViewSource is the part of the arena the health check probes.
type ViewSource interface {
	View(ctx context.Context) (arena.View, error)
}

type HealthHandler struct {
	cache  services.Cache
	arena  ViewSource
	logger *slog.Logger
}

// NewHealthHandler creates a health handler. cache may be nil when event
// publishing is disabled.
func NewHealthHandler(cache services.Cache, arena ViewSource, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		cache:  cache,
		arena:  arena,
		logger: logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]string)
	overallStatus := "healthy"

	if h.cache == nil {
		components["cache"] = "disabled"
	} else if err := h.cache.Ping(ctx); err != nil {
		h.logger.Warn("Cache health check failed", "error", err)
		components["cache"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["cache"] = "healthy"
	}

	if _, err := h.arena.View(ctx); err != nil {
		h.logger.Warn("Arena health check failed", "error", err)
		components["arena"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["arena"] = "healthy"
	}

	response := HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    serviceName,
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Error encoding health response",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
	}
}
