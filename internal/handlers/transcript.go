package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Mihir369/legal-arena-ai/pkg/transcript"
)

type TranscriptHandler struct {
	battle Battle
	logger *slog.Logger
}

func NewTranscriptHandler(battle Battle, logger *slog.Logger) *TranscriptHandler {
	return &TranscriptHandler{
		battle: battle,
		logger: logger,
	}
}

// ServeHTTP exports the transcript
// GET /v1/battle/transcript?format=text|markdown|json
func (h *TranscriptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	format, err := transcript.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	header, entries, err := h.battle.Transcript(r.Context())
	if err != nil {
		h.logger.Error("Failed to read transcript", "error", err)
		writeError(w, h.logger, statusFor(err), err.Error())
		return
	}

	// render first so a failure can still produce a JSON error
	var buf bytes.Buffer
	if err := transcript.Write(&buf, format, header, entries); err != nil {
		h.logger.Error("Failed to render transcript", "format", format, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to render transcript")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="battle-%s%s"`, h.battle.ID().String(), format.Extension()))
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Error("Failed to write transcript", "error", err)
	}
}
