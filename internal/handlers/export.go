package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tutienrpg/turn-engine/internal/export"
	"github.com/tutienrpg/turn-engine/internal/storage"
)

// ExportHandler serves a session transcript as a downloadable PDF.
type ExportHandler struct {
	storage  storage.Storage
	exporter *export.TranscriptPDF
	logger   *slog.Logger
}

func NewExportHandler(storage storage.Storage, exporter *export.TranscriptPDF, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		storage:  storage,
		exporter: exporter,
		logger:   logger,
	}
}

// ServeHTTP handles GET /v1/export/{id}.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/export"), "/")
	sessionID, err := uuid.Parse(path)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	gs, err := h.storage.LoadGameState(r.Context(), sessionID.String())
	if err != nil {
		h.logger.Error("Failed to load gamestate", "session_id", sessionID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load game state")
		return
	}
	if gs == nil {
		writeError(w, h.logger, http.StatusNotFound, "Game state not found")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+sessionID.String()+`.pdf"`)
	if err := h.exporter.Write(w, gs); err != nil {
		h.logger.Error("Failed to render transcript", "session_id", sessionID, "error", err)
	}
}
