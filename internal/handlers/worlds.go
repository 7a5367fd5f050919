package handlers

import (
	"log/slog"
	"net/http"

	"github.com/tutienrpg/turn-engine/internal/storage"
)

// WorldsHandler lists the available world templates.
type WorldsHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewWorldsHandler(storage storage.Storage, logger *slog.Logger) *WorldsHandler {
	return &WorldsHandler{
		storage: storage,
		logger:  logger,
	}
}

func (h *WorldsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	templates, err := h.storage.ListWorldTemplates(r.Context())
	if err != nil {
		h.logger.Error("Failed to list world templates", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list world templates")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, templates)
}
