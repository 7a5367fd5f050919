package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tutienrpg/turn-engine/internal/storage"
)

type GameStateHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewGameStateHandler(storage storage.Storage, logger *slog.Logger) *GameStateHandler {
	return &GameStateHandler{
		storage: storage,
		logger:  logger,
	}
}

// CreateGameStateRequest is the body for starting a new story.
type CreateGameStateRequest struct {
	World string `json:"world"` // world template file name
}

// ServeHTTP routes game state operations:
//
//	POST   /v1/gamestate      - create a new session from a world template
//	GET    /v1/gamestate/{id} - read a session
//	DELETE /v1/gamestate/{id} - delete a session
func (h *GameStateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/gamestate"), "/")

	var sessionID uuid.UUID
	if path != "" {
		var err error
		sessionID, err = uuid.Parse(path)
		if err != nil {
			h.logger.Warn("Invalid session ID", "id", path, "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
			return
		}
	}

	switch r.Method {
	case http.MethodPost:
		h.handleCreate(w, r)
	case http.MethodGet:
		if sessionID == uuid.Nil {
			writeError(w, h.logger, http.StatusBadRequest, "Session ID is required for GET requests")
			return
		}
		h.handleRead(w, r, sessionID)
	case http.MethodDelete:
		if sessionID == uuid.Nil {
			writeError(w, h.logger, http.StatusBadRequest, "Session ID is required for DELETE requests")
			return
		}
		h.handleDelete(w, r, sessionID)
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST, GET, DELETE")
	}
}

func (h *GameStateHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateGameStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.World == "" {
		writeError(w, h.logger, http.StatusBadRequest, "world field is required")
		return
	}

	tpl, err := h.storage.GetWorldTemplate(r.Context(), req.World)
	if err != nil {
		h.logger.Warn("Failed to load world template", "world", req.World, "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Failed to load world template: "+err.Error())
		return
	}
	if tpl == nil {
		writeError(w, h.logger, http.StatusNotFound, "World template not found: "+req.World)
		return
	}

	gs := tpl.NewGameState()
	if err := h.storage.SaveGameState(r.Context(), gs.ID.String(), gs); err != nil {
		h.logger.Error("Failed to save new gamestate", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save game state")
		return
	}

	h.logger.Info("Created new session", "session_id", gs.ID, "world", req.World)
	writeJSON(w, h.logger, http.StatusCreated, gs)
}

func (h *GameStateHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	gs, err := h.storage.LoadGameState(r.Context(), id.String())
	if err != nil {
		h.logger.Error("Failed to load gamestate", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load game state")
		return
	}
	if gs == nil {
		writeError(w, h.logger, http.StatusNotFound, "Game state not found")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, gs)
}

func (h *GameStateHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.storage.DeleteGameState(r.Context(), id.String()); err != nil {
		h.logger.Error("Failed to delete gamestate", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete game state")
		return
	}
	h.logger.Info("Deleted session", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}
