package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tutienrpg/turn-engine/internal/chronicle"
	"github.com/tutienrpg/turn-engine/internal/engine"
	"github.com/tutienrpg/turn-engine/internal/storage"
	"github.com/tutienrpg/turn-engine/pkg/state"
	"github.com/tutienrpg/turn-engine/pkg/turn"
)

// turnLockTTL bounds how long a crashed turn can block a session.
const turnLockTTL = 2 * time.Minute

// titleTurn is the turn after which an untitled story gets a suggested
// title.
const titleTurn = 3

type TurnHandler struct {
	storage      storage.Storage
	engine       *engine.Engine
	archive      *chronicle.Store // nil disables archiving
	logger       *slog.Logger
	historyLimit int
}

func NewTurnHandler(storage storage.Storage, eng *engine.Engine, archive *chronicle.Store, historyLimit int, logger *slog.Logger) *TurnHandler {
	return &TurnHandler{
		storage:      storage,
		engine:       eng,
		archive:      archive,
		logger:       logger,
		historyLimit: historyLimit,
	}
}

// TurnRequest is the body for playing one turn.
type TurnRequest struct {
	Action  string `json:"action"`
	Rewrite bool   `json:"rewrite,omitempty"`
}

// TurnResponse returns the turn's outcome and the replacement state.
type TurnResponse struct {
	Result    *turn.Result     `json:"result"`
	GameState *state.GameState `json:"gameState"`
}

// ServeHTTP routes turn operations:
//
//	POST /v1/turn/{id}        - play one turn
//	POST /v1/turn/{id}/stream - play one turn, streaming narration as SSE
func (h *TurnHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/turn"), "/")
	stream := false
	if strings.HasSuffix(path, "/stream") {
		stream = true
		path = strings.TrimSuffix(path, "/stream")
		path = strings.Trim(path, "/")
	}
	sessionID, err := uuid.Parse(path)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if strings.TrimSpace(req.Action) == "" {
		writeError(w, h.logger, http.StatusBadRequest, "action field is required")
		return
	}

	// One turn in flight per session. A second request is rejected, not
	// queued; the client already has a turn running.
	locked, err := h.storage.AcquireTurnLock(r.Context(), sessionID.String(), turnLockTTL)
	if err != nil {
		h.logger.Error("Failed to acquire turn lock", "session_id", sessionID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to acquire turn lock")
		return
	}
	if !locked {
		writeError(w, h.logger, http.StatusConflict, "A turn is already in progress for this session")
		return
	}
	defer func() {
		if err := h.storage.ReleaseTurnLock(r.Context(), sessionID.String()); err != nil {
			h.logger.Warn("Failed to release turn lock", "session_id", sessionID, "error", err)
		}
	}()

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

	if stream {
		h.handleStream(w, r, gs, req)
		return
	}
	h.handleTurn(w, r, gs, req)
}

func (h *TurnHandler) handleTurn(w http.ResponseWriter, r *http.Request, gs *state.GameState, req TurnRequest) {
	next, result, err := h.engine.ProcessTurn(r.Context(), gs, req.Action, engine.Options{
		Rewrite:      req.Rewrite,
		HistoryLimit: h.historyLimit,
	})
	if err != nil {
		h.writeTurnError(w, gs.ID, err)
		return
	}
	if err := h.commit(r, gs, next, req.Rewrite); err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save game state")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, TurnResponse{Result: result, GameState: next})
}

// handleStream plays the turn while forwarding narration over SSE. The
// final event carries the full turn response.
func (h *TurnHandler) handleStream(w http.ResponseWriter, r *http.Request, gs *state.GameState, req TurnRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, h.logger, http.StatusInternalServerError, "Streaming not supported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sendEvent := func(event string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			h.logger.Error("Failed to marshal SSE payload", "error", err)
			return
		}
		if _, err := w.Write([]byte("event: " + event + "\ndata: " + string(data) + "\n\n")); err != nil {
			h.logger.Debug("SSE write failed, client likely gone", "error", err)
			return
		}
		flusher.Flush()
	}

	next, result, err := h.engine.ProcessTurn(r.Context(), gs, req.Action, engine.Options{
		Rewrite:      req.Rewrite,
		HistoryLimit: h.historyLimit,
		OnPartial: func(storyText string) {
			sendEvent("narrative", storyText)
		},
		OnPhase: func(phase engine.Phase) {
			sendEvent("phase", string(phase))
		},
	})
	if err != nil {
		h.logger.Error("Turn failed", "session_id", gs.ID, "error", err)
		sendEvent("error", err.Error())
		return
	}
	if err := h.commit(r, gs, next, req.Rewrite); err != nil {
		sendEvent("error", "failed to save game state")
		return
	}
	sendEvent("result", TurnResponse{Result: result, GameState: next})
}

// commit saves the replacement state and archives any new chronicle
// entries. Archive failures log and continue; the in-state chronicle is
// authoritative.
func (h *TurnHandler) commit(r *http.Request, prev, next *state.GameState, rewrite bool) error {
	if next.Title == "" || next.Title == next.World.StoryName {
		if next.TurnCount >= titleTurn {
			if title := h.engine.SuggestTitle(r.Context(), next); title != "" {
				next.Title = title
			}
		}
	}

	if err := h.storage.SaveGameState(r.Context(), next.ID.String(), next); err != nil {
		h.logger.Error("Failed to save gamestate", "session_id", next.ID, "error", err)
		return err
	}

	if h.archive != nil && !rewrite && len(next.Chronicle) > len(prev.Chronicle) {
		for _, entry := range next.Chronicle[len(prev.Chronicle):] {
			if err := h.archive.Append(r.Context(), next.ID.String(), entry); err != nil {
				h.logger.Warn("Failed to archive chronicle entry", "session_id", next.ID, "error", err)
			}
		}
	}
	return nil
}

func (h *TurnHandler) writeTurnError(w http.ResponseWriter, sessionID uuid.UUID, err error) {
	h.logger.Error("Turn failed", "session_id", sessionID, "error", err)

	var turnErr *engine.TurnError
	if errors.As(err, &turnErr) {
		status := http.StatusBadGateway
		if turnErr.Phase == engine.PhaseFailed && turnErr.RawOutput == "" {
			// Failed before any model call: the request was bad.
			status = http.StatusBadRequest
		}
		writeError(w, h.logger, status, turnErr.Error())
		return
	}
	writeError(w, h.logger, http.StatusInternalServerError, "Turn processing failed")
}
