package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutienrpg/turn-engine/internal/engine"
	"github.com/tutienrpg/turn-engine/internal/services"
	"github.com/tutienrpg/turn-engine/internal/storage"
	"github.com/tutienrpg/turn-engine/pkg/state"
)

const turnResponse = `{
	"storyText": "Ngươi bước vào rừng trúc.",
	"choices": ["Đi tiếp", "Quay lại"],
	"summaryText": "Tiến vào rừng trúc.",
	"expGained": 10,
	"timeElapsed": 30
}`

func turnFixture(t *testing.T, responses ...string) (*TurnHandler, *storage.MockStorage, *state.GameState) {
	t.Helper()
	store := storage.NewMockStorage()
	gs := state.NewGameState(state.WorldContext{
		StoryName:  "Phàm Nhân Tu Tiên",
		PlayerName: "Lý Hàn",
		AttributeDefinitions: []state.AttributeDefinition{
			{ID: "sinhLucToiDa", BaseValue: 100},
		},
	})
	require.NoError(t, store.SaveGameState(httptest.NewRequest("GET", "/", nil).Context(), gs.ID.String(), gs))

	eng := engine.New(services.NewMockLLM(responses...), testLogger())
	handler := NewTurnHandler(store, eng, nil, 20, testLogger())
	return handler, store, gs
}

func TestTurnHandler_PlayTurn(t *testing.T) {
	handler, store, gs := turnFixture(t, turnResponse)

	req := httptest.NewRequest(http.MethodPost, "/v1/turn/"+gs.ID.String(),
		strings.NewReader(`{"action": "đi vào rừng"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TurnResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Ngươi bước vào rừng trúc.", resp.Result.StoryText)
	assert.Equal(t, 1, resp.GameState.TurnCount)

	// The replacement state was committed
	saved, err := store.LoadGameState(req.Context(), gs.ID.String())
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, 1, saved.TurnCount)
	require.Len(t, saved.History, 1)
	assert.Equal(t, "đi vào rừng", saved.History[0].PlayerAction)

	// Lock was released
	locked, err := store.AcquireTurnLock(req.Context(), gs.ID.String(), turnLockTTL)
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestTurnHandler_ConcurrentTurnRejected(t *testing.T) {
	handler, store, gs := turnFixture(t, turnResponse)

	locked, err := store.AcquireTurnLock(httptest.NewRequest("GET", "/", nil).Context(), gs.ID.String(), turnLockTTL)
	require.NoError(t, err)
	require.True(t, locked)

	req := httptest.NewRequest(http.MethodPost, "/v1/turn/"+gs.ID.String(),
		strings.NewReader(`{"action": "đi vào rừng"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Contains(t, errResp.Error, "already in progress")
}

func TestTurnHandler_MalformedModelOutput(t *testing.T) {
	handler, store, gs := turnFixture(t, "not json at all")

	req := httptest.NewRequest(http.MethodPost, "/v1/turn/"+gs.ID.String(),
		strings.NewReader(`{"action": "nhìn quanh"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// The committed state is untouched
	saved, err := store.LoadGameState(req.Context(), gs.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 0, saved.TurnCount)
}

func TestTurnHandler_UnknownSession(t *testing.T) {
	handler, _, _ := turnFixture(t, turnResponse)

	req := httptest.NewRequest(http.MethodPost, "/v1/turn/11111111-2222-3333-4444-555555555555",
		strings.NewReader(`{"action": "nhìn quanh"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTurnHandler_EmptyAction(t *testing.T) {
	handler, _, gs := turnFixture(t, turnResponse)

	req := httptest.NewRequest(http.MethodPost, "/v1/turn/"+gs.ID.String(),
		strings.NewReader(`{"action": "   "}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTurnHandler_RewriteReplacesLastTurn(t *testing.T) {
	handler, store, gs := turnFixture(t, turnResponse, turnResponse)

	play := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/turn/"+gs.ID.String(), strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, play(`{"action": "đi vào rừng"}`).Code)
	rec := play(`{"action": "đi vào rừng", "rewrite": true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	saved, err := store.LoadGameState(httptest.NewRequest("GET", "/", nil).Context(), gs.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, saved.TurnCount, "rewrite should not advance the turn count")
	assert.Len(t, saved.History, 1)
}

func TestTurnHandler_Stream(t *testing.T) {
	handler, _, gs := turnFixture(t, turnResponse)

	req := httptest.NewRequest(http.MethodPost, "/v1/turn/"+gs.ID.String()+"/stream",
		strings.NewReader(`{"action": "đi vào rừng"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: narrative")
	assert.Contains(t, body, "event: result")
	assert.NotContains(t, body, "event: error")
}
