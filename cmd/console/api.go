package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tutienrpg/turn-engine/pkg/state"
	"github.com/tutienrpg/turn-engine/pkg/turn"
	"github.com/tutienrpg/turn-engine/pkg/world"
)

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func listWorlds(client *http.Client, baseURL string) ([]*world.Template, error) {
	resp, err := client.Get(baseURL + "/v1/worlds")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var templates []*world.Template
	if err := json.NewDecoder(resp.Body).Decode(&templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// CreateGameStateRequest matches the API request structure
type CreateGameStateRequest struct {
	World string `json:"world"`
}

func createGameState(client *http.Client, baseURL string, worldFile string) (*state.GameState, error) {
	jsonData, err := json.Marshal(CreateGameStateRequest{World: worldFile})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(
		baseURL+"/v1/gamestate",
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to create game state: %s", errorResp.Error)
	}

	var createdGameState state.GameState
	if err := json.Unmarshal(body, &createdGameState); err != nil {
		return nil, fmt.Errorf("failed to parse game state response: %w", err)
	}
	return &createdGameState, nil
}

func getGameState(client *http.Client, baseURL string, gameStateID uuid.UUID) (*state.GameState, error) {
	resp, err := client.Get(fmt.Sprintf("%s/v1/gamestate/%s", baseURL, gameStateID))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to get game state: %s", errorResp.Error)
	}

	var gameState state.GameState
	if err := json.Unmarshal(body, &gameState); err != nil {
		return nil, fmt.Errorf("failed to parse game state response: %w", err)
	}
	return &gameState, nil
}

func exportTranscript(client *http.Client, baseURL string, gameStateID uuid.UUID) ([]byte, error) {
	resp, err := client.Get(fmt.Sprintf("%s/v1/export/%s", baseURL, gameStateID))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// TurnRequest matches the API request structure
type TurnRequest struct {
	Action  string `json:"action"`
	Rewrite bool   `json:"rewrite,omitempty"`
}

// TurnResponse is the final payload of a turn stream.
type TurnResponse struct {
	Result    *turn.Result     `json:"result"`
	GameState *state.GameState `json:"gameState"`
}

// TurnEvent is one server-sent event from the turn stream.
type TurnEvent struct {
	Type      string // narrative, phase, error, result
	Narrative string
	Phase     string
	Err       error
	Response  *TurnResponse
}

// streamTurn plays one turn over the SSE endpoint, forwarding events to
// the channel. The channel is closed when the stream ends. The caller
// supplies a client without a timeout; a turn can legitimately run for
// minutes.
func streamTurn(ctx context.Context, client *http.Client, baseURL string, gameStateID uuid.UUID, req TurnRequest, events chan<- TurnEvent) {
	defer close(events)

	fail := func(err error) {
		events <- TurnEvent{Type: "error", Err: err}
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		fail(fmt.Errorf("failed to marshal request: %w", err))
		return
	}

	url := fmt.Sprintf("%s/v1/turn/%s/stream", baseURL, gameStateID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		fail(fmt.Errorf("failed to create request: %w", err))
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(httpReq)
	if err != nil {
		fail(fmt.Errorf("failed to connect: %w", err))
		return
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error != "" {
			fail(fmt.Errorf("%s", errorResp.Error))
			return
		}
		fail(fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body)))
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventType, data string
	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			// Empty line signals end of event
			if eventType != "" {
				dispatchEvent(eventType, data, events)
			}
			eventType, data = "", ""
			continue
		}
		if strings.HasPrefix(line, "event: ") {
			eventType = strings.TrimPrefix(line, "event: ")
		} else if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	if err := scanner.Err(); err != nil {
		fail(fmt.Errorf("error reading stream: %w", err))
	}
}

func dispatchEvent(eventType, data string, events chan<- TurnEvent) {
	switch eventType {
	case "narrative":
		var text string
		if err := json.Unmarshal([]byte(data), &text); err == nil {
			events <- TurnEvent{Type: "narrative", Narrative: text}
		}
	case "phase":
		var phase string
		if err := json.Unmarshal([]byte(data), &phase); err == nil {
			events <- TurnEvent{Type: "phase", Phase: phase}
		}
	case "error":
		var msg string
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			msg = data
		}
		events <- TurnEvent{Type: "error", Err: fmt.Errorf("%s", msg)}
	case "result":
		var resp TurnResponse
		if err := json.Unmarshal([]byte(data), &resp); err != nil {
			events <- TurnEvent{Type: "error", Err: fmt.Errorf("failed to parse result: %w", err)}
			return
		}
		events <- TurnEvent{Type: "result", Response: &resp}
	}
}
