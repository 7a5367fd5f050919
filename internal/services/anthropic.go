package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tutienrpg/turn-engine/pkg/chat"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"

	DefaultAnthropicTemperature = 0.7
	DefaultAnthropicMaxTokens   = 4096
)

// AnthropicService implements LLMService for Anthropic Claude.
type AnthropicService struct {
	apiKey     string
	modelName  string
	httpClient *http.Client
	logger     *slog.Logger
}

type AnthropicChatRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []chat.ChatMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

type AnthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type AnthropicChatResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Content    []AnthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// anthropicStreamEvent is the union of the SSE event payloads we care
// about: text deltas and the final usage report.
type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewAnthropicService(apiKey string, modelName string, logger *slog.Logger) *AnthropicService {
	return &AnthropicService{
		apiKey:    apiKey,
		modelName: modelName,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// splitChatMessages combines all system messages into a single system
// prompt and returns the remaining conversation messages, since the
// Anthropic API takes the system prompt out of band.
func splitChatMessages(messages []chat.ChatMessage) (string, []chat.ChatMessage) {
	var systemParts []string
	var conversation []chat.ChatMessage
	for _, msg := range messages {
		if msg.Role == chat.ChatRoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			conversation = append(conversation, msg)
		}
	}
	return strings.Join(systemParts, "\n\n"), conversation
}

func (a *AnthropicService) newRequest(ctx context.Context, messages []chat.ChatMessage, stream bool) (*http.Request, error) {
	systemPrompt, conversation := splitChatMessages(messages)

	temperature := DefaultAnthropicTemperature
	body, err := json.Marshal(AnthropicChatRequest{
		Model:       a.modelName,
		MaxTokens:   DefaultAnthropicMaxTokens,
		Temperature: &temperature,
		Messages:    conversation,
		System:      systemPrompt,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", anthropicBaseURL+"/messages", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("content-type", "application/json")
	return req, nil
}

func (a *AnthropicService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	req, err := a.newRequest(ctx, messages, false)
	if err != nil {
		return nil, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var anthropicResp AnthropicChatResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if anthropicResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", anthropicResp.Error.Message)
	}

	var text string
	for _, content := range anthropicResp.Content {
		if content.Type == "text" {
			text += content.Text
		}
	}

	return &chat.ChatResponse{
		Message: text,
		Tokens:  anthropicResp.Usage.InputTokens + anthropicResp.Usage.OutputTokens,
	}, nil
}

// ChatStream generates a response over the Anthropic SSE stream,
// forwarding text deltas as they arrive.
func (a *AnthropicService) ChatStream(ctx context.Context, messages []chat.ChatMessage) (<-chan chat.StreamChunk, error) {
	req, err := a.newRequest(ctx, messages, true)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "text/event-stream")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	out := make(chan chat.StreamChunk)
	go func() {
		defer close(out)
		defer func() { _ = resp.Body.Close() }()

		tokens := 0
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var event anthropicStreamEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
				a.logger.Warn("Skipping unparseable stream event", "error", err)
				continue
			}
			switch event.Type {
			case "content_block_delta":
				if event.Delta.Text != "" {
					out <- chat.StreamChunk{Text: event.Delta.Text}
				}
			case "message_delta":
				tokens += event.Usage.OutputTokens
			case "message_stop":
				out <- chat.StreamChunk{Done: true, Tokens: tokens}
				return
			case "error":
				msg := "stream error"
				if event.Error != nil {
					msg = event.Error.Message
				}
				out <- chat.StreamChunk{Err: fmt.Errorf("API error: %s", msg)}
				return
			}
		}
		if err := scanner.Err(); err != nil {
			out <- chat.StreamChunk{Err: fmt.Errorf("stream read failed: %w", err)}
			return
		}
		// Stream ended without a message_stop event.
		out <- chat.StreamChunk{Done: true, Tokens: tokens}
	}()
	return out, nil
}
