package services

import (
	"context"
	"sync"

	"github.com/tutienrpg/turn-engine/pkg/chat"
)

// MockLLM is a hand-written mock of LLMService and Embedder for
// testing. Responses can be scripted per call; every call is tracked.
type MockLLM struct {
	ChatFunc  func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)

	// Responses are consumed in order by Chat and ChatStream when
	// ChatFunc is nil. After the script runs out, the last response
	// repeats.
	Responses []string

	ChatCalls  []ChatCall
	EmbedCalls []string

	mu sync.Mutex
}

type ChatCall struct {
	Messages []chat.ChatMessage
}

func NewMockLLM(responses ...string) *MockLLM {
	return &MockLLM{
		Responses:  responses,
		ChatCalls:  make([]ChatCall, 0),
		EmbedCalls: make([]string, 0),
	}
}

func (m *MockLLM) nextResponse(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	m.ChatCalls = append(m.ChatCalls, ChatCall{Messages: messages})
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, messages)
	}
	if len(m.Responses) == 0 {
		return &chat.ChatResponse{Message: "mock response"}, nil
	}
	i := len(m.ChatCalls) - 1
	if i >= len(m.Responses) {
		i = len(m.Responses) - 1
	}
	return &chat.ChatResponse{Message: m.Responses[i], Tokens: 10}, nil
}

func (m *MockLLM) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextResponse(ctx, messages)
}

// ChatStream replays the scripted response as a short stream: the text
// split in two chunks, then the terminal chunk.
func (m *MockLLM) ChatStream(ctx context.Context, messages []chat.ChatMessage) (<-chan chat.StreamChunk, error) {
	m.mu.Lock()
	resp, err := m.nextResponse(ctx, messages)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make(chan chat.StreamChunk)
	go func() {
		defer close(out)
		text := resp.Message
		mid := len(text) / 2
		if mid > 0 {
			out <- chat.StreamChunk{Text: text[:mid]}
		}
		out <- chat.StreamChunk{Text: text[mid:]}
		out <- chat.StreamChunk{Done: true, Tokens: resp.Tokens}
	}()
	return out, nil
}

func (m *MockLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EmbedCalls = append(m.EmbedCalls, text)
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

// CallCount returns the number of chat calls made, in a thread-safe way.
func (m *MockLLM) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ChatCalls)
}

// SetChatError scripts every chat call to fail.
func (m *MockLLM) SetChatError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		return nil, err
	}
}

// SetEmbedError scripts every embed call to fail.
func (m *MockLLM) SetEmbedError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EmbedFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, err
	}
}

// Reset clears call tracking.
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatCalls = make([]ChatCall, 0)
	m.EmbedCalls = make([]string, 0)
}
