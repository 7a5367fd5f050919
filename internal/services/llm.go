package services

import (
	"context"

	"github.com/tutienrpg/turn-engine/pkg/chat"
)

// LLMService is the interface to a game master model provider.
type LLMService interface {
	// Chat generates a complete response for the message array.
	Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)

	// ChatStream generates a response incrementally. The channel is
	// closed after a terminal chunk: either Done=true carrying the
	// token count, or a chunk carrying Err.
	ChatStream(ctx context.Context, messages []chat.ChatMessage) (<-chan chat.StreamChunk, error)
}

// Embedder produces embedding vectors for chronicle summaries. A
// provider without an embedding model simply does not implement this.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
