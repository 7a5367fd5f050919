package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/tutienrpg/turn-engine/pkg/chat"
)

const DefaultGeminiEmbeddingModel = "text-embedding-004"

// GeminiService implements LLMService and Embedder on Google Gemini.
type GeminiService struct {
	client         *genai.Client
	modelName      string
	embeddingModel string
	logger         *slog.Logger
}

func NewGeminiService(ctx context.Context, apiKey, modelName, embeddingModel string, logger *slog.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if embeddingModel == "" {
		embeddingModel = DefaultGeminiEmbeddingModel
	}
	return &GeminiService{
		client:         client,
		modelName:      modelName,
		embeddingModel: embeddingModel,
		logger:         logger,
	}, nil
}

func (g *GeminiService) Close() error {
	return g.client.Close()
}

// newSession converts a message array into a configured model and chat
// session. System messages become the system instruction; the history
// alternates user and model turns; the last user message is returned
// separately as the message to send.
func (g *GeminiService) newSession(messages []chat.ChatMessage) (*genai.ChatSession, string, error) {
	systemPrompt, conversation := splitChatMessages(messages)
	if len(conversation) == 0 {
		return nil, "", fmt.Errorf("no conversation messages")
	}
	last := conversation[len(conversation)-1]
	if last.Role != chat.ChatRoleUser {
		return nil, "", fmt.Errorf("last message must be a user message, got role %q", last.Role)
	}

	model := g.client.GenerativeModel(g.modelName)
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	}

	session := model.StartChat()
	for _, msg := range conversation[:len(conversation)-1] {
		role := "user"
		if msg.Role == chat.ChatRoleAgent {
			role = "model"
		}
		session.History = append(session.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return session, last.Content, nil
}

func (g *GeminiService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	session, message, err := g.newSession(messages)
	if err != nil {
		return nil, err
	}

	resp, err := session.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return nil, fmt.Errorf("gemini blocked the prompt: %s", resp.PromptFeedback.BlockReason)
	}

	text := candidateText(resp)
	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return &chat.ChatResponse{Message: text, Tokens: tokens}, nil
}

// ChatStream generates a response over Gemini's streaming API.
func (g *GeminiService) ChatStream(ctx context.Context, messages []chat.ChatMessage) (<-chan chat.StreamChunk, error) {
	session, message, err := g.newSession(messages)
	if err != nil {
		return nil, err
	}

	iter := session.SendMessageStream(ctx, genai.Text(message))
	out := make(chan chat.StreamChunk)
	go func() {
		defer close(out)
		tokens := 0
		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				out <- chat.StreamChunk{Done: true, Tokens: tokens}
				return
			}
			if err != nil {
				out <- chat.StreamChunk{Err: fmt.Errorf("gemini stream failed: %w", err)}
				return
			}
			if resp.UsageMetadata != nil {
				tokens = int(resp.UsageMetadata.TotalTokenCount)
			}
			if text := candidateText(resp); text != "" {
				out <- chat.StreamChunk{Text: text}
			}
		}
	}()
	return out, nil
}

// Embed produces an embedding vector for a chronicle summary.
func (g *GeminiService) Embed(ctx context.Context, text string) ([]float32, error) {
	em := g.client.EmbeddingModel(g.embeddingModel)
	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("embedding response was empty")
	}
	return resp.Embedding.Values, nil
}

// candidateText flattens the text parts of the first candidate.
func candidateText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}
	return text
}
