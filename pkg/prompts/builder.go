package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tutienrpg/turn-engine/pkg/chat"
	"github.com/tutienrpg/turn-engine/pkg/state"
)

// Builder constructs the message array for one game master call using a
// fluent interface. The same builder output is deterministic for the
// same state and action.
type Builder struct {
	gs           *state.GameState
	playerAction string
	historyLimit int
	rewrite      bool
	messages     []chat.ChatMessage
}

// New creates a prompt builder with default settings.
func New() *Builder {
	return &Builder{
		historyLimit: 20,
		messages:     make([]chat.ChatMessage, 0),
	}
}

// WithGameState sets the state the prompt describes.
func (b *Builder) WithGameState(gs *state.GameState) *Builder {
	b.gs = gs
	return b
}

// WithPlayerAction sets the action being resolved this turn.
func (b *Builder) WithPlayerAction(action string) *Builder {
	b.playerAction = action
	return b
}

// WithHistoryLimit sets the story history window size.
func (b *Builder) WithHistoryLimit(limit int) *Builder {
	if limit > 0 {
		b.historyLimit = limit
	}
	return b
}

// WithRewrite marks the turn as a rewrite of the previous narration.
func (b *Builder) WithRewrite(rewrite bool) *Builder {
	b.rewrite = rewrite
	return b
}

// Build assembles the final message array.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if b.gs == nil {
		return nil, fmt.Errorf("gamestate is required")
	}
	if strings.TrimSpace(b.playerAction) == "" {
		return nil, fmt.Errorf("player action is required")
	}

	b.messages = make([]chat.ChatMessage, 0)

	if err := b.addSystemPrompt(); err != nil {
		return nil, fmt.Errorf("error building system prompt: %w", err)
	}
	b.addHistory()
	if b.rewrite {
		b.messages = append(b.messages, chat.ChatMessage{
			Role:    chat.ChatRoleSystem,
			Content: RewriteInstruction,
		})
	}
	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleUser,
		Content: formatUserAction(b.playerAction),
	})
	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleSystem,
		Content: OutputSchemaPrompt,
	})

	return b.messages, nil
}

// addSystemPrompt stacks the identity block, the applicable rule
// modules, and the state context into one system message.
func (b *Builder) addSystemPrompt() error {
	world := b.gs.World
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(BaseSystemPrompt, world.StoryName, world.PlayerName, world.PlayerBio))

	modules := []string{
		PerspectiveRules(world.Perspective),
		DestinyRules(world.DestinyTier),
		ContentRules(world.AllowNSFW),
		WorldRules(world.WorldRules),
		SituationalRules(b.gs),
		CombatRules(b.gs),
	}
	for _, module := range modules {
		if module == "" {
			continue
		}
		sb.WriteString("\n\n")
		sb.WriteString(module)
	}

	stateJSON, err := json.Marshal(ToPromptState(b.gs))
	if err != nil {
		return err
	}
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf(StatePromptTemplate, stateJSON))

	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleSystem,
		Content: sb.String(),
	})
	return nil
}

// addHistory adds the windowed story history as alternating user/agent
// messages. On a rewrite the last turn is excluded, since the model is
// being asked to replace it.
func (b *Builder) addHistory() {
	history := b.gs.History
	if b.rewrite && len(history) > 0 {
		history = history[:len(history)-1]
	}
	if len(history) > b.historyLimit {
		history = history[len(history)-b.historyLimit:]
	}
	for _, turn := range history {
		if turn.PlayerAction != "" {
			b.messages = append(b.messages, chat.ChatMessage{
				Role:    chat.ChatRoleUser,
				Content: formatUserAction(turn.PlayerAction),
			})
		}
		if turn.StoryText != "" {
			b.messages = append(b.messages, chat.ChatMessage{
				Role:    chat.ChatRoleAgent,
				Content: turn.StoryText,
			})
		}
	}
}

// BuildCorrection extends a failed attempt's messages with the model's
// bad output and a correction instruction for the retry.
func BuildCorrection(messages []chat.ChatMessage, rawOutput, reason string) []chat.ChatMessage {
	out := make([]chat.ChatMessage, len(messages), len(messages)+1)
	copy(out, messages)
	return append(out, chat.ChatMessage{
		Role:    chat.ChatRoleSystem,
		Content: fmt.Sprintf(CorrectionPrompt, reason, rawOutput),
	})
}

// BuildEnrichment builds the flavor request for the NPCs the resolving
// turn leaves in the scene. Returns nil when the scene is empty.
func BuildEnrichment(storyText string, npcIDs []string) []chat.ChatMessage {
	if len(npcIDs) == 0 {
		return nil
	}
	messages := make([]chat.ChatMessage, 0, 2)
	if storyText != "" {
		messages = append(messages, chat.ChatMessage{
			Role:    chat.ChatRoleAgent,
			Content: storyText,
		})
	}
	return append(messages, chat.ChatMessage{
		Role:    chat.ChatRoleUser,
		Content: fmt.Sprintf(EnrichmentPrompt, strings.Join(npcIDs, ", ")),
	})
}
