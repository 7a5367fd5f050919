// Package engine resolves game turns: it prompts the model, parses and
// validates the structured response, and reconciles every declared
// change into a replacement game state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tutienrpg/turn-engine/internal/services"
	"github.com/tutienrpg/turn-engine/pkg/chat"
	"github.com/tutienrpg/turn-engine/pkg/prompts"
	"github.com/tutienrpg/turn-engine/pkg/state"
	"github.com/tutienrpg/turn-engine/pkg/textfilter"
	"github.com/tutienrpg/turn-engine/pkg/turn"
)

// Phase is where a turn currently is in its lifecycle, for progress
// reporting and error context.
type Phase string

const (
	PhaseIdle           Phase = "IDLE"
	PhaseAwaitingStream Phase = "AWAITING_STREAM"
	PhaseValidating     Phase = "VALIDATING"
	PhaseRetrying       Phase = "RETRYING"
	PhaseApplying       Phase = "APPLYING"
	PhaseFailed         Phase = "FAILED"
)

// maxAttempts is the total number of model calls for one turn: the
// first attempt plus two correction retries.
const maxAttempts = 3

// TurnError reports a failed turn. RawOutput carries the model's last
// output when the failure was a parse failure, so callers can log or
// display it.
type TurnError struct {
	Phase     Phase
	RawOutput string
	Err       error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn failed during %s: %v", e.Phase, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// Options tunes one ProcessTurn call.
type Options struct {
	// Rewrite replaces the previous turn instead of continuing the
	// story.
	Rewrite bool

	// OnPartial receives the best-effort narrative text as it streams,
	// called with the full text recovered so far.
	OnPartial func(storyText string)

	// OnPhase receives lifecycle transitions.
	OnPhase func(phase Phase)

	// HistoryLimit overrides the story history window.
	HistoryLimit int
}

// Engine turns player actions into replacement game states. It is
// stateless across turns; all session state lives in the GameState.
type Engine struct {
	llm      services.LLMService
	embedder services.Embedder // nil when the provider cannot embed
	filter   *textfilter.Filter
	logger   *slog.Logger
}

func New(llm services.LLMService, logger *slog.Logger) *Engine {
	e := &Engine{
		llm:    llm,
		filter: textfilter.New(),
		logger: logger,
	}
	if embedder, ok := llm.(services.Embedder); ok {
		e.embedder = embedder
	}
	return e
}

// ProcessTurn resolves one player action against a committed state and
// returns the replacement state. The input state is never mutated: on
// any error the caller still holds the committed snapshot.
func (e *Engine) ProcessTurn(ctx context.Context, gs *state.GameState, playerAction string, opts Options) (*state.GameState, *turn.Result, error) {
	if strings.TrimSpace(playerAction) == "" {
		return nil, nil, &TurnError{Phase: PhaseFailed, Err: errors.New("player action is empty")}
	}
	if opts.Rewrite && len(gs.History) == 0 {
		return nil, nil, &TurnError{Phase: PhaseFailed, Err: errors.New("nothing to rewrite")}
	}

	next, err := gs.DeepCopy()
	if err != nil {
		return nil, nil, &TurnError{Phase: PhaseFailed, Err: fmt.Errorf("failed to copy state: %w", err)}
	}

	builder := prompts.New().
		WithGameState(next).
		WithPlayerAction(playerAction).
		WithRewrite(opts.Rewrite)
	if opts.HistoryLimit > 0 {
		builder = builder.WithHistoryLimit(opts.HistoryLimit)
	}
	messages, err := builder.Build()
	if err != nil {
		return nil, nil, &TurnError{Phase: PhaseFailed, Err: fmt.Errorf("failed to build prompt: %w", err)}
	}

	result, tokens, err := e.generate(ctx, messages, opts)
	if err != nil {
		return nil, nil, err
	}

	e.setPhase(opts, PhaseApplying)
	if !next.World.AllowNSFW {
		e.cleanNarration(result)
	}

	// Enrichment runs before apply so its flavor merges into the turn's
	// own NPC updates and everything lands in one reconciliation pass.
	e.enrich(ctx, next, result)

	e.apply(ctx, next, result, playerAction, opts.Rewrite, tokens)

	return next, result, nil
}

// generate runs the bounded call-parse-correct loop. Parse and
// validation failures are retried with a correction prompt carrying the
// bad output; transport failures are not retried.
func (e *Engine) generate(ctx context.Context, messages []chat.ChatMessage, opts Options) (*turn.Result, int, error) {
	var lastRaw string
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		e.setPhase(opts, PhaseAwaitingStream)
		raw, tokens, err := e.streamResponse(ctx, messages, opts)
		if err != nil {
			return nil, 0, &TurnError{Phase: PhaseAwaitingStream, Err: err}
		}
		lastRaw = raw

		e.setPhase(opts, PhaseValidating)
		result, err := turn.ParseStrict(raw)
		if err == nil {
			return result, tokens, nil
		}

		var malformed *turn.MalformedResponseError
		if !errors.As(err, &malformed) {
			return nil, 0, &TurnError{Phase: PhaseValidating, RawOutput: raw, Err: err}
		}
		e.logger.Warn("Model response failed validation",
			"attempt", attempt,
			"reason", malformed.Reason)
		if attempt < maxAttempts {
			e.setPhase(opts, PhaseRetrying)
			messages = prompts.BuildCorrection(messages, malformed.Raw, malformed.Reason)
		}
	}
	return nil, 0, &TurnError{
		Phase:     PhaseFailed,
		RawOutput: lastRaw,
		Err:       fmt.Errorf("model output failed validation after %d attempts", maxAttempts),
	}
}

// streamResponse consumes one model stream, forwarding the best-effort
// narrative to OnPartial as it grows.
func (e *Engine) streamResponse(ctx context.Context, messages []chat.ChatMessage, opts Options) (string, int, error) {
	stream, err := e.llm.ChatStream(ctx, messages)
	if err != nil {
		return "", 0, err
	}

	var extractor turn.PartialExtractor
	tokens := 0
	for chunk := range stream {
		if chunk.Err != nil {
			return "", 0, chunk.Err
		}
		if chunk.Done {
			tokens = chunk.Tokens
			continue
		}
		extractor.Feed(chunk.Text)
		if opts.OnPartial != nil {
			if text, ok := extractor.StoryText(); ok {
				opts.OnPartial(text)
			}
		}
	}
	return extractor.Raw(), tokens, nil
}

// enrich asks the model for per-NPC color and merges it into the
// result's NPC updates. Fields the model already declared this turn
// win; flavor only fills the gaps. The pass is cosmetic and a failure
// never fails the turn.
func (e *Engine) enrich(ctx context.Context, gs *state.GameState, result *turn.Result) {
	messages := prompts.BuildEnrichment(result.StoryText, presentAfter(gs, result.NPCUpdates))
	if messages == nil {
		return
	}
	resp, err := e.llm.Chat(ctx, messages)
	if err != nil {
		e.logger.Warn("NPC enrichment call failed", "error", err)
		return
	}
	flavors := turn.ParseFlavorLines(resp.Message)
	if len(flavors) == 0 {
		return
	}
	result.NPCUpdates = turn.MergeFlavor(result.NPCUpdates, flavors)
	gs.TotalTokens += resp.Tokens
}

// presentAfter is the NPC id set the scene will hold once the turn's
// roster operations land: the ids the model wrote about, or the
// previous set minus the dead when the turn only removed NPCs.
func presentAfter(gs *state.GameState, updates []state.NPCUpdate) []string {
	present := make([]string, 0, len(updates))
	deleted := make(map[string]bool)
	for _, upd := range updates {
		if upd.Action == state.NPCDelete {
			deleted[upd.ID] = true
			continue
		}
		present = append(present, upd.ID)
	}
	if len(present) > 0 {
		return present
	}
	for _, id := range gs.PresentNPCIDs {
		if !deleted[id] {
			present = append(present, id)
		}
	}
	return present
}

// cleanNarration runs the profanity filter over the player-facing text
// of a result.
func (e *Engine) cleanNarration(result *turn.Result) {
	result.StoryText = e.filter.Clean(result.StoryText)
	result.StatusNarration = e.filter.Clean(result.StatusNarration)
	result.OmniscientInterlude = e.filter.Clean(result.OmniscientInterlude)
}

// SuggestTitle asks the model for a story title. Best-effort; returns
// an empty string on failure.
func (e *Engine) SuggestTitle(ctx context.Context, gs *state.GameState) string {
	last := gs.LastTurn()
	if last == nil {
		return ""
	}
	resp, err := e.llm.Chat(ctx, []chat.ChatMessage{
		{Role: chat.ChatRoleAgent, Content: last.StoryText},
		{Role: chat.ChatRoleUser, Content: prompts.TitlePrompt},
	})
	if err != nil {
		e.logger.Warn("Title suggestion failed", "error", err)
		return ""
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(resp.Message), `"`))
}

func (e *Engine) setPhase(opts Options, phase Phase) {
	if opts.OnPhase != nil {
		opts.OnPhase(phase)
	}
}
