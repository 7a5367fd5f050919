package engine

import (
	"context"
	"time"

	"github.com/tutienrpg/turn-engine/pkg/state"
	"github.com/tutienrpg/turn-engine/pkg/turn"
)

// apply reconciles a validated result into the replacement state. The
// order is fixed so the same result always yields the same state:
// ledger and roster first, then the narrative record, then progression,
// clock and numbers.
func (e *Engine) apply(ctx context.Context, gs *state.GameState, result *turn.Result, playerAction string, rewrite bool, tokens int) {
	// 1. Player stat ledger
	if result.PlayerStatChanges != nil && !result.PlayerStatChanges.IsEmpty() {
		gs.PlayerStats, gs.PlayerStatOrder = state.ApplyStatChanges(
			gs.PlayerStats, gs.PlayerStatOrder, result.PlayerStatChanges)
	}

	// 2. NPC roster
	if len(result.NPCUpdates) > 0 {
		gs.NPCs = state.ApplyNPCUpdates(gs.NPCs, result.NPCUpdates, gs.World.AttributeDefinitions)
		e.updatePresentNPCs(gs, result.NPCUpdates)
	}

	// 3. Narrative record
	gameTurn := result.GameTurn(playerAction)
	if rewrite && len(gs.History) > 0 {
		gs.History[len(gs.History)-1] = gameTurn
	} else {
		gs.History = append(gs.History, gameTurn)
		gs.TurnCount++
	}

	// 4. Chronicle. A rewrite replaces narration only; the original
	// turn's summary stands.
	if !rewrite {
		entry := state.ChronicleEntry{
			TurnNumber: gs.TurnCount,
			Summary:    result.SummaryText,
			Timestamp:  time.Now(),
			Embedding:  e.embedSummary(ctx, result.SummaryText),
		}
		gs.Chronicle = append(gs.Chronicle, entry)
		if gs.PlotChronicle != "" {
			gs.PlotChronicle += "\n"
		}
		gs.PlotChronicle += result.SummaryText
	}

	// 5. Cultivation
	if result.ExpGained > 0 {
		if levels := gs.Cultivation.GainExp(result.ExpGained); levels > 0 {
			e.logger.Info("Player leveled up",
				"session_id", gs.ID,
				"level", gs.Cultivation.Level,
				"levels_gained", levels)
		}
	}

	// 6. Inventory and skills
	if len(result.ItemsReceived) > 0 {
		gs.Inventory = state.AddItems(gs.Inventory, result.ItemsReceived)
	}
	if result.NewlyAcquiredSkill != nil {
		gs.PlayerSkills = appendSkill(gs.PlayerSkills, *result.NewlyAcquiredSkill)
	}
	if result.PlayerSkills != nil {
		gs.PlayerSkills = result.PlayerSkills
	}

	// 7. Clock and weather
	gs.Time.Advance(result.TimeElapsed)
	if result.WeatherChange != "" {
		gs.Time.Weather = result.WeatherChange
	}

	// 8. Core stats, clamped after all deltas land
	if len(result.CoreStatsChanges) > 0 {
		gs.CoreStats.ApplyDeltas(result.CoreStatsChanges)
	}

	// 9. Combat transitions
	if result.IsInCombat != nil {
		if *result.IsInCombat {
			gs.BeginCombat(result.CombatantNPCIDs)
		} else {
			gs.EndCombat()
		}
	}

	gs.TotalTokens += tokens
	gs.UpdatedAt = time.Now()
}

// updatePresentNPCs derives the on-screen NPC set from a turn's roster
// operations: NPCs the model wrote about are in the scene, deleted ones
// are not.
func (e *Engine) updatePresentNPCs(gs *state.GameState, updates []state.NPCUpdate) {
	present := make([]string, 0, len(updates))
	for _, upd := range updates {
		if upd.Action == state.NPCDelete {
			continue
		}
		present = append(present, upd.ID)
	}
	if len(present) > 0 {
		gs.SetPresentNPCs(present)
		return
	}
	// Only deletions this turn: keep the previous set minus the dead.
	gs.SetPresentNPCs(gs.PresentNPCIDs)
}

// embedSummary produces an embedding for a chronicle summary. Failures
// log and return nil; the chronicle text is the source of truth and the
// vector can be backfilled.
func (e *Engine) embedSummary(ctx context.Context, summary string) []float32 {
	if e.embedder == nil {
		return nil
	}
	vec, err := e.embedder.Embed(ctx, summary)
	if err != nil {
		e.logger.Warn("Chronicle embedding failed", "error", err)
		return nil
	}
	return vec
}

// appendSkill adds a skill, replacing an existing one with the same id.
func appendSkill(skills []state.Skill, skill state.Skill) []state.Skill {
	for i := range skills {
		if skills[i].ID == skill.ID {
			skills[i] = skill
			return skills
		}
	}
	return append(skills, skill)
}
