// Package turn defines the structured result the game master model
// returns each turn, and the parsers that recover it from raw model
// output.
package turn

import (
	"fmt"

	"github.com/tutienrpg/turn-engine/pkg/state"
)

// Result is the contract the model fills each turn. Everything except
// the narrative trio is optional; absent fields mean "no change".
type Result struct {
	StoryText   string   `json:"storyText"`
	Choices     []string `json:"choices"`
	SummaryText string   `json:"summaryText"`

	PlayerStatChanges *state.StatChanges `json:"playerStatChanges,omitempty"`
	NPCUpdates        []state.NPCUpdate  `json:"npcUpdates,omitempty"`
	ItemsReceived     []state.Item       `json:"itemsReceived,omitempty"`
	CoreStatsChanges  map[string]float64 `json:"coreStatsChanges,omitempty"`
	ExpGained         int                `json:"expGained,omitempty"`

	TimeElapsed   int    `json:"timeElapsed,omitempty"` // minutes
	WeatherChange string `json:"weatherChange,omitempty"`

	IsInCombat      *bool    `json:"isInCombat,omitempty"`
	CombatantNPCIDs []string `json:"combatantNpcIds,omitempty"`

	StatusNarration     string `json:"statusNarration,omitempty"`
	OmniscientInterlude string `json:"omniscientInterlude,omitempty"`

	NewlyAcquiredSkill *state.Skill  `json:"newlyAcquiredSkill,omitempty"`
	PlayerSkills       []state.Skill `json:"playerSkills,omitempty"` // full replacement when present
}

// Validate checks the required narrative fields. A result that fails
// here is treated the same as unparseable output and retried.
func (r *Result) Validate() error {
	if r.StoryText == "" {
		return fmt.Errorf("missing storyText")
	}
	if r.SummaryText == "" {
		return fmt.Errorf("missing summaryText")
	}
	if r.Choices == nil {
		return fmt.Errorf("missing choices")
	}
	return nil
}

// GameTurn converts the result to a history entry for the given player
// action.
func (r *Result) GameTurn(playerAction string) state.GameTurn {
	return state.GameTurn{
		PlayerAction:        playerAction,
		StoryText:           r.StoryText,
		Choices:             r.Choices,
		StatusNarration:     r.StatusNarration,
		OmniscientInterlude: r.OmniscientInterlude,
	}
}
