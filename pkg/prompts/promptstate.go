package prompts

import (
	"github.com/tutienrpg/turn-engine/pkg/state"
)

// PromptState is the condensed view of a GameState sent to the model.
// It drops server-side bookkeeping (ids, timestamps, embeddings, token
// counters) and orders the player stats so the model sees them the way
// the player does.
type PromptState struct {
	PlayerName  string             `json:"playerName"`
	PlayerStats []state.NamedStat  `json:"playerStats,omitempty"`
	CoreStats   state.CharacterCoreStats `json:"coreStats"`
	Cultivation state.Cultivation  `json:"cultivation"`

	Inventory    []state.Item  `json:"inventory,omitempty"`
	Equipment    []state.Item  `json:"equipment,omitempty"`
	PlayerSkills []state.Skill `json:"playerSkills,omitempty"`

	NPCs          []PromptNPC `json:"npcs,omitempty"`
	PlotChronicle string      `json:"plotChronicle,omitempty"`
	RecentEvents  []string    `json:"recentEvents,omitempty"`

	IsInCombat bool     `json:"isInCombat,omitempty"`
	Combatants []string `json:"combatants,omitempty"`
}

// PromptNPC trims a roster entry to what the model needs for narration.
type PromptNPC struct {
	ID                     string                         `json:"id"`
	Name                   string                         `json:"name"`
	Personality            string                         `json:"personality,omitempty"`
	Status                 string                         `json:"status,omitempty"`
	Relationship           string                         `json:"relationship,omitempty"`
	LastInteractionSummary string                         `json:"lastInteractionSummary,omitempty"`
	Level                  int                            `json:"level"`
	Stats                  map[string]state.CharacterStat `json:"stats,omitempty"`
	CoreStats              *state.CharacterCoreStats      `json:"coreStats,omitempty"`
}

// chronicleWindow is how many recent chronicle summaries ride along in
// the prompt.
const chronicleWindow = 10

// ToPromptState builds the model-facing view of a state.
func ToPromptState(gs *state.GameState) PromptState {
	ps := PromptState{
		PlayerName:   gs.World.PlayerName,
		CoreStats:    gs.CoreStats,
		Cultivation:  gs.Cultivation,
		Inventory:    gs.Inventory,
		Equipment:    gs.Equipment,
		PlayerSkills: gs.PlayerSkills,
		PlotChronicle: gs.PlotChronicle,
		IsInCombat:   gs.IsInCombat,
		Combatants:   gs.Combatants,
	}

	for _, name := range gs.PlayerStatOrder {
		if stat, ok := gs.PlayerStats[name]; ok {
			ps.PlayerStats = append(ps.PlayerStats, state.NamedStat{Name: name, Stat: stat})
		}
	}

	for _, npc := range gs.NPCs {
		pn := PromptNPC{
			ID:                     npc.ID,
			Name:                   npc.Name,
			Personality:            npc.Personality,
			Status:                 npc.Status,
			Relationship:           npc.Relationship,
			LastInteractionSummary: npc.LastInteractionSummary,
			Level:                  npc.Level,
			Stats:                  npc.Stats,
		}
		// Full numbers only for NPCs that can fight this turn.
		if gs.IsInCombat && contains(gs.Combatants, npc.ID) {
			cs := npc.CoreStats
			pn.CoreStats = &cs
		}
		ps.NPCs = append(ps.NPCs, pn)
	}

	entries := gs.Chronicle
	if len(entries) > chronicleWindow {
		entries = entries[len(entries)-chronicleWindow:]
	}
	for _, entry := range entries {
		ps.RecentEvents = append(ps.RecentEvents, entry.Summary)
	}

	return ps
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
