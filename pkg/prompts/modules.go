package prompts

import (
	"fmt"
	"strings"

	"github.com/tutienrpg/turn-engine/pkg/state"
)

// Rule modules are pure functions from game state to prompt fragments.
// The builder assembles whichever apply to the current turn.

// PerspectiveRules sets the narrative voice.
func PerspectiveRules(p state.Perspective) string {
	switch p {
	case state.PerspectiveThird:
		return `### PERSPECTIVE
Narrate in the third person. Refer to the player character by name.`
	default:
		return `### PERSPECTIVE
Narrate in the second person, addressing the player as "ngươi". Never speak for them.`
	}
}

// DestinyRules tunes how harsh the world runs.
func DestinyRules(tier state.DestinyTier) string {
	switch tier {
	case state.DestinyTranquil:
		return `### FLOW OF DESTINY
The flow of destiny is gentle. Risky actions usually succeed, NPCs lean friendly, and setbacks are temporary. Danger exists but rarely kills.`
	case state.DestinyMerciless:
		return `### FLOW OF DESTINY
The flow of destiny is merciless. Risky actions fail more often than they succeed. NPCs pursue their own interests ruthlessly, resources are scarce, and mistakes have lasting consequences including injuries and death. Do not soften outcomes to please the player.`
	default:
		return `### FLOW OF DESTINY
The flow of destiny is balanced. Success follows from sensible plans; recklessness is punished. NPCs react realistically to the player's reputation and actions.`
	}
}

// CombatRules applies only while combat is active and tactical combat
// narration is enabled for the story. Each combatant line carries the
// d20 tracker's view of the NPC so the model narrates against real
// numbers.
func CombatRules(gs *state.GameState) string {
	if !gs.IsInCombat || !gs.World.CombatMode {
		return ""
	}
	actors, err := gs.CombatActors()
	if err != nil {
		actors = nil
	}
	lines := make([]string, 0, len(gs.Combatants))
	for _, id := range gs.Combatants {
		npc, ok := gs.NPCByID(id)
		if !ok {
			continue
		}
		if actor := actors[id]; actor != nil {
			lines = append(lines, fmt.Sprintf("%s (%s): HP %d/%d, AC %d",
				npc.Name, npc.ID, actor.HP(), actor.MaxHP(), actor.AC()))
		} else {
			lines = append(lines, fmt.Sprintf("%s (%s)", npc.Name, npc.ID))
		}
	}
	return fmt.Sprintf(`### COMBAT
Combat is active against: %s.
Narrate blow by blow, grounded in the core stats of both sides. Apply damage through coreStatsChanges (negative sinhLuc deltas for the player) and through npcUpdates for enemies. Combat ends when one side is defeated, flees, or surrenders; then set isInCombat to false.`, strings.Join(lines, "; "))
}

// SituationalRules summarizes the scene: clock, condition, present NPCs.
func SituationalRules(gs *state.GameState) string {
	var sb strings.Builder
	sb.WriteString("### CURRENT SITUATION\n")
	fmt.Fprintf(&sb, "In-world time: ngày %d, %02d:%02d, mùa %s.",
		gs.Time.Day, gs.Time.Hour, gs.Time.Minute, gs.Time.Season)
	if gs.Time.Weather != "" {
		fmt.Fprintf(&sb, " Thời tiết: %s.", gs.Time.Weather)
	}
	fmt.Fprintf(&sb, "\nCultivation level %d (%d/%d exp).",
		gs.Cultivation.Level, gs.Cultivation.Exp, gs.Cultivation.ExpToNextLevel)
	if present := gs.PresentNPCs(); len(present) > 0 {
		sb.WriteString("\nNPCs present in the scene:")
		for _, npc := range present {
			fmt.Fprintf(&sb, "\n- %s (%s): %s", npc.Name, npc.ID, npc.Status)
		}
	}
	if len(gs.PlayerStatOrder) > 0 {
		sb.WriteString("\nActive player conditions:")
		for _, name := range gs.PlayerStatOrder {
			stat := gs.PlayerStats[name]
			fmt.Fprintf(&sb, "\n- %s [%s]: %s", name, stat.Type, stat.Description)
		}
	}
	return sb.String()
}

// WorldRules carries the template author's own laws of the setting.
func WorldRules(rules []string) string {
	if len(rules) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("### WORLD RULES\nThese laws of the setting are absolute:")
	for i, rule := range rules {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, rule)
	}
	return sb.String()
}

// ContentRules gates explicit content on the story's NSFW setting.
func ContentRules(allowNSFW bool) string {
	if allowNSFW {
		return `### CONTENT
Mature content is permitted when the story calls for it. All content should serve the narrative.`
	}
	return `### CONTENT
Keep content appropriate for teenagers. Violence may be described but not gratuitously; avoid explicit sexual content and graphic gore. Never use the NSFW stat type.`
}
