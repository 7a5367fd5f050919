package state

import (
	"fmt"

	"github.com/jwebster45206/d20"
)

// BeginCombat flags the state as in combat with the given NPC ids.
// Unknown ids are dropped rather than erroring; the LLM may name an NPC
// it never created.
func (gs *GameState) BeginCombat(npcIDs []string) {
	gs.IsInCombat = true
	ids := make([]string, 0, len(npcIDs))
	for _, id := range npcIDs {
		if _, ok := gs.NPCByID(id); ok {
			ids = append(ids, id)
		}
	}
	gs.Combatants = ids
}

// EndCombat clears the combat flags.
func (gs *GameState) EndCombat() {
	gs.IsInCombat = false
	gs.Combatants = nil
}

// CombatActor builds a d20 actor from an NPC's core stat block for the
// combat tracker: health maps to HP, defense to AC, and the remaining
// combat stats become attributes.
func CombatActor(npc NPC) (*d20.Actor, error) {
	cs := npc.CoreStats
	actor, err := d20.NewActor(npc.ID).
		WithHP(int(cs.SinhLucToiDa)).
		WithAC(int(cs.PhongNgu)).
		WithAttributes(map[string]int{
			"congKich":  int(cs.CongKich),
			"khangPhep": int(cs.KhangPhep),
			"thanPhap":  int(cs.ThanPhap),
		}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build combat actor for %s: %w", npc.ID, err)
	}
	if cs.SinhLuc > 0 && cs.SinhLuc < cs.SinhLucToiDa {
		if err := actor.SetHP(int(cs.SinhLuc)); err != nil {
			return nil, fmt.Errorf("failed to set HP for %s: %w", npc.ID, err)
		}
	}
	return actor, nil
}

// CombatActors builds d20 actors for every current combatant, keyed by
// NPC id.
func (gs *GameState) CombatActors() (map[string]*d20.Actor, error) {
	actors := make(map[string]*d20.Actor, len(gs.Combatants))
	for _, id := range gs.Combatants {
		npc, ok := gs.NPCByID(id)
		if !ok {
			continue
		}
		actor, err := CombatActor(npc)
		if err != nil {
			return nil, err
		}
		actors[id] = actor
	}
	return actors, nil
}
