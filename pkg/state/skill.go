package state

// Skill is an ability known by the player or an NPC.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Abilities   []string `json:"abilities,omitempty"`
	Cost        float64  `json:"cost,omitempty"`     // linh luc spent per use
	Cooldown    int      `json:"cooldown,omitempty"` // turns
	Target      string   `json:"target,omitempty"`
	Effects     []string `json:"effects,omitempty"`
}
