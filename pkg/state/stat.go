package state

// StatType categorizes a status effect for display and prompt context.
type StatType string

const (
	StatGood      StatType = "GOOD"
	StatBad       StatType = "BAD"
	StatInjury    StatType = "INJURY"
	StatNSFW      StatType = "NSFW"
	StatKnowledge StatType = "KNOWLEDGE"
	StatNeutral   StatType = "NEUTRAL"
)

// CharacterStat is a single named status effect on the player or an NPC.
type CharacterStat struct {
	Description string   `json:"description"`
	Type        StatType `json:"type"`
	Duration    string   `json:"duration,omitempty"`
	Effect      string   `json:"effect,omitempty"`
	Source      string   `json:"source,omitempty"`
	Cure        string   `json:"cure,omitempty"`
}

// NamedStat pairs a stat with its unique name, the shape the LLM emits
// in statsToUpdate arrays.
type NamedStat struct {
	Name string        `json:"name"`
	Stat CharacterStat `json:"stat"`
}

// StatChanges is a sparse batch of ledger operations.
type StatChanges struct {
	StatsToUpdate []NamedStat `json:"statsToUpdate,omitempty"`
	StatsToDelete []string    `json:"statsToDelete,omitempty"`
}

// IsEmpty reports whether the batch contains no operations.
func (c *StatChanges) IsEmpty() bool {
	return c == nil || (len(c.StatsToUpdate) == 0 && len(c.StatsToDelete) == 0)
}

// ApplyStatChanges applies a batch of updates and deletes to a stat ledger
// and returns the new map and insertion order. Inputs are never mutated.
//
// Deletes run first, so a name present in both lists ends up re-added by
// its update. Updating an existing name overwrites the stat wholesale but
// keeps its position in the order; a new name is appended. Deleting a
// name that does not exist is a no-op.
func ApplyStatChanges(stats map[string]CharacterStat, order []string, changes *StatChanges) (map[string]CharacterStat, []string) {
	newStats := make(map[string]CharacterStat, len(stats))
	for k, v := range stats {
		newStats[k] = v
	}
	newOrder := make([]string, len(order))
	copy(newOrder, order)

	if changes.IsEmpty() {
		return newStats, newOrder
	}

	for _, name := range changes.StatsToDelete {
		if _, ok := newStats[name]; !ok {
			continue
		}
		delete(newStats, name)
		for i, n := range newOrder {
			if n == name {
				newOrder = append(newOrder[:i], newOrder[i+1:]...)
				break
			}
		}
	}

	for _, upd := range changes.StatsToUpdate {
		if upd.Name == "" {
			continue
		}
		if _, exists := newStats[upd.Name]; !exists {
			newOrder = append(newOrder, upd.Name)
		}
		newStats[upd.Name] = upd.Stat
	}

	return newStats, newOrder
}
