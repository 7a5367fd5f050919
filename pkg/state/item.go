package state

// Item is an inventory or equipment entry. Items are immutable value
// records once created; lookups go by ID.
type Item struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"type,omitempty"` // e.g. "consumable", "weapon", "material"
	Quantity    int      `json:"quantity,omitempty"`
	Effects     []string `json:"effects,omitempty"`
}

// AddItems merges received items into an inventory, stacking quantity
// onto an existing entry with the same id and appending new ids in the
// order given. The input slice is not mutated.
func AddItems(inventory []Item, received []Item) []Item {
	out := make([]Item, len(inventory))
	copy(out, inventory)
	for _, item := range received {
		if item.ID == "" && item.Name == "" {
			continue
		}
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		found := false
		for i := range out {
			if out[i].ID != "" && out[i].ID == item.ID {
				out[i].Quantity += qty
				found = true
				break
			}
		}
		if !found {
			item.Quantity = qty
			out = append(out, item)
		}
	}
	return out
}
