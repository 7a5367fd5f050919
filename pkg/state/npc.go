package state

import "encoding/json"

// NPC is a non-player character in the roster. Identity is by ID; no
// two NPCs share an id.
type NPC struct {
	ID                     string                   `json:"id"`
	Name                   string                   `json:"name"`
	Personality            string                   `json:"personality,omitempty"`
	Appearance             string                   `json:"appearance,omitempty"`
	Backstory              string                   `json:"backstory,omitempty"`
	Status                 string                   `json:"status,omitempty"`
	Relationship           string                   `json:"relationship,omitempty"`
	Stats                  map[string]CharacterStat `json:"stats,omitempty"`
	LastInteractionSummary string                   `json:"lastInteractionSummary,omitempty"`
	Level                  int                      `json:"level"`
	CoreStats              CharacterCoreStats       `json:"coreStats"`
	Skills                 []Skill                  `json:"skills,omitempty"`
}

// NPCAction is the operation kind of an NPCUpdate.
type NPCAction string

const (
	NPCCreate NPCAction = "CREATE"
	NPCModify NPCAction = "UPDATE"
	NPCDelete NPCAction = "DELETE"
)

// NPCUpdate is one reconciliation operation against the roster.
type NPCUpdate struct {
	ID      string      `json:"id"`
	Action  NPCAction   `json:"action"`
	Payload *NPCPayload `json:"payload,omitempty"`
}

// NPCPayload carries partial NPC fields from the LLM. Decoding is
// best-effort: fields that fail to parse are treated as absent, since
// validation happens upstream in the response parser.
type NPCPayload struct {
	Name                   string
	Personality            string
	Appearance             string
	Backstory              string
	Status                 string
	Relationship           string
	Stats                  []NamedStat
	LastInteractionSummary string
	Level                  int
	CoreStats              *CharacterCoreStats
	Skills                 []Skill
}

// UnmarshalJSON decodes each payload field independently so one
// malformed field does not discard the rest.
func (p *NPCPayload) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	tryString := func(key string, dst *string) {
		if v, ok := raw[key]; ok {
			var s string
			if err := json.Unmarshal(v, &s); err == nil {
				*dst = s
			}
		}
	}
	tryString("name", &p.Name)
	tryString("personality", &p.Personality)
	tryString("appearance", &p.Appearance)
	tryString("backstory", &p.Backstory)
	tryString("status", &p.Status)
	tryString("relationship", &p.Relationship)
	tryString("lastInteractionSummary", &p.LastInteractionSummary)
	if v, ok := raw["stats"]; ok {
		var stats []NamedStat
		if err := json.Unmarshal(v, &stats); err == nil {
			p.Stats = stats
		}
	}
	if v, ok := raw["level"]; ok {
		var lvl int
		if err := json.Unmarshal(v, &lvl); err == nil {
			p.Level = lvl
		}
	}
	if v, ok := raw["coreStats"]; ok {
		var cs CharacterCoreStats
		if err := json.Unmarshal(v, &cs); err == nil {
			p.CoreStats = &cs
		}
	}
	if v, ok := raw["skills"]; ok {
		var skills []Skill
		if err := json.Unmarshal(v, &skills); err == nil {
			p.Skills = skills
		}
	}
	return nil
}

// statsToMap converts a payload stat array into a ledger map.
func statsToMap(stats []NamedStat) map[string]CharacterStat {
	if len(stats) == 0 {
		return make(map[string]CharacterStat)
	}
	m := make(map[string]CharacterStat, len(stats))
	for _, ns := range stats {
		if ns.Name == "" {
			continue
		}
		m[ns.Name] = ns.Stat
	}
	return m
}

// ApplyNPCUpdates reconciles a batch of CREATE/UPDATE/DELETE operations
// against the roster and returns the new roster. The input is not
// mutated. Operations referencing unknown ids are absorbed as no-ops;
// the LLM hallucinates ids and that must not fail the turn.
//
// CREATE is first-writer-wins: a second CREATE for an existing id is
// ignored. UPDATE shallow-merges non-empty payload fields over the
// record; its stats array merges key-by-key into the existing stat map,
// unlike the player ledger where an update replaces the whole batch
// semantics per entry. Later operations in the batch see NPCs created
// earlier in the same batch.
func ApplyNPCUpdates(npcs []NPC, updates []NPCUpdate, attrs []AttributeDefinition) []NPC {
	out := make([]NPC, len(npcs))
	copy(out, npcs)

	indexOf := func(id string) int {
		for i := range out {
			if out[i].ID == id {
				return i
			}
		}
		return -1
	}

	for _, upd := range updates {
		if upd.ID == "" {
			continue
		}
		switch upd.Action {
		case NPCCreate:
			if indexOf(upd.ID) >= 0 {
				continue
			}
			npc := NPC{
				ID:        upd.ID,
				Level:     1,
				CoreStats: ComputeInitialCoreStats(attrs),
				Stats:     make(map[string]CharacterStat),
				Skills:    make([]Skill, 0),
			}
			if p := upd.Payload; p != nil {
				npc.Name = p.Name
				npc.Personality = p.Personality
				npc.Appearance = p.Appearance
				npc.Backstory = p.Backstory
				npc.Status = p.Status
				npc.Relationship = p.Relationship
				npc.LastInteractionSummary = p.LastInteractionSummary
				npc.Stats = statsToMap(p.Stats)
				if p.Level > 0 {
					npc.Level = p.Level
				}
				if p.CoreStats != nil {
					npc.CoreStats = *p.CoreStats
				}
				if len(p.Skills) > 0 {
					npc.Skills = p.Skills
				}
			}
			out = append(out, npc)

		case NPCModify:
			i := indexOf(upd.ID)
			if i < 0 || upd.Payload == nil {
				continue
			}
			p := upd.Payload
			npc := out[i]
			if p.Name != "" {
				npc.Name = p.Name
			}
			if p.Personality != "" {
				npc.Personality = p.Personality
			}
			if p.Appearance != "" {
				npc.Appearance = p.Appearance
			}
			if p.Backstory != "" {
				npc.Backstory = p.Backstory
			}
			if p.Status != "" {
				npc.Status = p.Status
			}
			if p.Relationship != "" {
				npc.Relationship = p.Relationship
			}
			if p.LastInteractionSummary != "" {
				npc.LastInteractionSummary = p.LastInteractionSummary
			}
			if len(p.Stats) > 0 {
				merged := make(map[string]CharacterStat, len(npc.Stats)+len(p.Stats))
				for k, v := range npc.Stats {
					merged[k] = v
				}
				for _, ns := range p.Stats {
					if ns.Name == "" {
						continue
					}
					merged[ns.Name] = ns.Stat
				}
				npc.Stats = merged
			}
			if p.Level > 0 {
				npc.Level = p.Level
			}
			if p.CoreStats != nil {
				npc.CoreStats = *p.CoreStats
			}
			if len(p.Skills) > 0 {
				npc.Skills = p.Skills
			}
			out[i] = npc

		case NPCDelete:
			i := indexOf(upd.ID)
			if i < 0 {
				continue
			}
			out = append(out[:i], out[i+1:]...)
		}
	}

	return out
}
