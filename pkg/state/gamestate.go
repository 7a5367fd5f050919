package state

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Perspective selects the narrative voice for the game master.
type Perspective string

const (
	PerspectiveSecond Perspective = "SECOND" // "ngươi", addressed directly
	PerspectiveThird  Perspective = "THIRD"  // named protagonist
)

// DestinyTier selects how harsh the flow of destiny runs: failure rates,
// NPC aggression and random-event frequency in the narration rules.
type DestinyTier string

const (
	DestinyTranquil  DestinyTier = "TRANQUIL"
	DestinyBalanced  DestinyTier = "BALANCED"
	DestinyMerciless DestinyTier = "MERCILESS"
)

// WorldContext is the immutable-after-creation world and character
// definition a story was started from.
type WorldContext struct {
	StoryName            string                `json:"storyName"`
	PlayerName           string                `json:"playerName"`
	PlayerBio            string                `json:"playerBio,omitempty"`
	Perspective          Perspective           `json:"perspective"`
	DestinyTier          DestinyTier           `json:"destinyTier"`
	CombatMode           bool                  `json:"combatMode,omitempty"` // tactical combat narration enabled
	AllowNSFW            bool                  `json:"allowNsfw,omitempty"`
	WorldRules           []string              `json:"worldRules,omitempty"`
	AttributeDefinitions []AttributeDefinition `json:"attributeDefinitions,omitempty"`
}

// GameTurn is one entry of the story history.
type GameTurn struct {
	PlayerAction        string   `json:"playerAction,omitempty"`
	StoryText           string   `json:"storyText"`
	Choices             []string `json:"choices,omitempty"`
	StatusNarration     string   `json:"statusNarration,omitempty"`
	OmniscientInterlude string   `json:"omniscientInterlude,omitempty"`
}

// ChronicleEntry is one record of the structured per-turn memory log,
// distinct from the running PlotChronicle text blob.
type ChronicleEntry struct {
	TurnNumber int       `json:"turnNumber"`
	Summary    string    `json:"summary"`
	Timestamp  time.Time `json:"timestamp"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// GameState is the full state of one story session. It is owned by the
// turn engine: ProcessTurn takes a state and returns a replacement
// value, so callers always hold a committed snapshot they can roll back
// to if a turn fails.
type GameState struct {
	ID    uuid.UUID    `json:"id"`
	Title string       `json:"title,omitempty"`
	World WorldContext `json:"worldContext"`

	History         []GameTurn               `json:"history"`
	PlayerStats     map[string]CharacterStat `json:"playerStats"`
	PlayerStatOrder []string                 `json:"playerStatOrder"`
	NPCs            []NPC                    `json:"npcs"`
	PlayerSkills    []Skill                  `json:"playerSkills,omitempty"`
	PlotChronicle   string                   `json:"plotChronicle,omitempty"`
	PresentNPCIDs   []string                 `json:"presentNpcIds,omitempty"`
	CoreStats       CharacterCoreStats       `json:"coreStats"`
	Cultivation     Cultivation              `json:"cultivation"`
	Inventory       []Item                   `json:"inventory,omitempty"`
	Equipment       []Item                   `json:"equipment,omitempty"`
	Chronicle       []ChronicleEntry         `json:"chronicle,omitempty"`
	Time            GameTime                 `json:"time"`

	IsInCombat bool     `json:"isInCombat,omitempty"`
	Combatants []string `json:"combatants,omitempty"` // NPC ids, subset of NPCs

	TurnCount   int       `json:"turnCount"`
	TotalTokens int       `json:"totalTokens,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewGameState creates the initial state for a story from its world
// context: derived core stats, a fresh clock, an empty history.
func NewGameState(world WorldContext) *GameState {
	now := time.Now()
	return &GameState{
		ID:              uuid.New(),
		Title:           world.StoryName,
		World:           world,
		History:         make([]GameTurn, 0),
		PlayerStats:     make(map[string]CharacterStat),
		PlayerStatOrder: make([]string, 0),
		NPCs:            make([]NPC, 0),
		CoreStats:       ComputeInitialCoreStats(world.AttributeDefinitions),
		Cultivation:     NewCultivation(),
		Time:            NewGameTime(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// DeepCopy returns an independent copy of the state via a JSON
// round-trip. Used to build the replacement state for a turn without
// mutating the committed snapshot.
func (gs *GameState) DeepCopy() (*GameState, error) {
	data, err := json.Marshal(gs)
	if err != nil {
		return nil, err
	}
	var out GameState
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NPCByID looks up a roster entry. The second return is false when the
// id is unknown.
func (gs *GameState) NPCByID(id string) (NPC, bool) {
	for _, npc := range gs.NPCs {
		if npc.ID == id {
			return npc, true
		}
	}
	return NPC{}, false
}

// PresentNPCs resolves PresentNPCIDs against the roster, dropping ids
// that no longer exist.
func (gs *GameState) PresentNPCs() []NPC {
	out := make([]NPC, 0, len(gs.PresentNPCIDs))
	for _, id := range gs.PresentNPCIDs {
		if npc, ok := gs.NPCByID(id); ok {
			out = append(out, npc)
		}
	}
	return out
}

// SetPresentNPCs replaces the on-screen set, filtered to ids that exist
// in the roster so the subset invariant holds.
func (gs *GameState) SetPresentNPCs(ids []string) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		if _, ok := gs.NPCByID(id); ok {
			out = append(out, id)
			seen[id] = true
		}
	}
	gs.PresentNPCIDs = out
}

// RecentHistory returns up to limit most recent turns.
func (gs *GameState) RecentHistory(limit int) []GameTurn {
	if limit <= 0 || len(gs.History) <= limit {
		return gs.History
	}
	return gs.History[len(gs.History)-limit:]
}

// LastTurn returns a pointer to the most recent turn, or nil for an
// empty history.
func (gs *GameState) LastTurn() *GameTurn {
	if len(gs.History) == 0 {
		return nil
	}
	return &gs.History[len(gs.History)-1]
}
