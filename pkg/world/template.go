package world

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tutienrpg/turn-engine/pkg/state"
)

// Template is a user-authored world definition file. A template is the
// seed for a story: it becomes the immutable WorldContext of a new
// GameState, plus optional opening content.
type Template struct {
	FileName string `yaml:"-" json:"fileName"`

	StoryName            string                      `yaml:"storyName" json:"storyName"`
	PlayerName           string                      `yaml:"playerName" json:"playerName"`
	PlayerBio            string                      `yaml:"playerBio,omitempty" json:"playerBio,omitempty"`
	Perspective          state.Perspective           `yaml:"perspective,omitempty" json:"perspective,omitempty"`
	DestinyTier          state.DestinyTier           `yaml:"destinyTier,omitempty" json:"destinyTier,omitempty"`
	CombatMode           bool                        `yaml:"combatMode,omitempty" json:"combatMode,omitempty"`
	AllowNSFW            bool                        `yaml:"allowNsfw,omitempty" json:"allowNsfw,omitempty"`
	WorldRules           []string                    `yaml:"worldRules,omitempty" json:"worldRules,omitempty"`
	AttributeDefinitions []state.AttributeDefinition `yaml:"attributes,omitempty" json:"attributes,omitempty"`

	OpeningScene  string        `yaml:"openingScene,omitempty" json:"openingScene,omitempty"`
	StartingItems []state.Item  `yaml:"startingItems,omitempty" json:"startingItems,omitempty"`
	StartingSkill *state.Skill  `yaml:"startingSkill,omitempty" json:"startingSkill,omitempty"`
	StartingNPCs  []state.NPC   `yaml:"startingNpcs,omitempty" json:"startingNpcs,omitempty"`
}

// Validate checks the fields a playable template must have and fills
// defaults for the optional enums.
func (t *Template) Validate() error {
	if strings.TrimSpace(t.StoryName) == "" {
		return fmt.Errorf("template %s: storyName is required", t.FileName)
	}
	if strings.TrimSpace(t.PlayerName) == "" {
		return fmt.Errorf("template %s: playerName is required", t.FileName)
	}
	switch t.Perspective {
	case "":
		t.Perspective = state.PerspectiveSecond
	case state.PerspectiveSecond, state.PerspectiveThird:
	default:
		return fmt.Errorf("template %s: unknown perspective %q", t.FileName, t.Perspective)
	}
	switch t.DestinyTier {
	case "":
		t.DestinyTier = state.DestinyBalanced
	case state.DestinyTranquil, state.DestinyBalanced, state.DestinyMerciless:
	default:
		return fmt.Errorf("template %s: unknown destiny tier %q", t.FileName, t.DestinyTier)
	}
	return nil
}

// WorldContext converts the template to the context stored on a new
// game state.
func (t *Template) WorldContext() state.WorldContext {
	return state.WorldContext{
		StoryName:            t.StoryName,
		PlayerName:           t.PlayerName,
		PlayerBio:            t.PlayerBio,
		Perspective:          t.Perspective,
		DestinyTier:          t.DestinyTier,
		CombatMode:           t.CombatMode,
		AllowNSFW:            t.AllowNSFW,
		WorldRules:           t.WorldRules,
		AttributeDefinitions: t.AttributeDefinitions,
	}
}

// NewGameState builds the starting state for this template, including
// opening scene, starting items, skill and NPCs.
func (t *Template) NewGameState() *state.GameState {
	gs := state.NewGameState(t.WorldContext())
	if t.OpeningScene != "" {
		gs.History = append(gs.History, state.GameTurn{StoryText: t.OpeningScene})
	}
	if len(t.StartingItems) > 0 {
		gs.Inventory = state.AddItems(nil, t.StartingItems)
	}
	if t.StartingSkill != nil {
		gs.PlayerSkills = []state.Skill{*t.StartingSkill}
	}
	for _, npc := range t.StartingNPCs {
		if npc.Level == 0 {
			npc.Level = 1
		}
		npc.CoreStats = state.ComputeInitialCoreStats(t.AttributeDefinitions)
		gs.NPCs = append(gs.NPCs, npc)
	}
	return gs
}

// Load reads and validates a single template file.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", filepath.Base(path), err)
	}
	t.FileName = filepath.Base(path)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadDir loads every .yaml/.yml template in a directory, sorted by
// file name. A directory with no templates is not an error.
func LoadDir(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read template dir: %w", err)
	}
	var out []*Template
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		t, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileName < out[j].FileName })
	return out, nil
}
