package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tutienrpg/turn-engine/pkg/state"
	"github.com/tutienrpg/turn-engine/pkg/world"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <world.yaml> [world.yaml ...]\n", os.Args[0])
		os.Exit(1)
	}

	failed := false
	for _, filename := range os.Args[1:] {
		validator := &TemplateValidator{}
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("%s is valid\n", filename)
	}
	if failed {
		os.Exit(1)
	}
}

type TemplateValidator struct {
	errors []string
}

func (v *TemplateValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	ext := filepath.Ext(baseName)
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("world file must have .yaml or .yml extension: %s", baseName)
	}
	if !isValidFilename(strings.TrimSuffix(baseName, ext)) {
		return fmt.Errorf("world filename '%s' must be lowercase snake_case (e.g., my_world.yaml)", baseName)
	}

	t, err := world.Load(filename)
	if err != nil {
		return err
	}

	v.errors = nil
	v.validateTemplate(t)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *TemplateValidator) validateTemplate(t *world.Template) {
	var probe state.CharacterCoreStats
	seen := make(map[string]bool)
	for _, def := range t.AttributeDefinitions {
		if probe.Field(def.ID) == nil {
			v.addError(fmt.Sprintf("attribute '%s' is not a known core stat", def.ID))
		}
		if seen[def.ID] {
			v.addError(fmt.Sprintf("attribute '%s' is defined more than once", def.ID))
		}
		seen[def.ID] = true
		if def.BaseValue < 0 {
			v.addError(fmt.Sprintf("attribute '%s' has negative base value %v", def.ID, def.BaseValue))
		}
	}

	for _, item := range t.StartingItems {
		v.validateIDFormat("starting item ID", item.ID)
		if item.Name == "" {
			v.addError(fmt.Sprintf("starting item '%s' has no name", item.ID))
		}
		if item.Quantity < 0 {
			v.addError(fmt.Sprintf("starting item '%s' has negative quantity", item.ID))
		}
	}

	if t.StartingSkill != nil {
		v.validateIDFormat("starting skill ID", t.StartingSkill.ID)
		if t.StartingSkill.Name == "" {
			v.addError("starting skill has no name")
		}
	}

	npcIDs := make(map[string]bool)
	for _, npc := range t.StartingNPCs {
		v.validateIDFormat("NPC ID", npc.ID)
		if npc.Name == "" {
			v.addError(fmt.Sprintf("NPC '%s' has no name", npc.ID))
		}
		if npcIDs[npc.ID] {
			v.addError(fmt.Sprintf("NPC '%s' is defined more than once", npc.ID))
		}
		npcIDs[npc.ID] = true
		for _, skill := range npc.Skills {
			v.validateIDFormat("NPC skill ID", skill.ID)
		}
	}

	if t.OpeningScene == "" {
		v.addError("openingScene is empty; new stories will start with no narration")
	}
}

func (v *TemplateValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		v.addError(fmt.Sprintf("%s is empty", fieldName))
		return
	}
	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *TemplateValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var (
	validIDRegex       = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func isValidFilename(name string) bool {
	return validFilenameRegex.MatchString(name)
}
