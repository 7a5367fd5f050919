package world

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tutienrpg/turn-engine/pkg/state"
)

const sampleTemplate = `storyName: "Phàm Nhân Tu Tiên"
playerName: "Hàn Lập"
playerBio: "Thiếu niên nghèo từ thôn nhỏ"
perspective: SECOND
destinyTier: MERCILESS
worldRules:
  - "Linh khí khan hiếm ở vùng biên"
attributes:
  - id: sinhLucToiDa
    baseValue: 100
  - id: congKich
    baseValue: 12
openingScene: "Gió lạnh thổi qua sơn cốc."
startingItems:
  - id: binh_thuoc
    name: "Bình Thuốc"
    quantity: 2
`

func writeTemplate(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write template: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeTemplate(t, "pham_nhan.yaml", sampleTemplate)

	tpl, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if tpl.StoryName != "Phàm Nhân Tu Tiên" || tpl.PlayerName != "Hàn Lập" {
		t.Errorf("Unexpected template: %+v", tpl)
	}
	if tpl.FileName != "pham_nhan.yaml" {
		t.Errorf("Expected file name set, got %q", tpl.FileName)
	}
	if tpl.DestinyTier != state.DestinyMerciless {
		t.Errorf("Expected MERCILESS, got %q", tpl.DestinyTier)
	}
	if len(tpl.AttributeDefinitions) != 2 {
		t.Errorf("Expected 2 attributes, got %d", len(tpl.AttributeDefinitions))
	}
}

func TestLoad_DefaultsEnums(t *testing.T) {
	path := writeTemplate(t, "minimal.yaml", "storyName: Test\nplayerName: A\n")

	tpl, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if tpl.Perspective != state.PerspectiveSecond {
		t.Errorf("Expected default SECOND perspective, got %q", tpl.Perspective)
	}
	if tpl.DestinyTier != state.DestinyBalanced {
		t.Errorf("Expected default BALANCED tier, got %q", tpl.DestinyTier)
	}
}

func TestLoad_RejectsMissingName(t *testing.T) {
	path := writeTemplate(t, "bad.yaml", "playerName: A\n")

	if _, err := Load(path); err == nil {
		t.Error("Expected error for missing storyName")
	}
}

func TestLoad_RejectsUnknownEnum(t *testing.T) {
	path := writeTemplate(t, "bad.yaml", "storyName: T\nplayerName: A\nperspective: FIRST\n")

	if _, err := Load(path); err == nil {
		t.Error("Expected error for unknown perspective")
	}
}

func TestNewGameState(t *testing.T) {
	path := writeTemplate(t, "pham_nhan.yaml", sampleTemplate)
	tpl, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	gs := tpl.NewGameState()

	if gs.CoreStats.SinhLuc != 100 || gs.CoreStats.SinhLucToiDa != 100 {
		t.Errorf("Expected derived resources 100/100, got %v/%v", gs.CoreStats.SinhLuc, gs.CoreStats.SinhLucToiDa)
	}
	if gs.CoreStats.CongKich != 12 {
		t.Errorf("Expected congKich 12, got %v", gs.CoreStats.CongKich)
	}
	if len(gs.History) != 1 || gs.History[0].StoryText != "Gió lạnh thổi qua sơn cốc." {
		t.Errorf("Expected opening scene in history, got %v", gs.History)
	}
	if len(gs.Inventory) != 1 || gs.Inventory[0].Quantity != 2 {
		t.Errorf("Expected starting items in inventory, got %v", gs.Inventory)
	}
	if gs.Cultivation.Level != 1 || gs.Cultivation.ExpToNextLevel != 100 {
		t.Errorf("Expected fresh cultivation track, got %+v", gs.Cultivation)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b_world.yaml": "storyName: B\nplayerName: P\n",
		"a_world.yml":  "storyName: A\nplayerName: P\n",
		"notes.txt":    "ignore me",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	templates, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("Expected 2 templates, got %d", len(templates))
	}
	if templates[0].StoryName != "A" || templates[1].StoryName != "B" {
		t.Errorf("Expected sorted order A,B, got %s,%s", templates[0].StoryName, templates[1].StoryName)
	}
}
