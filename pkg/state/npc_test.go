package state

import (
	"encoding/json"
	"testing"
)

func TestApplyNPCUpdates_CreateIsFirstWriterWins(t *testing.T) {
	updates := []NPCUpdate{
		{ID: "lao_ma", Action: NPCCreate, Payload: &NPCPayload{Name: "Lão Mã", Personality: "cẩn trọng"}},
		{ID: "lao_ma", Action: NPCCreate, Payload: &NPCPayload{Name: "Kẻ Mạo Danh"}},
	}

	npcs := ApplyNPCUpdates(nil, updates, nil)

	if len(npcs) != 1 {
		t.Fatalf("Expected 1 NPC, got %d", len(npcs))
	}
	if npcs[0].Name != "Lão Mã" {
		t.Errorf("Expected first CREATE to win, got name %q", npcs[0].Name)
	}
	if npcs[0].Level != 1 {
		t.Errorf("Expected default level 1, got %d", npcs[0].Level)
	}
}

func TestApplyNPCUpdates_CreateDefaultsFromAttributes(t *testing.T) {
	attrs := []AttributeDefinition{{ID: "sinhLucToiDa", BaseValue: 80}}

	npcs := ApplyNPCUpdates(nil, []NPCUpdate{
		{ID: "tieu_nhi", Action: NPCCreate, Payload: &NPCPayload{
			Name:  "Tiểu Nhị",
			Stats: []NamedStat{{Name: "Say rượu", Stat: CharacterStat{Type: StatBad}}},
		}},
	}, attrs)

	if len(npcs) != 1 {
		t.Fatalf("Expected 1 NPC, got %d", len(npcs))
	}
	npc := npcs[0]
	if npc.CoreStats.SinhLuc != 80 || npc.CoreStats.SinhLucToiDa != 80 {
		t.Errorf("Expected derived core stats 80/80, got %v/%v", npc.CoreStats.SinhLuc, npc.CoreStats.SinhLucToiDa)
	}
	if _, ok := npc.Stats["Say rượu"]; !ok {
		t.Errorf("Expected payload stat array converted to ledger map, got %v", npc.Stats)
	}
}

func TestApplyNPCUpdates_UpdateStatMergeIsAdditive(t *testing.T) {
	npcs := []NPC{{
		ID:    "dao_si",
		Name:  "Đạo Sĩ",
		Stats: map[string]CharacterStat{"a": {Description: "1"}},
	}}

	result := ApplyNPCUpdates(npcs, []NPCUpdate{
		{ID: "dao_si", Action: NPCModify, Payload: &NPCPayload{
			Stats: []NamedStat{{Name: "b", Stat: CharacterStat{Description: "2"}}},
		}},
	}, nil)

	got := result[0].Stats
	if len(got) != 2 {
		t.Fatalf("Expected merged stats {a, b}, got %v", got)
	}
	if got["a"].Description != "1" || got["b"].Description != "2" {
		t.Errorf("Expected existing keys preserved, got %v", got)
	}
	// Input roster untouched
	if len(npcs[0].Stats) != 1 {
		t.Error("ApplyNPCUpdates mutated its input")
	}
}

func TestApplyNPCUpdates_UpdateUnknownIDIsNoop(t *testing.T) {
	npcs := []NPC{{ID: "a", Name: "A"}}

	result := ApplyNPCUpdates(npcs, []NPCUpdate{
		{ID: "hallucinated", Action: NPCModify, Payload: &NPCPayload{Name: "Ghost"}},
	}, nil)

	if len(result) != 1 || result[0].Name != "A" {
		t.Errorf("Expected roster unchanged, got %v", result)
	}
}

func TestApplyNPCUpdates_DeleteMissingIsNoop(t *testing.T) {
	npcs := []NPC{{ID: "a"}, {ID: "b"}}

	result := ApplyNPCUpdates(npcs, []NPCUpdate{
		{ID: "ghost", Action: NPCDelete},
	}, nil)

	if len(result) != 2 {
		t.Errorf("Expected roster unchanged, got %d NPCs", len(result))
	}
}

func TestApplyNPCUpdates_LaterUpdateSeesEarlierCreate(t *testing.T) {
	result := ApplyNPCUpdates(nil, []NPCUpdate{
		{ID: "x", Action: NPCCreate, Payload: &NPCPayload{Name: "X"}},
		{ID: "x", Action: NPCModify, Payload: &NPCPayload{Status: "bị thương"}},
	}, nil)

	if len(result) != 1 {
		t.Fatalf("Expected 1 NPC, got %d", len(result))
	}
	if result[0].Status != "bị thương" {
		t.Errorf("Expected UPDATE in the same batch to apply, got %+v", result[0])
	}
}

func TestNPCPayload_ToleratesMalformedFields(t *testing.T) {
	raw := `{"name": "Hắc Y Nhân", "level": "not-a-number", "stats": {"bad": "shape"}, "status": "rình rập"}`

	var p NPCPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("Expected best-effort decode, got error: %v", err)
	}
	if p.Name != "Hắc Y Nhân" || p.Status != "rình rập" {
		t.Errorf("Expected well-formed fields kept, got %+v", p)
	}
	if p.Level != 0 || p.Stats != nil {
		t.Errorf("Expected malformed fields treated as absent, got %+v", p)
	}
}
