package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/tutienrpg/turn-engine/internal/services"
	"github.com/tutienrpg/turn-engine/pkg/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func testState() *state.GameState {
	return state.NewGameState(state.WorldContext{
		StoryName:   "Phàm Nhân Tu Tiên",
		PlayerName:  "Lý Hàn",
		Perspective: state.PerspectiveSecond,
		DestinyTier: state.DestinyBalanced,
		AttributeDefinitions: []state.AttributeDefinition{
			{ID: "sinhLucToiDa", BaseValue: 100},
			{ID: "theLucToiDa", BaseValue: 100},
		},
	})
}

const goodResponse = `{
	"storyText": "Ngươi luyện quyền dưới trăng.",
	"choices": ["Nghỉ ngơi", "Luyện tiếp"],
	"summaryText": "Luyện quyền suốt đêm.",
	"expGained": 120,
	"timeElapsed": 480,
	"coreStatsChanges": {"theLuc": -30},
	"playerStatChanges": {
		"statsToUpdate": [{"name": "Mệt mỏi", "stat": {"description": "Thiếu ngủ", "type": "BAD"}}]
	},
	"itemsReceived": [{"id": "da_linh", "name": "Đá linh", "quantity": 2}]
}`

func TestProcessTurn_AppliesResult(t *testing.T) {
	mock := services.NewMockLLM(goodResponse)
	e := New(mock, testLogger())
	gs := testState()

	next, result, err := e.ProcessTurn(context.Background(), gs, "luyện quyền", Options{})
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}

	if result.StoryText != "Ngươi luyện quyền dưới trăng." {
		t.Errorf("Unexpected storyText: %q", result.StoryText)
	}
	if next.TurnCount != 1 || len(next.History) != 1 {
		t.Errorf("Expected one recorded turn, got count=%d len=%d", next.TurnCount, len(next.History))
	}
	if next.History[0].PlayerAction != "luyện quyền" {
		t.Errorf("Expected player action recorded, got %q", next.History[0].PlayerAction)
	}

	// Exp 120 over threshold 100: level 2, 20 exp toward 150
	if next.Cultivation.Level != 2 || next.Cultivation.Exp != 20 || next.Cultivation.ExpToNextLevel != 150 {
		t.Errorf("Unexpected cultivation: %+v", next.Cultivation)
	}

	if next.CoreStats.TheLuc != 70 {
		t.Errorf("Expected theLuc 70 after -30 delta, got %v", next.CoreStats.TheLuc)
	}
	if _, ok := next.PlayerStats["Mệt mỏi"]; !ok {
		t.Error("Expected stat ledger entry applied")
	}
	if len(next.Inventory) != 1 || next.Inventory[0].Quantity != 2 {
		t.Errorf("Expected items received, got %v", next.Inventory)
	}

	// 480 minutes from 08:00 day 1
	if next.Time.Day != 1 || next.Time.Hour != 16 {
		t.Errorf("Expected day 1 16:00, got day %d %02d:00", next.Time.Day, next.Time.Hour)
	}

	if len(next.Chronicle) != 1 || next.Chronicle[0].Summary != "Luyện quyền suốt đêm." {
		t.Errorf("Expected chronicle entry, got %v", next.Chronicle)
	}
	if len(next.Chronicle[0].Embedding) == 0 {
		t.Error("Expected best-effort embedding attached")
	}

	// The committed snapshot is untouched
	if gs.TurnCount != 0 || len(gs.History) != 0 || gs.Cultivation.Level != 1 {
		t.Error("ProcessTurn mutated its input state")
	}
}

func TestProcessTurn_RetriesMalformedExactlyThreeTimes(t *testing.T) {
	mock := services.NewMockLLM("this is not json")
	e := New(mock, testLogger())

	_, _, err := e.ProcessTurn(context.Background(), testState(), "nhìn quanh", Options{})
	if err == nil {
		t.Fatal("Expected error for persistent malformed output")
	}
	if mock.CallCount() != 3 {
		t.Errorf("Expected exactly 3 model calls, got %d", mock.CallCount())
	}

	var turnErr *TurnError
	if !errors.As(err, &turnErr) {
		t.Fatalf("Expected TurnError, got %T", err)
	}
	if turnErr.RawOutput != "this is not json" {
		t.Errorf("Expected raw output carried, got %q", turnErr.RawOutput)
	}
}

func TestProcessTurn_RecoversOnRetry(t *testing.T) {
	mock := services.NewMockLLM("garbage", goodResponse)
	e := New(mock, testLogger())

	next, _, err := e.ProcessTurn(context.Background(), testState(), "luyện quyền", Options{})
	if err != nil {
		t.Fatalf("Expected recovery on second attempt, got %v", err)
	}
	if mock.CallCount() != 2 {
		t.Errorf("Expected 2 calls, got %d", mock.CallCount())
	}
	if next.TurnCount != 1 {
		t.Errorf("Expected turn applied, got count %d", next.TurnCount)
	}

	// The correction prompt must carry the bad output back to the model
	second := mock.ChatCalls[1].Messages
	last := second[len(second)-1]
	if !strings.Contains(last.Content, "garbage") {
		t.Errorf("Expected correction prompt with raw output, got %q", last.Content)
	}
}

func TestProcessTurn_TransportErrorNotRetried(t *testing.T) {
	mock := services.NewMockLLM()
	mock.SetChatError(errors.New("connection refused"))
	e := New(mock, testLogger())

	_, _, err := e.ProcessTurn(context.Background(), testState(), "x", Options{})
	if err == nil {
		t.Fatal("Expected error")
	}
	if mock.CallCount() != 1 {
		t.Errorf("Expected a single call for a transport failure, got %d", mock.CallCount())
	}
}

func TestProcessTurn_StreamsPartialNarrative(t *testing.T) {
	mock := services.NewMockLLM(goodResponse)
	e := New(mock, testLogger())

	var partials []string
	_, _, err := e.ProcessTurn(context.Background(), testState(), "luyện quyền", Options{
		OnPartial: func(text string) { partials = append(partials, text) },
	})
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}

	if len(partials) == 0 {
		t.Fatal("Expected partial narrative callbacks")
	}
	final := partials[len(partials)-1]
	if final != "Ngươi luyện quyền dưới trăng." {
		t.Errorf("Expected final partial to be the full narration, got %q", final)
	}
	for i := 1; i < len(partials); i++ {
		if len(partials[i]) < len(partials[i-1]) {
			t.Error("Expected partial narrative to only grow")
		}
	}
}

func TestProcessTurn_Rewrite(t *testing.T) {
	mock := services.NewMockLLM(goodResponse, `{
		"storyText": "Một hướng đi khác.",
		"choices": ["Tiếp tục"],
		"summaryText": "Câu chuyện rẽ hướng.",
		"expGained": 50
	}`)
	e := New(mock, testLogger())
	gs := testState()

	first, _, err := e.ProcessTurn(context.Background(), gs, "luyện quyền", Options{})
	if err != nil {
		t.Fatalf("First turn failed: %v", err)
	}

	second, _, err := e.ProcessTurn(context.Background(), first, "luyện quyền", Options{Rewrite: true})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	if second.TurnCount != first.TurnCount {
		t.Errorf("Expected turn count unchanged on rewrite, got %d", second.TurnCount)
	}
	if len(second.History) != len(first.History) {
		t.Errorf("Expected history length unchanged, got %d", len(second.History))
	}
	if second.History[len(second.History)-1].StoryText != "Một hướng đi khác." {
		t.Error("Expected last turn replaced")
	}
	if len(second.Chronicle) != len(first.Chronicle) {
		t.Error("Expected no new chronicle entry on rewrite")
	}
	// Numeric effects of the rewrite still land
	if second.Cultivation.Exp != first.Cultivation.Exp+50 {
		t.Errorf("Expected rewrite exp applied, got %d", second.Cultivation.Exp)
	}
}

func TestProcessTurn_RewriteWithEmptyHistoryRejected(t *testing.T) {
	e := New(services.NewMockLLM(goodResponse), testLogger())

	_, _, err := e.ProcessTurn(context.Background(), testState(), "x", Options{Rewrite: true})
	if err == nil {
		t.Error("Expected error rewriting with no history")
	}
}

func TestProcessTurn_NPCUpdatesAndEnrichment(t *testing.T) {
	npcResponse := `{
		"storyText": "Một lão nhân xuất hiện.",
		"choices": ["Chào hỏi"],
		"summaryText": "Gặp lão nhân.",
		"npcUpdates": [
			{"id": "lao_nhan", "action": "CREATE", "payload": {"name": "Lão Nhân", "status": "đứng chắn đường"}}
		]
	}`
	mock := services.NewMockLLM(
		npcResponse,
		"id: lao_nhan | status: ngồi xuống tảng đá | summary: chặn đường hỏi chuyện ngươi",
	)
	e := New(mock, testLogger())

	next, _, err := e.ProcessTurn(context.Background(), testState(), "đi tiếp", Options{})
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}

	npc, ok := next.NPCByID("lao_nhan")
	if !ok {
		t.Fatal("Expected NPC created")
	}
	if npc.CoreStats.SinhLucToiDa != 100 {
		t.Errorf("Expected NPC core stats from attributes, got %v", npc.CoreStats.SinhLucToiDa)
	}
	if len(next.PresentNPCIDs) != 1 || next.PresentNPCIDs[0] != "lao_nhan" {
		t.Errorf("Expected NPC marked present, got %v", next.PresentNPCIDs)
	}

	// Enrichment was a second call. Its flavor only fills fields the
	// turn left blank: the declared status stands, the summary lands.
	if mock.CallCount() != 2 {
		t.Fatalf("Expected stream + enrichment calls, got %d", mock.CallCount())
	}
	if npc.Status != "đứng chắn đường" {
		t.Errorf("Expected declared status kept over enrichment, got %q", npc.Status)
	}
	if npc.LastInteractionSummary != "chặn đường hỏi chuyện ngươi" {
		t.Errorf("Expected enrichment summary on the NPC, got %q", npc.LastInteractionSummary)
	}
}

func TestProcessTurn_EnrichmentFillsUndeclaredStatus(t *testing.T) {
	npcResponse := `{
		"storyText": "Một lão nhân xuất hiện.",
		"choices": ["Chào hỏi"],
		"summaryText": "Gặp lão nhân.",
		"npcUpdates": [
			{"id": "lao_nhan", "action": "CREATE", "payload": {"name": "Lão Nhân"}}
		]
	}`
	mock := services.NewMockLLM(
		npcResponse,
		"id: lao_nhan | status: ngồi xuống tảng đá",
	)
	e := New(mock, testLogger())

	next, _, err := e.ProcessTurn(context.Background(), testState(), "đi tiếp", Options{})
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}

	npc, ok := next.NPCByID("lao_nhan")
	if !ok {
		t.Fatal("Expected NPC created")
	}
	if npc.Status != "ngồi xuống tảng đá" {
		t.Errorf("Expected enrichment to fill the blank status, got %q", npc.Status)
	}
}

func TestProcessTurn_EmbeddingFailureIsNotFatal(t *testing.T) {
	mock := services.NewMockLLM(goodResponse)
	mock.SetEmbedError(errors.New("quota exceeded"))
	e := New(mock, testLogger())

	next, _, err := e.ProcessTurn(context.Background(), testState(), "luyện quyền", Options{})
	if err != nil {
		t.Fatalf("Expected turn to succeed despite embedding failure, got %v", err)
	}
	if len(next.Chronicle) != 1 || next.Chronicle[0].Embedding != nil {
		t.Errorf("Expected chronicle entry with nil embedding, got %v", next.Chronicle)
	}
}

func TestProcessTurn_CombatTransitions(t *testing.T) {
	start := `{
		"storyText": "Yêu lang lao tới!",
		"choices": ["Đánh trả"],
		"summaryText": "Bị yêu lang tấn công.",
		"npcUpdates": [{"id": "yeu_lang", "action": "CREATE", "payload": {"name": "Yêu Lang"}}],
		"isInCombat": true,
		"combatantNpcIds": ["yeu_lang"]
	}`
	end := `{
		"storyText": "Yêu lang gục ngã.",
		"choices": ["Thu dọn"],
		"summaryText": "Hạ gục yêu lang.",
		"isInCombat": false
	}`
	mock := services.NewMockLLM(start, "garbage-enrichment-ignored", end)
	e := New(mock, testLogger())

	next, _, err := e.ProcessTurn(context.Background(), testState(), "đi săn", Options{})
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if !next.IsInCombat || len(next.Combatants) != 1 {
		t.Errorf("Expected combat started, got inCombat=%v combatants=%v", next.IsInCombat, next.Combatants)
	}

	after, _, err := e.ProcessTurn(context.Background(), next, "kết liễu", Options{})
	if err != nil {
		t.Fatalf("Second turn failed: %v", err)
	}
	if after.IsInCombat || after.Combatants != nil {
		t.Errorf("Expected combat ended, got inCombat=%v combatants=%v", after.IsInCombat, after.Combatants)
	}
}

func TestProcessTurn_EmptyActionRejected(t *testing.T) {
	e := New(services.NewMockLLM(goodResponse), testLogger())

	if _, _, err := e.ProcessTurn(context.Background(), testState(), "   ", Options{}); err == nil {
		t.Error("Expected error for empty action")
	}
}

