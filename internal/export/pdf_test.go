package export

import (
	"bytes"
	"testing"

	"github.com/tutienrpg/turn-engine/pkg/state"
)

func TestTranscriptPDF_Write(t *testing.T) {
	gs := state.NewGameState(state.WorldContext{
		StoryName:  "Phàm Nhân Tu Tiên",
		PlayerName: "Lý Hàn",
	})
	gs.History = []state.GameTurn{
		{StoryText: "Mở đầu câu chuyện."},
		{PlayerAction: "nhìn quanh", StoryText: "Ngươi thấy một sơn cốc.", StatusNarration: "Ngươi vẫn khỏe mạnh."},
	}
	gs.TurnCount = 1

	var buf bytes.Buffer
	exporter := &TranscriptPDF{}
	if err := exporter.Write(&buf, gs); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if buf.Len() == 0 {
		t.Fatal("Expected PDF output")
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Errorf("Expected PDF header, got %q", buf.Bytes()[:8])
	}
}

func TestTranscriptPDF_EmptyHistory(t *testing.T) {
	gs := state.NewGameState(state.WorldContext{StoryName: "Test", PlayerName: "A"})

	var buf bytes.Buffer
	exporter := &TranscriptPDF{}
	if err := exporter.Write(&buf, gs); err != nil {
		t.Fatalf("Write failed for empty history: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("Expected PDF output even with no turns")
	}
}
