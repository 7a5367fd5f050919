package turn

import (
	"errors"
	"testing"
)

const validResponse = `{
	"storyText": "Ngươi bước vào sơn môn.",
	"choices": ["Tiến lên", "Quay lại"],
	"summaryText": "Người chơi vào sơn môn.",
	"expGained": 10,
	"timeElapsed": 30
}`

func TestParseStrict(t *testing.T) {
	result, err := ParseStrict(validResponse)
	if err != nil {
		t.Fatalf("ParseStrict failed: %v", err)
	}
	if result.StoryText != "Ngươi bước vào sơn môn." {
		t.Errorf("Unexpected storyText: %q", result.StoryText)
	}
	if len(result.Choices) != 2 || result.ExpGained != 10 || result.TimeElapsed != 30 {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestParseStrict_StripsCodeFences(t *testing.T) {
	fenced := "```json\n" + validResponse + "\n```"

	result, err := ParseStrict(fenced)
	if err != nil {
		t.Fatalf("ParseStrict failed on fenced input: %v", err)
	}
	if result.SummaryText != "Người chơi vào sơn môn." {
		t.Errorf("Unexpected summaryText: %q", result.SummaryText)
	}
}

func TestParseStrict_StripsFenceRemnantsInStrings(t *testing.T) {
	raw := `{
		"storyText": "Ngươi bước đi.\n` + "```" + `",
		"choices": ["Tiến lên` + "```" + `"],
		"summaryText": "Đi tiếp.",
		"npcUpdates": [
			{"id": "lao_nhan", "action": "UPDATE", "payload": {"status": "ngồi thiền\n` + "```" + `"}}
		]
	}`

	result, err := ParseStrict(raw)
	if err != nil {
		t.Fatalf("ParseStrict failed: %v", err)
	}
	if result.StoryText != "Ngươi bước đi." {
		t.Errorf("Expected fence remnant stripped from storyText, got %q", result.StoryText)
	}
	if result.Choices[0] != "Tiến lên" {
		t.Errorf("Expected fence remnant stripped from choice, got %q", result.Choices[0])
	}
	if got := result.NPCUpdates[0].Payload.Status; got != "ngồi thiền" {
		t.Errorf("Expected fence remnant stripped from payload status, got %q", got)
	}
}

func TestParseStrict_FenceOnlyStoryTextRejected(t *testing.T) {
	raw := `{"storyText": "` + "```" + `", "choices": [], "summaryText": "s"}`

	if _, err := ParseStrict(raw); err == nil {
		t.Fatal("Expected error when storyText is only a fence remnant")
	}
}

func TestParseStrict_SkipsProsePrefix(t *testing.T) {
	prefixed := "Here is the turn result:\n" + validResponse

	if _, err := ParseStrict(prefixed); err != nil {
		t.Errorf("Expected prose prefix tolerated, got: %v", err)
	}
}

func TestParseStrict_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"no json", "The story continues..."},
		{"truncated", `{"storyText": "abc", "choi`},
		{"missing storyText", `{"choices": [], "summaryText": "s"}`},
		{"missing summaryText", `{"storyText": "s", "choices": []}`},
		{"missing choices", `{"storyText": "s", "summaryText": "s"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseStrict(tc.raw)
			if err == nil {
				t.Fatal("Expected error")
			}
			var malformed *MalformedResponseError
			if !errors.As(err, &malformed) {
				t.Fatalf("Expected MalformedResponseError, got %T", err)
			}
			if malformed.Raw != tc.raw {
				t.Error("Expected error to carry the raw output")
			}
		})
	}
}

func TestParseStrict_EmptyChoicesAllowed(t *testing.T) {
	raw := `{"storyText": "Kết thúc.", "choices": [], "summaryText": "Hết chuyện."}`

	result, err := ParseStrict(raw)
	if err != nil {
		t.Fatalf("ParseStrict failed: %v", err)
	}
	if result.Choices == nil || len(result.Choices) != 0 {
		t.Errorf("Expected present-but-empty choices, got %v", result.Choices)
	}
}

func TestPartialExtractor_Incremental(t *testing.T) {
	var p PartialExtractor

	p.Feed(`{"story`)
	if _, ok := p.StoryText(); ok {
		t.Error("Expected no storyText before the value opens")
	}

	p.Feed(`Text": "Gió thổi`)
	text, ok := p.StoryText()
	if !ok || text != "Gió thổi" {
		t.Errorf("Expected partial value %q, got %q (ok=%v)", "Gió thổi", text, ok)
	}

	p.Feed(` qua rừng trúc.", "choices": []`)
	text, ok = p.StoryText()
	if !ok || text != "Gió thổi qua rừng trúc." {
		t.Errorf("Expected full value, got %q (ok=%v)", text, ok)
	}
}

func TestPartialExtractor_DecodesEscapes(t *testing.T) {
	var p PartialExtractor
	p.Feed(`{"storyText": "Hàn nói: \"dừng lại\"\nRồi im lặng`)

	text, ok := p.StoryText()
	if !ok {
		t.Fatal("Expected storyText found")
	}
	want := "Hàn nói: \"dừng lại\"\nRồi im lặng"
	if text != want {
		t.Errorf("Expected %q, got %q", want, text)
	}
}

func TestPartialExtractor_EscapeCutOffMidStream(t *testing.T) {
	var p PartialExtractor
	p.Feed(`{"storyText": "abc\`)

	text, ok := p.StoryText()
	if !ok || text != "abc" {
		t.Errorf("Expected dangling escape dropped, got %q (ok=%v)", text, ok)
	}
}

func TestPartialExtractor_Reset(t *testing.T) {
	var p PartialExtractor
	p.Feed(`{"storyText": "first attempt"`)

	p.Reset()
	if _, ok := p.StoryText(); ok {
		t.Error("Expected empty extractor after Reset")
	}
	if p.Raw() != "" {
		t.Errorf("Expected empty raw buffer, got %q", p.Raw())
	}
}
