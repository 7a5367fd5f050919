package textfilter

import "testing"

func TestFilter_Clean(t *testing.T) {
	f := New()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple replacement",
			input:    "You little bastard!",
			expected: "You little scoundrel!",
		},
		{
			name:     "case preservation - uppercase",
			input:    "SHIT, they found us",
			expected: "CRAP, they found us",
		},
		{
			name:     "case preservation - title case",
			input:    "Bastard son of the clan",
			expected: "Scoundrel son of the clan",
		},
		{
			name:     "word boundaries respected",
			input:    "the cockerel crowed at dawn",
			expected: "the cockerel crowed at dawn",
		},
		{
			name:     "vietnamese profanity censored",
			input:    "Hắn chửi: đồ chó má!",
			expected: "Hắn chửi: đồ khốn kiếp!",
		},
		{
			name:     "consecutive vietnamese occurrences",
			input:    "Hắn gào lên: địt địt địt!",
			expected: "Hắn gào lên: [censored] [censored] [censored]!",
		},
		{
			name:     "clean text untouched",
			input:    "Gió thổi qua rừng trúc.",
			expected: "Gió thổi qua rừng trúc.",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := f.Clean(tc.input); got != tc.expected {
				t.Errorf("Clean(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestFilter_Contains(t *testing.T) {
	f := New()

	if !f.Contains("what the fuck") {
		t.Error("Expected profanity detected")
	}
	if f.Contains("một ngày bình yên") {
		t.Error("Expected clean text to pass")
	}
}
