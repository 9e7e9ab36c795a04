package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"path separators become dashes", "fast/4k", "fast-4k"},
		{"windows separators", "a\\b:c", "a-b-c"},
		{"unsafe characters removed", "what?<really>", "whatreally"},
		{"whitespace trimmed", "  archive  ", "archive"},
		{"empty input", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeFileName(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"mixed case with punctuation", "Fast 4K HDR!", "fast_4k_hdr"},
		{"passthrough", "x264-slow", "x264-slow"},
		{"empty input", "", "unknown"},
		{"symbols only", "!!!", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeToken(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
