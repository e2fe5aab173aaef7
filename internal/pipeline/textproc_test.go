package pipeline

import (
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"no fillers", "hello world", "hello world"},
		{"single filler", "so um we decided", "so we decided"},
		{"repeated filler", "so um um um we decided", "so we decided"},
		{"multiple fillers", "it was uh you know a plan", "it was a plan"},
		{"case sensitive", "the Um token stays", "the Um token stays"},
		{"word boundary", "umbrella stays like-minded stays", "umbrella stays like-minded stays"},
		{"whitespace collapse", "a  b\t c\n\nd", "a b c d"},
		{"newline around filler", "we met\num\nyesterday", "we met yesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"so um um we decided you know like to ship",
		"a  b\nc um d",
		strings.Repeat("word um ", 50),
		"",
	}

	for _, in := range inputs {
		once := Clean(in)
		twice := Clean(once)
		if once != twice {
			t.Errorf("Clean not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestOptimizeUnderBudget(t *testing.T) {
	text := strings.Repeat("a", 400) // ~100 tokens
	got, err := Optimize(text, 3000)
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if got != text {
		t.Error("under-budget text must be returned unchanged")
	}
}

func TestOptimizeOverBudget(t *testing.T) {
	// ~2500 tokens of sentence-shaped text against a 1000-token budget.
	text := strings.Repeat("This is a sentence about the quarterly planning meeting. ", 180)
	got, err := Optimize(text, 1000)
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if len(got) >= len(text) {
		t.Errorf("len = %d, want shorter than %d", len(got), len(text))
	}
	// The heuristic is approximate; allow generous slack around 4*budget.
	if len(got) > 1000*4+200 {
		t.Errorf("len = %d, well over budget", len(got))
	}
	if !strings.HasSuffix(got, ".") {
		t.Errorf("cut should end at a sentence boundary, got ...%q", got[len(got)-20:])
	}
}

func TestOptimizeLineBreakFallback(t *testing.T) {
	// No sentence punctuation; line breaks only.
	line := strings.Repeat("x", 99) + "\n"
	text := strings.Repeat(line, 100)
	got, err := Optimize(text, 1000)
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	// 10000 chars at a 1000-token budget cut to 4000, then backed up past
	// the trailing newline of the 40th line.
	if len(got) != 3999 {
		t.Errorf("len = %d, want 3999", len(got))
	}
	if strings.HasSuffix(got, "\n") {
		t.Error("cut should not end with the line break itself")
	}
}

func TestOptimizeHardCut(t *testing.T) {
	text := strings.Repeat("y", 8000) // no boundaries at all
	got, err := Optimize(text, 1000)
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if len(got) != 4000 {
		t.Errorf("len = %d, want proportional hard cut 4000", len(got))
	}
}

func TestOptimizeShortTextMinimum(t *testing.T) {
	// Shorter than the 200-char floor: returned unchanged even over budget.
	text := strings.Repeat("z", 100)
	got, err := Optimize(text, 10)
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if got != text {
		t.Errorf("got %d chars, want input unchanged under the floor", len(got))
	}
}

func TestOptimizeInvalidBudget(t *testing.T) {
	for _, budget := range []int{0, -5} {
		_, err := Optimize("text", budget)
		if err == nil {
			t.Errorf("Optimize(_, %d) should error", budget)
		}
	}
}

func TestOptimizeEmpty(t *testing.T) {
	got, err := Optimize("", 100)
	if err != nil || got != "" {
		t.Errorf("Optimize(\"\") = %q, %v", got, err)
	}
}
