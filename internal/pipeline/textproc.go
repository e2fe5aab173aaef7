package pipeline

import (
	"fmt"
	"strings"
)

// TransformError marks an unexpected failure in the clean/trim transforms.
type TransformError struct {
	Op     string
	Reason string
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s: %s", e.Op, e.Reason)
}

// Filler phrases removed from transcripts. Matching is case-sensitive and
// requires the surrounding spaces.
var fillerPhrases = []string{" um ", " uh ", " you know ", " like "}

// Clean removes filler phrases and collapses all whitespace runs (including
// newlines) to single spaces. Lossy: line structure does not survive. The
// removal runs to a fixpoint so Clean is idempotent.
func Clean(text string) string {
	if text == "" {
		return text
	}

	s := strings.Join(strings.Fields(text), " ")
	for {
		before := s
		for _, w := range fillerPhrases {
			s = strings.ReplaceAll(s, w, " ")
		}
		s = strings.Join(strings.Fields(s), " ")
		if s == before {
			return s
		}
	}
}

// Optimize trims text to approximately maxTokens using the chars/4 estimate.
// Under budget the text is returned unchanged. Over budget it is cut to the
// proportional character count (at least 200), backing up to the last
// sentence boundary when that boundary lies past the halfway mark of the cut,
// otherwise to the last line break, otherwise keeping the hard cut.
func Optimize(text string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		return "", &TransformError{Op: "optimize", Reason: fmt.Sprintf("invalid token budget %d", maxTokens)}
	}
	if text == "" {
		return text, nil
	}

	approxTokens := float64(len(text)) / 4.0
	if approxTokens <= float64(maxTokens) {
		return text, nil
	}

	ratio := float64(maxTokens) / approxTokens
	maxChars := int(float64(len(text)) * ratio)
	if maxChars < 200 {
		maxChars = 200
	}
	if maxChars >= len(text) {
		return text, nil
	}
	cut := text[:maxChars]

	lastDot := strings.LastIndex(cut, ".")
	if i := strings.LastIndex(cut, "!\n"); i > lastDot {
		lastDot = i
	}
	if i := strings.LastIndex(cut, "?\n"); i > lastDot {
		lastDot = i
	}
	if lastDot > maxChars/2 {
		return cut[:lastDot+1], nil
	}

	if lastNl := strings.LastIndex(cut, "\n"); lastNl > 0 {
		return cut[:lastNl], nil
	}

	return cut, nil
}
