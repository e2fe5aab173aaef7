// Package translate converts transcripts to the target language through the
// configured LLM. Translation is the one recoverable stage of the pipeline:
// any failure falls back to the untranslated text instead of erroring.
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/talktotext/talktotext/internal/logger"
	"github.com/talktotext/talktotext/internal/provider"
)

// Long transcripts are translated in chunks; LLM output quality degrades on
// very large single prompts.
const chunkSize = 4500

const systemPrompt = "You are a professional translator. Reply with the translated text only, no commentary."

// Translator translates text with silent fallback.
type Translator struct {
	completer provider.Completer
	logger    logger.Logger
}

// New creates a Translator on the given completer.
func New(completer provider.Completer, log logger.Logger) *Translator {
	return &Translator{completer: completer, logger: log}
}

// Translate translates text from src to target. It never returns an error:
// if the completer fails (or none is configured) the original text is
// returned unchanged, so callers must not assume translation occurred.
func (t *Translator) Translate(ctx context.Context, text, src, target string) string {
	if text == "" || t.completer == nil {
		return text
	}

	if len(text) <= chunkSize {
		out, err := t.translateChunk(ctx, text, src, target)
		if err != nil {
			t.logger.Warn(ctx, "translation failed, keeping original text: %v", err)
			return text
		}
		return out
	}

	var parts []string
	for start := 0; start < len(text); start += chunkSize {
		end := start + chunkSize
		if end > len(text) {
			end = len(text)
		}
		out, err := t.translateChunk(ctx, text[start:end], src, target)
		if err != nil {
			t.logger.Warn(ctx, "translation failed at offset %d, keeping original text: %v", start, err)
			return text
		}
		parts = append(parts, out)
	}

	return strings.Join(parts, "\n")
}

func (t *Translator) translateChunk(ctx context.Context, chunk, src, target string) (string, error) {
	user := fmt.Sprintf("Translate the following text from %s to %s:\n\n%s", src, target, chunk)
	return t.completer.Complete(ctx, systemPrompt, user)
}
