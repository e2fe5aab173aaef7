package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/talktotext/talktotext/internal/logger"
)

var (
	_ Completer  = (*Gemini)(nil)
	_ Summarizer = (*Gemini)(nil)
)

// Gemini is a completion client for the Gemini API that rotates through the
// supplied API keys on quota errors. One client is shared by the translator
// and the summarizer across concurrent pipeline runs, so the key index is
// mutex-guarded.
type Gemini struct {
	apiKeys []string
	model   string
	logger  logger.Logger

	mu         sync.Mutex
	currentKey int
}

// NewGemini creates a Gemini client rotating through the given keys.
func NewGemini(apiKeys []string, model string, log logger.Logger) *Gemini {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Gemini{
		apiKeys: apiKeys,
		model:   model,
		logger:  log,
	}
}

// Complete sends one prompt. On 429/quota errors the next key is tried; any
// other failure is returned immediately.
func (g *Gemini) Complete(ctx context.Context, system, user string) (string, error) {
	prompt := user
	if system != "" {
		prompt = system + "\n\n" + user
	}

	attempts := len(g.apiKeys)
	var lastErr error

	for range attempts {
		key, keyIdx := g.key()

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			lastErr = fmt.Errorf("create client: %w", err)
			g.rotateKey()
			continue
		}

		result, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
		if err != nil {
			errMsg := err.Error()
			if strings.Contains(errMsg, "429") || strings.Contains(errMsg, "quota") || strings.Contains(errMsg, "RESOURCE_EXHAUSTED") {
				g.logger.Warn(ctx, "gemini key %d rate limited, rotating", keyIdx+1)
				g.rotateKey()
				lastErr = err
				continue
			}
			return "", &Error{Provider: "gemini", Message: errMsg}
		}

		if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
			var text string
			for _, part := range result.Candidates[0].Content.Parts {
				if part.Text != "" {
					text += part.Text
				}
			}
			return text, nil
		}

		return "", &Error{Provider: "gemini", Message: "empty response"}
	}

	return "", &Error{Provider: "gemini", Message: fmt.Sprintf("all API keys exhausted: %v", lastErr)}
}

// Summarize renders the fixed notes prompt and returns the response verbatim.
func (g *Gemini) Summarize(ctx context.Context, transcript string) (string, error) {
	return g.Complete(ctx, notesSystemPrompt, NotesPrompt(transcript))
}

// key returns the current API key and its index.
func (g *Gemini) key() (string, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.apiKeys[g.currentKey], g.currentKey
}

func (g *Gemini) rotateKey() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.currentKey = (g.currentKey + 1) % len(g.apiKeys)
}
