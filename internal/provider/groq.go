package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultGroqBaseURL = "https://api.groq.com/openai/v1/chat/completions"

var (
	_ Completer  = (*Groq)(nil)
	_ Summarizer = (*Groq)(nil)
)

// Groq is a chat-completions client for Groq's OpenAI-compatible API.
type Groq struct {
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
	http      *http.Client
}

// GroqConfig configures the client.
type GroqConfig struct {
	APIKey    string
	BaseURL   string // optional, defaults to the public endpoint
	Model     string // optional, defaults to llama-3.1-8b-instant
	MaxTokens int    // optional, defaults to 800
}

// NewGroq creates a Groq completion client.
func NewGroq(cfg GroqConfig) *Groq {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGroqBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "llama-3.1-8b-instant"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 800
	}

	return &Groq{
		apiKey:    cfg.APIKey,
		baseURL:   baseURL,
		model:     model,
		maxTokens: maxTokens,
		http:      &http.Client{Timeout: 60 * time.Second},
	}
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqRequest struct {
	Model     string        `json:"model"`
	Messages  []groqMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type groqResponse struct {
	Choices []struct {
		Message groqMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends one system+user exchange and returns the raw text response.
func (g *Groq) Complete(ctx context.Context, system, user string) (string, error) {
	reqBody := groqRequest{
		Model: g.model,
		Messages: []groqMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: g.maxTokens,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", &Error{Provider: "groq", Message: fmt.Sprintf("marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", &Error{Provider: "groq", Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return "", &Error{Provider: "groq", Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Provider: "groq", Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &Error{Provider: "groq", Status: resp.StatusCode, Message: string(body)}
	}

	var chatResp groqResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", &Error{Provider: "groq", Message: fmt.Sprintf("unmarshal response: %v", err)}
	}
	if len(chatResp.Choices) == 0 {
		return "", &Error{Provider: "groq", Message: "no choices"}
	}

	return chatResp.Choices[0].Message.Content, nil
}

// Summarize renders the fixed notes prompt and returns the response verbatim.
func (g *Groq) Summarize(ctx context.Context, transcript string) (string, error) {
	return g.Complete(ctx, notesSystemPrompt, NotesPrompt(transcript))
}
