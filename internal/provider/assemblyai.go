package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/talktotext/talktotext/internal/backoff"
	"github.com/talktotext/talktotext/internal/logger"
)

const defaultAssemblyAIBaseURL = "https://api.assemblyai.com/v2"

var _ Transcriber = (*AssemblyAI)(nil)

// AssemblyAI implements Transcriber against the AssemblyAI REST API.
// Transcription is two-phase: submit the audio and poll the returned handle
// until it reports completed or error. The poll loop is bounded by a
// wall-clock deadline and checks ctx every iteration.
type AssemblyAI struct {
	apiKey      string
	baseURL     string
	http        *http.Client
	delay       backoff.Strategy
	pollTimeout time.Duration
	logger      logger.Logger
}

// AssemblyAIConfig configures the client.
type AssemblyAIConfig struct {
	APIKey       string
	BaseURL      string        // optional, defaults to the public API
	PollInterval time.Duration // optional, defaults to 2s
	PollTimeout  time.Duration // optional, defaults to 10m
}

// NewAssemblyAI creates an AssemblyAI transcription client.
func NewAssemblyAI(cfg AssemblyAIConfig, log logger.Logger) *AssemblyAI {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAssemblyAIBaseURL
	}
	interval := cfg.PollInterval
	if interval == 0 {
		interval = 2 * time.Second
	}
	timeout := cfg.PollTimeout
	if timeout == 0 {
		timeout = 10 * time.Minute
	}

	return &AssemblyAI{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		http:        &http.Client{Timeout: 120 * time.Second},
		delay:       backoff.NewConstant(interval),
		pollTimeout: timeout,
		logger:      log,
	}
}

type aaiUploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type aaiSubmitRequest struct {
	AudioURL          string `json:"audio_url"`
	LanguageDetection bool   `json:"language_detection,omitempty"`
	LanguageCode      string `json:"language_code,omitempty"`
}

type aaiTranscript struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Text         string `json:"text"`
	LanguageCode string `json:"language_code"`
	Error        string `json:"error"`
}

// Transcribe uploads the audio if it is a local file, submits a transcription
// request and polls until a terminal state. languageHint "auto" (or empty)
// enables language detection; any other value is forwarded as the language
// code.
func (a *AssemblyAI) Transcribe(ctx context.Context, audioRef, languageHint string) (string, string, error) {
	audioURL := audioRef
	if !strings.HasPrefix(audioRef, "http://") && !strings.HasPrefix(audioRef, "https://") {
		uploaded, err := a.upload(ctx, audioRef)
		if err != nil {
			return "", "", err
		}
		audioURL = uploaded
	}

	id, err := a.submit(ctx, audioURL, languageHint)
	if err != nil {
		return "", "", err
	}

	return a.poll(ctx, id)
}

func (a *AssemblyAI) upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &Error{Provider: "assemblyai", Message: fmt.Sprintf("open audio %s: %v", path, err)}
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/upload", f)
	if err != nil {
		return "", &Error{Provider: "assemblyai", Message: err.Error()}
	}
	req.Header.Set("authorization", a.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var out aaiUploadResponse
	if err := a.do(req, &out); err != nil {
		return "", err
	}
	return out.UploadURL, nil
}

func (a *AssemblyAI) submit(ctx context.Context, audioURL, languageHint string) (string, error) {
	body := aaiSubmitRequest{AudioURL: audioURL}
	if languageHint == "" || languageHint == "auto" {
		body.LanguageDetection = true
	} else {
		body.LanguageCode = languageHint
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", &Error{Provider: "assemblyai", Message: fmt.Sprintf("marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/transcript", bytes.NewReader(jsonBody))
	if err != nil {
		return "", &Error{Provider: "assemblyai", Message: err.Error()}
	}
	req.Header.Set("authorization", a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var out aaiTranscript
	if err := a.do(req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// poll waits for the transcript to reach a terminal state. Hitting the
// deadline is a provider error, not a silent truncation.
func (a *AssemblyAI) poll(ctx context.Context, id string) (string, string, error) {
	deadline := time.Now().Add(a.pollTimeout)

	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/transcript/"+id, nil)
		if err != nil {
			return "", "", &Error{Provider: "assemblyai", Message: err.Error()}
		}
		req.Header.Set("authorization", a.apiKey)

		var t aaiTranscript
		if err := a.do(req, &t); err != nil {
			return "", "", err
		}

		switch t.Status {
		case "completed":
			lang := t.LanguageCode
			if lang == "" {
				lang = "auto"
			}
			return t.Text, lang, nil
		case "error":
			return "", "", &Error{Provider: "assemblyai", Message: t.Error}
		}

		if time.Now().After(deadline) {
			return "", "", &Error{
				Provider: "assemblyai",
				Message:  fmt.Sprintf("transcript %s still %s after %s", id, t.Status, a.pollTimeout),
			}
		}

		a.logger.Debug(ctx, "transcript %s status %s, waiting", id, t.Status)

		timer := time.NewTimer(a.delay.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", "", ctx.Err()
		case <-timer.C:
		}
	}
}

func (a *AssemblyAI) do(req *http.Request, out any) error {
	resp, err := a.http.Do(req)
	if err != nil {
		return &Error{Provider: "assemblyai", Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Provider: "assemblyai", Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Provider: "assemblyai", Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Provider: "assemblyai", Message: fmt.Sprintf("unmarshal response: %v", err)}
	}
	return nil
}
