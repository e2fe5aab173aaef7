package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/talktotext/talktotext/internal/logger"
)

// fakeAAI serves the AssemblyAI upload/submit/poll protocol. pollStatuses is
// consumed one status per poll; the last entry repeats.
type fakeAAI struct {
	polls        atomic.Int64
	pollStatuses []aaiTranscript
	gotSubmit    aaiSubmitRequest
}

func (f *fakeAAI) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(aaiUploadResponse{UploadURL: "https://cdn.example/audio/abc"})
	})
	mux.HandleFunc("POST /transcript", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&f.gotSubmit); err != nil {
			t.Errorf("decode submit: %v", err)
		}
		json.NewEncoder(w).Encode(aaiTranscript{ID: "tr-1", Status: "queued"})
	})
	mux.HandleFunc("GET /transcript/tr-1", func(w http.ResponseWriter, r *http.Request) {
		i := int(f.polls.Add(1)) - 1
		if i >= len(f.pollStatuses) {
			i = len(f.pollStatuses) - 1
		}
		json.NewEncoder(w).Encode(f.pollStatuses[i])
	})

	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, baseURL string) *AssemblyAI {
	t.Helper()
	return NewAssemblyAI(AssemblyAIConfig{
		APIKey:       "test-key",
		BaseURL:      baseURL,
		PollInterval: time.Millisecond,
		PollTimeout:  time.Second,
	}, logger.New("error"))
}

func tempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(path, []byte("not really audio"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscribeCompleted(t *testing.T) {
	fake := &fakeAAI{pollStatuses: []aaiTranscript{
		{ID: "tr-1", Status: "processing"},
		{ID: "tr-1", Status: "completed", Text: "hello world", LanguageCode: "hi"},
	}}
	srv := fake.server(t)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	text, lang, err := client.Transcribe(context.Background(), tempAudio(t), "auto")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q", text)
	}
	if lang != "hi" {
		t.Errorf("lang = %q, want hi", lang)
	}
	if !fake.gotSubmit.LanguageDetection {
		t.Error("auto hint should enable language_detection")
	}
	if fake.gotSubmit.LanguageCode != "" {
		t.Errorf("language_code = %q, want empty with auto hint", fake.gotSubmit.LanguageCode)
	}
}

func TestTranscribeLanguageHintForwarded(t *testing.T) {
	fake := &fakeAAI{pollStatuses: []aaiTranscript{
		{ID: "tr-1", Status: "completed", Text: "bonjour", LanguageCode: "fr"},
	}}
	srv := fake.server(t)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	if _, _, err := client.Transcribe(context.Background(), tempAudio(t), "fr"); err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if fake.gotSubmit.LanguageCode != "fr" {
		t.Errorf("language_code = %q, want fr", fake.gotSubmit.LanguageCode)
	}
	if fake.gotSubmit.LanguageDetection {
		t.Error("explicit hint should not enable language_detection")
	}
}

func TestTranscribeRemoteURLSkipsUpload(t *testing.T) {
	fake := &fakeAAI{pollStatuses: []aaiTranscript{
		{ID: "tr-1", Status: "completed", Text: "ok", LanguageCode: "en"},
	}}
	srv := fake.server(t)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	if _, _, err := client.Transcribe(context.Background(), "https://recordings.example/m.mp4", "auto"); err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if fake.gotSubmit.AudioURL != "https://recordings.example/m.mp4" {
		t.Errorf("audio_url = %q, want the remote URL verbatim", fake.gotSubmit.AudioURL)
	}
}

func TestTranscribeErrorState(t *testing.T) {
	fake := &fakeAAI{pollStatuses: []aaiTranscript{
		{ID: "tr-1", Status: "error", Error: "audio too short"},
	}}
	srv := fake.server(t)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, _, err := client.Transcribe(context.Background(), tempAudio(t), "auto")

	var provErr *Error
	if !errors.As(err, &provErr) {
		t.Fatalf("error = %v, want *provider.Error", err)
	}
	if provErr.Message != "audio too short" {
		t.Errorf("Message = %q", provErr.Message)
	}
}

func TestTranscribePollDeadline(t *testing.T) {
	fake := &fakeAAI{pollStatuses: []aaiTranscript{
		{ID: "tr-1", Status: "processing"},
	}}
	srv := fake.server(t)
	defer srv.Close()

	client := NewAssemblyAI(AssemblyAIConfig{
		APIKey:       "test-key",
		BaseURL:      srv.URL,
		PollInterval: time.Millisecond,
		PollTimeout:  20 * time.Millisecond,
	}, logger.New("error"))

	_, _, err := client.Transcribe(context.Background(), tempAudio(t), "auto")
	var provErr *Error
	if !errors.As(err, &provErr) {
		t.Fatalf("error = %v, want *provider.Error on deadline", err)
	}
}

func TestTranscribeCancelled(t *testing.T) {
	fake := &fakeAAI{pollStatuses: []aaiTranscript{
		{ID: "tr-1", Status: "processing"},
	}}
	srv := fake.server(t)
	defer srv.Close()

	client := NewAssemblyAI(AssemblyAIConfig{
		APIKey:       "test-key",
		BaseURL:      srv.URL,
		PollInterval: time.Hour, // cancellation must fire inside the wait
		PollTimeout:  time.Hour,
	}, logger.New("error"))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, _, err := client.Transcribe(ctx, tempAudio(t), "auto")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestTranscribeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, _, err := client.Transcribe(context.Background(), tempAudio(t), "auto")

	var provErr *Error
	if !errors.As(err, &provErr) {
		t.Fatalf("error = %v, want *provider.Error", err)
	}
	if provErr.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", provErr.Status)
	}
}
