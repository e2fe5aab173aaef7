// Package provider holds the clients for the external speech and LLM
// services. Providers normalize every upstream failure into *Error and never
// retry internally; retry and fallback policy belongs to the caller.
package provider

import (
	"context"
	"fmt"
)

// Error is a normalized upstream failure: transport error, non-2xx response,
// or a reported terminal error state.
type Error struct {
	Provider string
	Status   int
	Message  string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %d - %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Transcriber converts an audio reference (local file path or remote URL)
// into text plus the detected language code.
type Transcriber interface {
	Transcribe(ctx context.Context, audioRef, languageHint string) (text, detectedLanguage string, err error)
}

// Completer performs a single chat completion.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Summarizer turns a transcript into final meeting notes.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

const notesSystemPrompt = "You are a meeting notes generator."

const notesPrompt = `You are an advanced multilingual meeting summarizer.
The transcript may not always be in English, but the final notes must be in **English**.

Please return the meeting summary STRICTLY in valid GitHub-flavored Markdown with this structure:

## Abstract Summary
- 3-4 lines abstract summarizing the overall meeting.

## Key Points
- Bullet points of important highlights.

## Action Items
1. Numbered list of action items (Who - What - By When).

## Sentiment
- Short paragraph describing the meeting tone.

Important formatting rules:
- Use ` + "`##`" + ` for section headings (not bold or underline).
- Use ` + "`-`" + ` for bullets under Key Points.
- Use ` + "`1. 2. 3.`" + ` style for Action Items.
- Do not include anything outside these sections.
- Keep the style professional and concise.

Transcript extract:
%s
`

// NotesPrompt renders the fixed summarization prompt for a transcript. The
// response is returned uninterpreted; nothing validates it against the
// requested markdown structure.
func NotesPrompt(transcript string) string {
	return fmt.Sprintf(notesPrompt, transcript)
}
