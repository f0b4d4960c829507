// Package llm wraps the hosted generative-text providers behind a single
// Completer interface. It is the only network boundary in the application.
package llm

import "context"

// Request is one prompt sent to a provider. A zero MaxTokens leaves the
// provider default in place.
type Request struct {
	// Feature tags the call for the call log ("quiz", "grade", "summary",
	// "chat").
	Feature     string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Completer sends a prompt to a hosted generative-text service. Complete
// returns the full completion text; Stream delivers it incrementally through
// fn and returns once the completion is finished. Both fail with a
// *CompletionError when the call errors or yields no text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request, fn func(chunk string) error) error
}

// CompletionError reports a failed or empty completion call.
type CompletionError struct {
	Provider string
	Message  string
	Err      error
}

func (e *CompletionError) Error() string {
	if e.Err != nil {
		return e.Provider + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Provider + ": " + e.Message
}

func (e *CompletionError) Unwrap() error { return e.Err }
