package llm

import (
	"context"
	"log"
	"strings"
	"time"

	"thinkr/internal/store"
)

// LoggingCompleter records every completion round trip in the call log
// before handing the result back. Logging failures never fail the call.
type LoggingCompleter struct {
	inner    Completer
	provider string
	calls    *store.CallLog
}

func NewLoggingCompleter(inner Completer, provider string, calls *store.CallLog) *LoggingCompleter {
	return &LoggingCompleter{inner: inner, provider: provider, calls: calls}
}

func (c *LoggingCompleter) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	text, err := c.inner.Complete(ctx, req)
	c.record(req, text, err, time.Since(start))
	return text, err
}

func (c *LoggingCompleter) Stream(ctx context.Context, req Request, fn func(chunk string) error) error {
	start := time.Now()
	var full strings.Builder
	err := c.inner.Stream(ctx, req, func(chunk string) error {
		full.WriteString(chunk)
		return fn(chunk)
	})
	c.record(req, full.String(), err, time.Since(start))
	return err
}

func (c *LoggingCompleter) record(req Request, response string, callErr error, elapsed time.Duration) {
	if c.calls == nil {
		return
	}
	entry := store.CallEntry{
		Feature:  req.Feature,
		Provider: c.provider,
		Prompt:   req.Prompt,
		Response: response,
		Duration: elapsed.Milliseconds(),
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}
	// The session is waiting on the completion; do not make it wait on the
	// log as well.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.calls.Record(ctx, entry); err != nil {
		log.Printf("record llm call: %v", err)
	}
}
