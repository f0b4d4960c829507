package services

import (
	"context"
	"strings"
	"time"

	"thinkr/internal/llm"
)

// ProgressCallback is called during multi-step work to report progress.
type ProgressCallback func(step, message string, current, total int)

// Summarizer condenses extracted document text into bullet-point summaries,
// one completion call per fixed-size chunk.
type Summarizer struct {
	completer llm.Completer
	chunkSize int
	timeout   time.Duration
}

func NewSummarizer(completer llm.Completer, chunkSize int, timeout time.Duration) *Summarizer {
	if chunkSize <= 0 {
		chunkSize = 3000
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Summarizer{completer: completer, chunkSize: chunkSize, timeout: timeout}
}

// Summarize splits text into chunks, summarizes each sequentially, and
// joins the chunk summaries with newlines. The first failing chunk aborts
// the whole summary.
func (s *Summarizer) Summarize(ctx context.Context, text string, progress ProgressCallback) (string, error) {
	chunks := ChunkText(text, s.chunkSize)
	summaries := make([]string, 0, len(chunks))

	for i, chunk := range chunks {
		if progress != nil {
			progress("summarize", "Summarizing chunk", i+1, len(chunks))
		}
		summary, err := s.summarizeChunk(ctx, chunk)
		if err != nil {
			return "", err
		}
		summaries = append(summaries, strings.TrimSpace(summary))
	}

	return strings.Join(summaries, "\n"), nil
}

func (s *Summarizer) summarizeChunk(ctx context.Context, chunk string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.completer.Complete(ctx, llm.Request{
		Feature:     "summary",
		Prompt:      "Summarize the following text into clear bullet points:\n\n" + chunk,
		Temperature: 0.3,
		MaxTokens:   1024,
	})
}

// ChunkText splits text into consecutive chunks of at most max characters.
func ChunkText(text string, max int) []string {
	if max <= 0 {
		return []string{text}
	}
	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += max {
		end := start + max
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	if len(chunks) == 0 {
		chunks = []string{""}
	}
	return chunks
}
