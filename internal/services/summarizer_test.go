package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"thinkr/internal/llm"
	"thinkr/internal/models"
)

// scriptedCompleter replies to the n-th call with responses[n] and records
// the prompts it received.
type scriptedCompleter struct {
	responses []string
	failAt    int // 1-based call number that errors; 0 means never
	prompts   []string
}

func (s *scriptedCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	s.prompts = append(s.prompts, req.Prompt)
	n := len(s.prompts)
	if s.failAt != 0 && n == s.failAt {
		return "", &llm.CompletionError{Provider: "test", Message: "scripted failure"}
	}
	if n <= len(s.responses) {
		return s.responses[n-1], nil
	}
	return "", errors.New("unexpected call")
}

func (s *scriptedCompleter) Stream(ctx context.Context, req llm.Request, fn func(string) error) error {
	text, err := s.Complete(ctx, req)
	if err != nil {
		return err
	}
	return fn(text)
}

func TestChunkText(t *testing.T) {
	t.Run("EvenSplit", func(t *testing.T) {
		chunks := ChunkText("aaaabbbbcccc", 4)
		want := []string{"aaaa", "bbbb", "cccc"}
		if len(chunks) != 3 {
			t.Fatalf("got %d chunks: %q", len(chunks), chunks)
		}
		for i := range want {
			if chunks[i] != want[i] {
				t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
			}
		}
	})

	t.Run("ShortTail", func(t *testing.T) {
		chunks := ChunkText("aaaab", 4)
		if len(chunks) != 2 || chunks[1] != "b" {
			t.Errorf("got %q", chunks)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		chunks := ChunkText("", 4)
		if len(chunks) != 1 || chunks[0] != "" {
			t.Errorf("got %q", chunks)
		}
	})

	t.Run("MultiByteRunes", func(t *testing.T) {
		chunks := ChunkText("ééééé", 2)
		if len(chunks) != 3 {
			t.Fatalf("got %d chunks: %q", len(chunks), chunks)
		}
		if chunks[0] != "éé" {
			t.Errorf("first chunk = %q", chunks[0])
		}
	})
}

func TestSummarize(t *testing.T) {
	t.Run("JoinsChunkSummaries", func(t *testing.T) {
		fake := &scriptedCompleter{responses: []string{"- first part\n", "- second part"}}
		s := NewSummarizer(fake, 4, time.Second)

		var steps []int
		got, err := s.Summarize(context.Background(), "aaaabbbb", func(_, _ string, current, total int) {
			steps = append(steps, current)
			if total != 2 {
				t.Errorf("progress total = %d, want 2", total)
			}
		})
		if err != nil {
			t.Fatalf("Summarize failed: %v", err)
		}
		if got != "- first part\n- second part" {
			t.Errorf("summary = %q", got)
		}
		if len(steps) != 2 || steps[0] != 1 || steps[1] != 2 {
			t.Errorf("progress steps = %v", steps)
		}
		if !strings.Contains(fake.prompts[0], "aaaa") || !strings.Contains(fake.prompts[1], "bbbb") {
			t.Errorf("chunks not forwarded: %q", fake.prompts)
		}
	})

	t.Run("FirstFailureAborts", func(t *testing.T) {
		fake := &scriptedCompleter{responses: []string{"ok", "ok", "ok"}, failAt: 2}
		s := NewSummarizer(fake, 4, time.Second)

		_, err := s.Summarize(context.Background(), "aaaabbbbcccc", nil)
		var completion *llm.CompletionError
		if !errors.As(err, &completion) {
			t.Fatalf("expected *CompletionError, got %T (%v)", err, err)
		}
		if len(fake.prompts) != 2 {
			t.Errorf("summarization continued past failure: %d calls", len(fake.prompts))
		}
	})
}

func TestTutorReply(t *testing.T) {
	fake := &scriptedCompleter{responses: []string{"Hello, student."}}
	tutor := NewTutor(fake, time.Second)

	var streamed strings.Builder
	full, err := tutor.Reply(context.Background(), []models.ChatMessage{
		{Role: "user", Content: "Hi"},
		{Role: "assistant", Content: "Hello!"},
		{Role: "user", Content: "Explain gravity."},
	}, func(chunk string) error {
		streamed.WriteString(chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	if full != "Hello, student." {
		t.Errorf("full reply = %q", full)
	}
	if streamed.String() != full {
		t.Errorf("streamed %q differs from returned %q", streamed.String(), full)
	}

	prompt := fake.prompts[0]
	if !strings.Contains(prompt, "Student: Explain gravity.") {
		t.Errorf("history not rendered: %q", prompt)
	}
	if !strings.HasSuffix(prompt, "Tutor:") {
		t.Errorf("prompt does not end with the assistant cue: %q", prompt)
	}
}
