// Package quiz implements the generation-and-grading round trip: prompting
// the model for a structured question set, repairing and validating its
// output, and grading collected answers.
package quiz

import (
	"context"
	"fmt"
	"os"
	"time"

	"thinkr/internal/llm"
	"thinkr/internal/models"
)

// Generator produces question sets from extracted document text.
type Generator struct {
	completer llm.Completer
	budget    int
	timeout   time.Duration
}

func NewGenerator(completer llm.Completer, budget int, timeout time.Duration) *Generator {
	if budget <= 0 {
		budget = 30000
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Generator{completer: completer, budget: budget, timeout: timeout}
}

// Generate runs one full round trip. Nothing is committed anywhere on
// failure; callers replace their stored set only when a set is returned.
func (g *Generator) Generate(ctx context.Context, docText string, n int) (models.QuestionSet, error) {
	if n <= 0 {
		return nil, fmt.Errorf("question count must be positive, got %d", n)
	}

	prompt := BuildPrompt(docText, n, g.budget)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.completer.Complete(ctx, llm.Request{
		Feature:     "quiz",
		System:      generatorSystem,
		Prompt:      prompt,
		Temperature: 0.2,
		MaxTokens:   4096,
	})
	if err != nil {
		return nil, err
	}

	records, err := Parse(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse generated questions. Raw response:\n%s\n", raw)
		return nil, err
	}

	return Normalize(records)
}
