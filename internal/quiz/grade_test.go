package quiz

import (
	"context"
	"strings"
	"testing"
	"time"

	"thinkr/internal/llm"
	"thinkr/internal/models"
)

// fakeCompleter returns a canned response and records the prompts it saw.
type fakeCompleter struct {
	response string
	err      error
	calls    []llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeCompleter) Stream(ctx context.Context, req llm.Request, fn func(string) error) error {
	text, err := f.Complete(ctx, req)
	if err != nil {
		return err
	}
	return fn(text)
}

func mixedSet() models.QuestionSet {
	return models.QuestionSet{
		{Index: 1, Kind: models.KindMCQ, Prompt: "1+1?", Options: []string{"1", "2", "3", "4"}, Answer: "2"},
		{Index: 2, Kind: models.KindMCQ, Prompt: "Capital of France?", Options: []string{"Paris", "Rome", "Oslo", "Bern"}, Answer: "Paris", Explanation: "Paris is the capital."},
		{Index: 3, Kind: models.KindMCQ, Prompt: "Largest planet?", Options: []string{"Mars", "Venus", "Jupiter", "Pluto"}, Answer: "Jupiter"},
		{Index: 4, Kind: models.KindOpen, Prompt: "Explain photosynthesis.", Answer: "Plants convert light into chemical energy."},
		{Index: 5, Kind: models.KindOpen, Prompt: "Define entropy.", Answer: "A measure of disorder."},
	}
}

func TestGrade_MixedSet(t *testing.T) {
	fake := &fakeCompleter{response: "correct: Good explanation.\nincorrect: Entropy is not energy.\n"}
	grader := NewGrader(fake, 0, time.Second)

	answers := models.AnswerRecord{
		1: "2",
		2: "Rome",
		3: "Jupiter",
		4: "Plants make energy from light.",
		5: "Entropy is a kind of energy.",
	}

	report, err := grader.Grade(context.Background(), "doc text", mixedSet(), answers)
	if err != nil {
		t.Fatalf("Grade failed: %v", err)
	}

	if got := report.Score(); got != "2 / 3" {
		t.Errorf("Score() = %q, want %q", got, "2 / 3")
	}
	if len(report.Results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(report.Results))
	}

	if report.Results[0].Verdict != models.VerdictCorrect {
		t.Errorf("question 1 verdict = %q", report.Results[0].Verdict)
	}
	if report.Results[1].Verdict != models.VerdictIncorrect {
		t.Errorf("question 2 verdict = %q", report.Results[1].Verdict)
	}
	if report.Results[1].Feedback != "Paris is the capital." {
		t.Errorf("wrong-answer feedback = %q", report.Results[1].Feedback)
	}
	if report.Results[3].Verdict != "correct" || report.Results[3].Feedback != "Good explanation." {
		t.Errorf("open result 4 = %+v", report.Results[3])
	}
	if report.Results[4].Verdict != "incorrect" || report.Results[4].Feedback != "Entropy is not energy." {
		t.Errorf("open result 5 = %+v", report.Results[4])
	}

	if len(fake.calls) != 1 {
		t.Fatalf("expected one grading call, got %d", len(fake.calls))
	}
	prompt := fake.calls[0].Prompt
	for _, want := range []string{"<<DOC>>", "Explain photosynthesis.", "Define entropy.", "A measure of disorder."} {
		if !strings.Contains(prompt, want) {
			t.Errorf("grading prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "1+1?") {
		t.Error("grading prompt should not include multiple-choice questions")
	}
}

func TestGrade_MCQWhitespaceTrimmed(t *testing.T) {
	set := models.QuestionSet{
		{Index: 1, Kind: models.KindMCQ, Prompt: "Q?", Options: []string{"a", "b"}, Answer: "a"},
	}
	grader := NewGrader(&fakeCompleter{}, 0, time.Second)

	report, err := grader.Grade(context.Background(), "", set, models.AnswerRecord{1: "  a  "})
	if err != nil {
		t.Fatalf("Grade failed: %v", err)
	}
	if report.CorrectMCQ != 1 {
		t.Errorf("padded answer not accepted: %+v", report.Results[0])
	}
}

func TestGrade_MCQCaseSensitive(t *testing.T) {
	set := models.QuestionSet{
		{Index: 1, Kind: models.KindMCQ, Prompt: "Q?", Options: []string{"Paris", "Rome"}, Answer: "Paris"},
	}
	grader := NewGrader(&fakeCompleter{}, 0, time.Second)

	report, err := grader.Grade(context.Background(), "", set, models.AnswerRecord{1: "paris"})
	if err != nil {
		t.Fatalf("Grade failed: %v", err)
	}
	if report.Results[0].Verdict != models.VerdictIncorrect {
		t.Errorf("case-mismatched answer graded %q", report.Results[0].Verdict)
	}
}

func TestGrade_MissingFeedbackLines(t *testing.T) {
	set := models.QuestionSet{
		{Index: 1, Kind: models.KindOpen, Prompt: "First?", Answer: "one"},
		{Index: 2, Kind: models.KindOpen, Prompt: "Second?", Answer: "two"},
	}
	fake := &fakeCompleter{response: "correct: Fine.\n"}
	grader := NewGrader(fake, 0, time.Second)

	report, err := grader.Grade(context.Background(), "doc", set, models.AnswerRecord{1: "one", 2: "two"})
	if err != nil {
		t.Fatalf("Grade failed: %v", err)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	if report.Results[0].Feedback != "Fine." {
		t.Errorf("first feedback = %q", report.Results[0].Feedback)
	}
	if report.Results[1].Feedback != PlaceholderFeedback {
		t.Errorf("second feedback = %q, want placeholder", report.Results[1].Feedback)
	}
}

func TestGrade_CompletionErrorFailsWholeEvaluation(t *testing.T) {
	set := models.QuestionSet{
		{Index: 1, Kind: models.KindMCQ, Prompt: "Q?", Options: []string{"a", "b"}, Answer: "a"},
		{Index: 2, Kind: models.KindOpen, Prompt: "Open?", Answer: "ref"},
	}
	fake := &fakeCompleter{err: &llm.CompletionError{Provider: "test", Message: "boom"}}
	grader := NewGrader(fake, 0, time.Second)

	report, err := grader.Grade(context.Background(), "doc", set, models.AnswerRecord{1: "a", 2: "x"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if report != nil {
		t.Errorf("partial report returned on failure: %+v", report)
	}
}

func TestGrade_MCQOnlySkipsCompletion(t *testing.T) {
	set := models.QuestionSet{
		{Index: 1, Kind: models.KindMCQ, Prompt: "Q?", Options: []string{"a", "b"}, Answer: "a"},
	}
	fake := &fakeCompleter{err: &llm.CompletionError{Provider: "test", Message: "should not be called"}}
	grader := NewGrader(fake, 0, time.Second)

	if _, err := grader.Grade(context.Background(), "", set, models.AnswerRecord{1: "b"}); err != nil {
		t.Fatalf("Grade failed: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Errorf("completion called %d times for all-mcq set", len(fake.calls))
	}
}

func TestSplitFeedbackLines(t *testing.T) {
	raw := "```\n1. correct: Good.\nQ2: incorrect, missed the point.\n- partially correct: Halfway there.\n\n```"
	lines := splitFeedbackLines(raw)
	want := []string{
		"correct: Good.",
		"incorrect, missed the point.",
		"partially correct: Halfway there.",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines: %q", len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestParseFeedbackLine(t *testing.T) {
	cases := []struct {
		in      string
		verdict string
		comment string
	}{
		{"correct: Nailed it.", "correct", "Nailed it."},
		{"Partially correct - some gaps remain.", "partially correct", "some gaps remain."},
		{"incorrect. See chapter 2.", "incorrect", "See chapter 2."},
		{"unanswered", "unanswered", ""},
		{"the model rambled instead", "ungraded", "the model rambled instead"},
	}
	for _, tc := range cases {
		got := parseFeedbackLine(tc.in)
		if got.verdict != tc.verdict || got.comment != tc.comment {
			t.Errorf("parseFeedbackLine(%q) = %+v, want {%s %s}", tc.in, got, tc.verdict, tc.comment)
		}
	}
}
