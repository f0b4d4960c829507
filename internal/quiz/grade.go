package quiz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"thinkr/internal/llm"
	"thinkr/internal/models"
)

const graderSystem = "You are an assistant grader for a study quiz. You give one short verdict line per question and nothing else."

// PlaceholderFeedback fills open-form results when the grader returned
// fewer lines than questions submitted; the model's output length is not
// contractually guaranteed.
const PlaceholderFeedback = "no feedback generated"

// Verdict labels the grader is asked to lead each feedback line with.
var verdictLabels = []string{
	"partially correct", // must precede "correct" for prefix matching
	"correct",
	"incorrect",
	"unanswered",
}

// Grader evaluates collected answers against a question set.
// Multiple-choice grading is local and deterministic; open-form items are
// graded in one batched completion call.
type Grader struct {
	completer llm.Completer
	budget    int
	timeout   time.Duration
}

func NewGrader(completer llm.Completer, budget int, timeout time.Duration) *Grader {
	if budget <= 0 {
		budget = 30000
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Grader{completer: completer, budget: budget, timeout: timeout}
}

// Grade produces a complete report or no report at all: a completion
// failure while grading open-form items fails the whole evaluation.
func (g *Grader) Grade(ctx context.Context, docText string, set models.QuestionSet, answers models.AnswerRecord) (*models.GradingReport, error) {
	report := &models.GradingReport{TotalMCQ: set.MCQCount()}

	open := set.OpenQuestions()
	var feedback []feedbackLine
	if len(open) > 0 {
		lines, err := g.gradeOpen(ctx, docText, open, answers)
		if err != nil {
			return nil, err
		}
		feedback = lines
	}

	openIdx := 0
	for _, q := range set {
		given := strings.TrimSpace(answers[q.Index])
		result := models.QuestionResult{
			Index:    q.Index,
			Kind:     q.Kind,
			Question: q.Prompt,
			Given:    given,
			Expected: q.Answer,
		}

		switch q.Kind {
		case models.KindMCQ:
			if given == strings.TrimSpace(q.Answer) {
				result.Verdict = models.VerdictCorrect
				report.CorrectMCQ++
			} else {
				result.Verdict = models.VerdictIncorrect
				result.Feedback = q.Explanation
			}
		case models.KindOpen:
			line := feedback[openIdx]
			openIdx++
			result.Verdict = line.verdict
			result.Feedback = line.comment
		}

		report.Results = append(report.Results, result)
	}

	return report, nil
}

type feedbackLine struct {
	verdict string
	comment string
}

func (g *Grader) gradeOpen(ctx context.Context, docText string, open []models.Question, answers models.AnswerRecord) ([]feedbackLine, error) {
	prompt := buildGradingPrompt(docText, open, answers, g.budget)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.completer.Complete(ctx, llm.Request{
		Feature:     "grade",
		System:      graderSystem,
		Prompt:      prompt,
		Temperature: 0.2,
		MaxTokens:   1500,
	})
	if err != nil {
		return nil, err
	}

	lines := splitFeedbackLines(raw)
	out := make([]feedbackLine, len(open))
	for i := range open {
		if i < len(lines) {
			out[i] = parseFeedbackLine(lines[i])
		} else {
			out[i] = feedbackLine{verdict: "ungraded", comment: PlaceholderFeedback}
		}
	}
	return out, nil
}

// buildGradingPrompt embeds a document excerpt, the open questions with
// their reference answers, and the student's submissions, and asks for one
// plain-text verdict line per question in order.
func buildGradingPrompt(docText string, open []models.Question, answers models.AnswerRecord, budget int) string {
	var sb strings.Builder

	sb.WriteString("You will be given a document excerpt, open questions with reference answers, and a student's answers.\n")
	fmt.Fprintf(&sb, "For each of the %d questions, in order, respond with exactly one line of plain text (no JSON, no numbering):\n", len(open))
	sb.WriteString("<verdict>: <one-sentence comment>\n")
	sb.WriteString("where <verdict> is one of: correct, partially correct, incorrect, unanswered.\n")
	fmt.Fprintf(&sb, "Produce exactly %d lines and nothing else.\n", len(open))

	sb.WriteString("\n<<DOC>>\n")
	sb.WriteString(Truncate(docText, budget))
	sb.WriteString("\n<<ENDDOC>>\n\n<<QUESTIONS>>\n")
	for _, q := range open {
		fmt.Fprintf(&sb, "Q%d: %s\nReference answer: %s\n", q.Index, q.Prompt, q.Answer)
	}
	sb.WriteString("<<ENDQUESTIONS>>\n\n<<ANSWERS>>\n")
	for _, q := range open {
		answer := strings.TrimSpace(answers[q.Index])
		if answer == "" {
			answer = "(no answer)"
		}
		fmt.Fprintf(&sb, "Q%d: %s\n", q.Index, answer)
	}
	sb.WriteString("<<ENDANSWERS>>\n")

	return sb.String()
}

func splitFeedbackLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(Clean(raw), "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		// Drop "1." / "Q3:" style numbering the model may add anyway.
		line = trimLinePrefix(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func trimLinePrefix(line string) string {
	rest := line
	if strings.HasPrefix(rest, "Q") || strings.HasPrefix(rest, "q") {
		rest = rest[1:]
	}
	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i == 0 {
		return line
	}
	rest = rest[i:]
	if strings.HasPrefix(rest, ".") || strings.HasPrefix(rest, ":") || strings.HasPrefix(rest, ")") {
		return strings.TrimSpace(rest[1:])
	}
	return line
}

func parseFeedbackLine(line string) feedbackLine {
	lower := strings.ToLower(line)
	for _, label := range verdictLabels {
		if strings.HasPrefix(lower, label) {
			comment := strings.TrimLeft(line[len(label):], ":,.- \t")
			return feedbackLine{verdict: label, comment: comment}
		}
	}
	return feedbackLine{verdict: "ungraded", comment: line}
}
