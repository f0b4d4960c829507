package models

import "fmt"

// QuestionKind distinguishes how a question is answered and graded.
type QuestionKind string

const (
	// KindMCQ is a multiple-choice question with exactly one correct option.
	KindMCQ QuestionKind = "mcq"
	// KindOpen is a free-text question graded qualitatively.
	KindOpen QuestionKind = "open"
)

// Question is one quiz item. Fields are fixed at creation; the option order
// for multiple-choice questions is shuffled once and then frozen for the
// session.
type Question struct {
	Index   int          `json:"index"`
	Kind    QuestionKind `json:"kind"`
	Prompt  string       `json:"question"`
	Options []string     `json:"options,omitempty"`
	// Answer is the expected answer. For mcq it must equal one of Options
	// verbatim; for open questions it is reference material for grading and
	// is never shown to the student.
	Answer string `json:"-"`
	// Explanation is the model's rationale for the correct answer, shown
	// only in the grading report.
	Explanation string `json:"-"`
}

// QuestionSet is an ordered question list produced by one generation call.
// It is replaced wholesale on regeneration, never partially mutated.
type QuestionSet []Question

// MCQCount returns the number of multiple-choice questions in the set.
func (qs QuestionSet) MCQCount() int {
	n := 0
	for _, q := range qs {
		if q.Kind == KindMCQ {
			n++
		}
	}
	return n
}

// OpenQuestions returns the open-form questions in set order.
func (qs QuestionSet) OpenQuestions() []Question {
	var open []Question
	for _, q := range qs {
		if q.Kind == KindOpen {
			open = append(open, q)
		}
	}
	return open
}

// AnswerRecord maps Question.Index to the student's submitted answer.
type AnswerRecord map[int]string

// Verdict labels for graded questions.
const (
	VerdictCorrect   = "correct"
	VerdictIncorrect = "incorrect"
)

// QuestionResult is the graded outcome for a single question.
type QuestionResult struct {
	Index    int          `json:"index"`
	Kind     QuestionKind `json:"kind"`
	Question string       `json:"question"`
	Given    string       `json:"given"`
	Expected string       `json:"expected"`
	// Verdict is correct/incorrect for mcq; for open questions it is the
	// short label extracted from the grader's feedback line.
	Verdict  string `json:"verdict"`
	Feedback string `json:"feedback,omitempty"`
}

// GradingReport is produced once per evaluate action and superseded
// entirely by the next one. Open-form questions contribute feedback only,
// never to the numeric score.
type GradingReport struct {
	Results    []QuestionResult `json:"results"`
	CorrectMCQ int              `json:"correct_mcq"`
	TotalMCQ   int              `json:"total_mcq"`
}

// Score renders the aggregate multiple-choice score, e.g. "2 / 3".
func (r *GradingReport) Score() string {
	return fmt.Sprintf("%d / %d", r.CorrectMCQ, r.TotalMCQ)
}

// ChatMessage is one turn in the tutor conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}
