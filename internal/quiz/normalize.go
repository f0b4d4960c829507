package quiz

import (
	"fmt"
	"math/rand"
	"strings"

	"thinkr/internal/models"
)

// ValidationError reports a decoded question record missing required
// fields.
type ValidationError struct {
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("question %d: %s", e.Index, e.Reason)
}

const maxOptions = 4

// Normalize validates decoded question records and produces a QuestionSet.
// Multiple-choice questions end up with at most four distinct options that
// always include the correct answer, shuffled once for display. Records
// with an unrecognized type fall back to open-form rather than failing.
func Normalize(records []RawQuestion) (models.QuestionSet, error) {
	if len(records) == 0 {
		return nil, &ValidationError{Index: 0, Reason: "model returned no questions"}
	}

	set := make(models.QuestionSet, 0, len(records))
	for i, rec := range records {
		index := i + 1
		prompt := strings.TrimSpace(rec.Question)
		if prompt == "" {
			return nil, &ValidationError{Index: index, Reason: "missing question text"}
		}

		q := models.Question{
			Index:       index,
			Prompt:      prompt,
			Answer:      strings.TrimSpace(string(rec.Answer)),
			Explanation: strings.TrimSpace(rec.Explanation),
		}

		if isMCQ(rec.Type) {
			if q.Answer == "" {
				// Without a declared correct answer an mcq cannot be graded
				// deterministically; grade it as open-form rather than
				// promote an arbitrary option.
				q.Kind = models.KindOpen
				set = append(set, q)
				continue
			}
			options := dedupeOptions(rec.Options)
			q.Kind = models.KindMCQ
			q.Answer = resolveAnswer(q.Answer, options)
			q.Options = arrangeOptions(options, q.Answer)
		} else {
			q.Kind = models.KindOpen
		}

		set = append(set, q)
	}
	return set, nil
}

func isMCQ(kind string) bool {
	kind = strings.ToLower(strings.TrimSpace(kind))
	return strings.HasPrefix(kind, "mc") || strings.HasPrefix(kind, "multiple")
}

func dedupeOptions(options []string) []string {
	seen := make(map[string]bool, len(options))
	out := make([]string, 0, len(options))
	for _, opt := range options {
		opt = strings.TrimSpace(opt)
		if opt == "" || seen[opt] {
			continue
		}
		seen[opt] = true
		out = append(out, opt)
	}
	return out
}

// resolveAnswer maps the declared answer onto option text. The generation
// prompt asks for verbatim option text, but models also reply with a bare
// letter ("B", "b)") or an option index; both are resolved here.
func resolveAnswer(answer string, options []string) string {
	for _, opt := range options {
		if strings.EqualFold(opt, answer) {
			return opt
		}
	}
	letter := strings.TrimRight(strings.ToUpper(answer), ".) ")
	if len(letter) == 1 && letter[0] >= 'A' && letter[0] <= 'F' {
		if idx := int(letter[0] - 'A'); idx < len(options) {
			return options[idx]
		}
	}
	return answer
}

// arrangeOptions inserts the answer if the model omitted it, truncates to
// maxOptions without ever dropping the answer, and applies one random
// permutation that then stays frozen for the session.
func arrangeOptions(options []string, answer string) []string {
	present := false
	for _, opt := range options {
		if opt == answer {
			present = true
			break
		}
	}
	if !present {
		options = append(options, answer)
	}
	if len(options) > maxOptions {
		kept := options[:maxOptions]
		found := false
		for _, opt := range kept {
			if opt == answer {
				found = true
				break
			}
		}
		if !found {
			kept[maxOptions-1] = answer
		}
		options = kept
	}

	shuffled := make([]string, len(options))
	copy(shuffled, options)
	rand.Shuffle(len(shuffled), func(a, b int) {
		shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
	})
	return shuffled
}
