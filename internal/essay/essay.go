// Package essay scores free-text essays with a pretrained linear model over
// bag-of-words features. Scoring is fully local; no model API is involved.
package essay

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Model is a frozen linear regression: score = intercept + Σ count(term) ×
// weight(term), clamped to [MinScore, MaxScore]. Terms absent from the
// vocabulary contribute nothing.
type Model struct {
	Vocabulary map[string]float64 `json:"vocabulary"`
	Intercept  float64            `json:"intercept"`
	MinScore   float64            `json:"min_score"`
	MaxScore   float64            `json:"max_score"`
}

// LoadModel reads model weights from a JSON file.
func LoadModel(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read essay model: %w", err)
	}
	var m Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse essay model %s: %w", path, err)
	}
	if len(m.Vocabulary) == 0 {
		return nil, fmt.Errorf("essay model %s has an empty vocabulary", path)
	}
	if m.MaxScore <= m.MinScore {
		return nil, fmt.Errorf("essay model %s has invalid score range [%g, %g]", path, m.MinScore, m.MaxScore)
	}
	return &m, nil
}

// Score evaluates one essay. Empty essays score MinScore.
func (m *Model) Score(text string) float64 {
	counts := Vectorize(text)
	score := m.Intercept
	for term, count := range counts {
		if weight, ok := m.Vocabulary[term]; ok {
			score += float64(count) * weight
		}
	}
	if score < m.MinScore {
		score = m.MinScore
	}
	if score > m.MaxScore {
		score = m.MaxScore
	}
	return score
}

var nonAlpha = regexp.MustCompile(`[^a-zA-Z]+`)

// Vectorize produces bag-of-words counts: non-letters stripped, lowercased,
// English stopwords removed.
func Vectorize(text string) map[string]int {
	cleaned := nonAlpha.ReplaceAllString(text, " ")
	counts := make(map[string]int)
	for _, token := range strings.Fields(strings.ToLower(cleaned)) {
		if stopwords[token] {
			continue
		}
		counts[token]++
	}
	return counts
}

// stopwords is the usual English stopword list used when the model was
// trained; tokens on it never reach the vocabulary lookup.
var stopwords = func() map[string]bool {
	words := strings.Fields(`a about above after again against all am an and any are as at be because been
before being below between both but by can did do does doing down during each few for from further had has
have having he her here hers herself him himself his how i if in into is it its itself just me more most my
myself no nor not now of off on once only or other our ours ourselves out over own s same she should so some
such t than that the their theirs them themselves then there these they this those through to too under until
up very was we were what when where which while who whom why will with you your yours yourself yourselves`)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}()
