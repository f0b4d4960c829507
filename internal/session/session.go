// Package session holds per-browser-session state: the extracted document
// text, the current question set, collected answers, the latest grading
// report, and the tutor chat history. Nothing here outlives the process.
package session

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"thinkr/internal/models"
)

const cookieName = "thinkr_session"

// State is the session context passed to every orchestrator call. It is
// exclusively owned by one browser session; the busy lock serializes
// user-initiated actions so a session never runs two at once.
type State struct {
	ID string

	DocName   string
	DocText   string
	Questions models.QuestionSet
	Answers   models.AnswerRecord
	Report    *models.GradingReport
	Chat      []models.ChatMessage
	Summary   string
	SumName   string

	busy sync.Mutex
}

// TryAcquire claims the session for one action. It fails instead of
// blocking: while a completion call is outstanding the session accepts no
// further input.
func (s *State) TryAcquire() bool { return s.busy.TryLock() }

func (s *State) Release() { s.busy.Unlock() }

// SetDocument installs a newly uploaded document and clears any question
// set, answers, and report derived from the previous one.
func (s *State) SetDocument(name, text string) {
	s.DocName = name
	s.DocText = text
	s.Questions = nil
	s.Answers = nil
	s.Report = nil
}

// SetQuestions replaces the question set wholesale, resets the answer
// record, and drops the stale report.
func (s *State) SetQuestions(set models.QuestionSet) {
	s.Questions = set
	s.Answers = make(models.AnswerRecord, len(set))
	s.Report = nil
}

// ClearQuiz discards the question set, answers, and report, keeping the
// extracted document text for regeneration.
func (s *State) ClearQuiz() {
	s.Questions = nil
	s.Answers = nil
	s.Report = nil
}

// RecordAnswer overwrites the stored answer for one question.
func (s *State) RecordAnswer(index int, answer string) error {
	if s.Answers == nil {
		return fmt.Errorf("no active question set")
	}
	for _, q := range s.Questions {
		if q.Index == index {
			s.Answers[index] = answer
			return nil
		}
	}
	return fmt.Errorf("unknown question index %d", index)
}

// Store maps cookie-carried session IDs to their State. States are created
// on first access and live until the process exits.
type Store struct {
	mu      sync.Mutex
	cookies *sessions.CookieStore
	states  map[string]*State
}

func NewStore(secret string) *Store {
	if secret == "" {
		// Sessions then survive only until restart, which matches the
		// in-memory state anyway.
		secret = uuid.NewString()
	}
	cookies := sessions.NewCookieStore([]byte(secret))
	cookies.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   0,
	}
	return &Store{
		cookies: cookies,
		states:  make(map[string]*State),
	}
}

// Fetch returns the State for the request's session, minting a session ID
// cookie on first contact.
func (s *Store) Fetch(w http.ResponseWriter, r *http.Request) (*State, error) {
	cookie, _ := s.cookies.Get(r, cookieName)

	id, _ := cookie.Values["id"].(string)
	if id == "" {
		id = uuid.NewString()
		cookie.Values["id"] = id
		if err := cookie.Save(r, w); err != nil {
			return nil, fmt.Errorf("save session cookie: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[id]
	if !ok {
		state = &State{ID: id}
		s.states[id] = state
	}
	return state, nil
}
