package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"thinkr/internal/essay"
	"thinkr/internal/llm"
	"thinkr/internal/models"
	"thinkr/internal/quiz"
	"thinkr/internal/services"
	"thinkr/internal/session"
	"thinkr/internal/store"
)

const maxQuestions = 10

// Server exposes the study-assistant JSON API.
type Server struct {
	router     chi.Router
	sessions   *session.Store
	pdf        *services.PDFService
	generator  *quiz.Generator
	grader     *quiz.Grader
	summarizer *services.Summarizer
	tutor      *services.Tutor
	essayModel *essay.Model
	calls      *store.CallLog
	maxUpload  int64
}

func NewServer(
	sessions *session.Store,
	pdf *services.PDFService,
	generator *quiz.Generator,
	grader *quiz.Grader,
	summarizer *services.Summarizer,
	tutor *services.Tutor,
	essayModel *essay.Model,
	calls *store.CallLog,
	maxUploadMB int,
) *Server {
	if maxUploadMB <= 0 {
		maxUploadMB = 16
	}
	s := &Server{
		router:     chi.NewRouter(),
		sessions:   sessions,
		pdf:        pdf,
		generator:  generator,
		grader:     grader,
		summarizer: summarizer,
		tutor:      tutor,
		essayModel: essayModel,
		calls:      calls,
		maxUpload:  int64(maxUploadMB) << 20,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() {
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
	}))

	s.router.Get("/api/health", s.handleHealth)

	s.router.Post("/api/quiz/upload", s.withSession(s.handleQuizUpload))
	s.router.Post("/api/quiz/generate", s.withSession(s.handleQuizGenerate))
	s.router.Post("/api/quiz/answers", s.withSession(s.handleQuizAnswers))
	s.router.Post("/api/quiz/evaluate", s.withSession(s.handleQuizEvaluate))
	s.router.Post("/api/quiz/clear", s.withSession(s.handleQuizClear))
	s.router.Get("/api/quiz", s.withSession(s.handleQuizState))

	s.router.Post("/api/summarize", s.withSession(s.handleSummarize))
	s.router.Get("/api/summary/download", s.withSession(s.handleSummaryDownload))

	s.router.Post("/api/essay/score", s.handleEssayScore)

	s.router.Post("/api/chat", s.withSession(s.handleChat))
	s.router.Get("/api/chat/history", s.withSession(s.handleChatHistory))

	s.router.Get("/api/llm/log", s.handleCallLog)
}

// withSession resolves the caller's session state and claims it for the
// duration of the handler. A session runs one action at a time; overlapping
// requests are refused rather than queued.
func (s *Server) withSession(next func(http.ResponseWriter, *http.Request, *session.State)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := s.sessions.Fetch(w, r)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !state.TryAcquire() {
			writeError(w, http.StatusConflict, "another action is still running for this session")
			return
		}
		defer state.Release()
		next(w, r, state)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readPDF pulls the uploaded file out of the multipart form and extracts
// its text. The raw bytes are discarded once extraction finishes.
func (s *Server) readPDF(r *http.Request) (name, text string, err error) {
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		return "", "", &badRequestError{"invalid multipart form"}
	}
	if form := r.MultipartForm; form != nil {
		defer form.RemoveAll()
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		return "", "", &badRequestError{"no file uploaded"}
	}
	header := files[0]

	src, err := header.Open()
	if err != nil {
		return "", "", &badRequestError{"unreadable upload"}
	}
	defer src.Close()

	text, err = s.pdf.ExtractText(header.Filename, src, header.Size)
	if err != nil {
		return "", "", err
	}
	return header.Filename, text, nil
}

func (s *Server) handleQuizUpload(w http.ResponseWriter, r *http.Request, state *session.State) {
	name, text, err := s.readPDF(r)
	if err != nil {
		respondError(w, err)
		return
	}

	state.SetDocument(name, text)
	writeJSON(w, http.StatusOK, map[string]any{
		"document": name,
		"chars":    len(text),
		"preview":  quiz.Truncate(text, 2000),
	})
}

func (s *Server) handleQuizGenerate(w http.ResponseWriter, r *http.Request, state *session.State) {
	var payload struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if payload.Count <= 0 || payload.Count > maxQuestions {
		writeError(w, http.StatusBadRequest, "count must be between 1 and 10")
		return
	}
	if state.DocText == "" {
		writeError(w, http.StatusBadRequest, "upload a document first")
		return
	}

	set, err := s.generator.Generate(r.Context(), state.DocText, payload.Count)
	if err != nil {
		respondError(w, err)
		return
	}

	state.SetQuestions(set)
	writeJSON(w, http.StatusOK, map[string]any{"questions": set})
}

func (s *Server) handleQuizAnswers(w http.ResponseWriter, r *http.Request, state *session.State) {
	var payload struct {
		Answers []struct {
			Index  int    `json:"index"`
			Answer string `json:"answer"`
		} `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	for _, a := range payload.Answers {
		if err := state.RecordAnswer(a.Index, a.Answer); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"recorded": len(payload.Answers)})
}

func (s *Server) handleQuizEvaluate(w http.ResponseWriter, r *http.Request, state *session.State) {
	if len(state.Questions) == 0 {
		writeError(w, http.StatusBadRequest, "no question set to evaluate")
		return
	}

	report, err := s.grader.Grade(r.Context(), state.DocText, state.Questions, state.Answers)
	if err != nil {
		respondError(w, err)
		return
	}

	state.Report = report
	writeJSON(w, http.StatusOK, map[string]any{
		"score":  report.Score(),
		"report": report,
	})
}

func (s *Server) handleQuizClear(w http.ResponseWriter, r *http.Request, state *session.State) {
	state.ClearQuiz()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleQuizState(w http.ResponseWriter, r *http.Request, state *session.State) {
	resp := map[string]any{
		"document":  state.DocName,
		"questions": state.Questions,
		"answers":   state.Answers,
	}
	if state.Report != nil {
		resp["report"] = state.Report
		resp["score"] = state.Report.Score()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request, state *session.State) {
	name, text, err := s.readPDF(r)
	if err != nil {
		respondError(w, err)
		return
	}

	summary, err := s.summarizer.Summarize(r.Context(), text, func(step, message string, current, total int) {
		log.Printf("summarize %s: chunk %d/%d", name, current, total)
	})
	if err != nil {
		respondError(w, err)
		return
	}

	state.Summary = summary
	state.SumName = name
	writeJSON(w, http.StatusOK, map[string]any{
		"document": name,
		"summary":  summary,
	})
}

func (s *Server) handleSummaryDownload(w http.ResponseWriter, r *http.Request, state *session.State) {
	if state.Summary == "" {
		writeError(w, http.StatusNotFound, "no summary available")
		return
	}
	name := strings.TrimSuffix(state.SumName, ".pdf")
	if name == "" {
		name = "summary"
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`_summary.txt"`)
	_, _ = w.Write([]byte(state.Summary))
}

func (s *Server) handleEssayScore(w http.ResponseWriter, r *http.Request) {
	if s.essayModel == nil {
		writeError(w, http.StatusServiceUnavailable, "essay scoring model is not configured")
		return
	}
	var payload struct {
		Essay string `json:"essay"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if strings.TrimSpace(payload.Essay) == "" {
		writeError(w, http.StatusBadRequest, "essay text is empty")
		return
	}

	score := s.essayModel.Score(payload.Essay)
	writeJSON(w, http.StatusOK, map[string]any{
		"score": score,
		"min":   s.essayModel.MinScore,
		"max":   s.essayModel.MaxScore,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, state *session.State) {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	message := strings.TrimSpace(payload.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, "message is empty")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	history := append(state.Chat, models.ChatMessage{Role: "user", Content: message})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	reply, err := s.tutor.Reply(r.Context(), history, func(chunk string) error {
		return writeSSE(w, flusher, "chunk", chunk)
	})
	if err != nil {
		// Headers are already out; deliver the failure on the stream. The
		// history is only committed on success.
		_ = writeSSE(w, flusher, "error", err.Error())
		return
	}

	state.Chat = append(history, models.ChatMessage{Role: "assistant", Content: reply})
	_ = writeSSE(w, flusher, "done", "")
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request, state *session.State) {
	messages := state.Chat
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) handleCallLog(w http.ResponseWriter, r *http.Request) {
	if s.calls == nil {
		writeJSON(w, http.StatusOK, map[string]any{"calls": []store.CallEntry{}})
		return
	}
	entries, err := s.calls.Recent(r.Context(), 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"calls": entries})
}

type badRequestError struct {
	message string
}

func (e *badRequestError) Error() string { return e.message }

// respondError maps the error taxonomy onto status codes. Parse failures
// carry the raw model output so the user can see what came back.
func respondError(w http.ResponseWriter, err error) {
	var badReq *badRequestError
	if errors.As(err, &badReq) {
		writeError(w, http.StatusBadRequest, badReq.message)
		return
	}

	var extraction *services.ExtractionError
	if errors.As(err, &extraction) {
		writeError(w, http.StatusUnprocessableEntity, extraction.Error())
		return
	}

	var parseErr *quiz.ParseError
	if errors.As(err, &parseErr) {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": parseErr.Error(),
			"raw":   parseErr.Raw,
		})
		return
	}

	var validation *quiz.ValidationError
	if errors.As(err, &validation) {
		writeError(w, http.StatusBadGateway, validation.Error())
		return
	}

	var completion *llm.CompletionError
	if errors.As(err, &completion) {
		writeError(w, http.StatusBadGateway, completion.Error())
		return
	}

	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event, data string) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("event: " + event + "\ndata: " + string(payload) + "\n\n")); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
