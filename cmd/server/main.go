package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"thinkr/internal/api"
	"thinkr/internal/config"
	"thinkr/internal/essay"
	"thinkr/internal/llm"
	"thinkr/internal/quiz"
	"thinkr/internal/services"
	"thinkr/internal/session"
	"thinkr/internal/store"
)

func main() {
	cfg := config.Load()

	conn, err := store.Open(cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer conn.Close()
	calls := store.NewCallLog(conn)

	var completer llm.Completer
	var provider string
	switch {
	case cfg.UseGemini():
		completer = llm.NewGeminiClient(cfg.GeminiKey, cfg.GeminiModel)
		provider = "gemini"
	case cfg.OpenAIKey != "":
		completer = llm.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIEndpoint)
		provider = "openai"
	default:
		log.Fatal("set GEMINI_API_KEY or OPENAI_API_KEY")
	}
	log.Printf("using %s completion backend", provider)
	completer = llm.NewLoggingCompleter(completer, provider, calls)

	var essayModel *essay.Model
	if model, err := essay.LoadModel(cfg.EssayModel); err != nil {
		log.Printf("essay scoring disabled: %v", err)
	} else {
		essayModel = model
	}

	timeout := time.Duration(cfg.LLMTimeout)
	sessions := session.NewStore(cfg.SessionSecret)
	pdfService := services.NewPDFService()
	generator := quiz.NewGenerator(completer, cfg.PromptBudget, timeout)
	grader := quiz.NewGrader(completer, cfg.PromptBudget, timeout)
	summarizer := services.NewSummarizer(completer, cfg.ChunkSize, timeout)
	tutor := services.NewTutor(completer, timeout)

	server := api.NewServer(sessions, pdfService, generator, grader, summarizer, tutor, essayModel, calls, cfg.MaxUploadMB)

	mux := http.NewServeMux()
	mux.HandleFunc("/", serveFile("./internal/web/index.html"))
	mux.HandleFunc("/quiz", serveFile("./internal/web/quiz.html"))
	mux.HandleFunc("/summarizer", serveFile("./internal/web/summarizer.html"))
	mux.HandleFunc("/essay", serveFile("./internal/web/essay.html"))
	mux.Handle("/api", server.Handler())
	mux.Handle("/api/", server.Handler())

	log.Printf("listening on :%s", cfg.Port)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// Completions and SSE streams can be slow; leave writes generous.
		WriteTimeout: 5 * time.Minute,
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}

func serveFile(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if _, err := os.Stat(path); err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, path)
	}
}
