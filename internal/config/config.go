package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration accepts Go duration strings ("2m", "45s") in YAML, alongside
// plain integer nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var ns int64
	if err := node.Decode(&ns); err == nil {
		*d = Duration(ns)
		return nil
	}
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config stores runtime configuration. Values come from an optional YAML
// file (THINKR_CONFIG, default ./thinkr.yaml) with environment variables
// taking precedence.
type Config struct {
	GeminiKey      string        `yaml:"gemini_api_key"`
	GeminiModel    string        `yaml:"gemini_model"`
	OpenAIKey      string        `yaml:"openai_api_key"`
	OpenAIEndpoint string        `yaml:"openai_endpoint"`
	OpenAIModel    string        `yaml:"openai_model"`
	Database       string        `yaml:"database"`
	EssayModel     string        `yaml:"essay_model"`
	SessionSecret  string        `yaml:"session_secret"`
	Port           string        `yaml:"port"`
	PromptBudget   int           `yaml:"prompt_budget"`
	ChunkSize      int           `yaml:"chunk_size"`
	MaxUploadMB    int           `yaml:"max_upload_mb"`
	LLMTimeout     Duration      `yaml:"llm_timeout"`
}

// Load reads configuration, providing sensible defaults.
func Load() Config {
	// Load .env file if it exists (useful for development)
	_ = godotenv.Load()

	cfg := Config{
		GeminiModel:    "gemini-2.5-flash",
		OpenAIEndpoint: "https://api.openai.com/v1",
		OpenAIModel:    "gpt-4o-mini",
		Database:       "./data/thinkr.db",
		EssayModel:     "./models/essay_model.json",
		Port:           "8080",
		PromptBudget:   30000,
		ChunkSize:      3000,
		MaxUploadMB:    16,
		LLMTimeout:     Duration(2 * time.Minute),
	}

	path := getEnv("THINKR_CONFIG", "./thinkr.yaml")
	if raw, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Fatalf("parse config file %s: %v", path, err)
		}
	}

	cfg.GeminiKey = getEnv("GEMINI_API_KEY", cfg.GeminiKey)
	cfg.GeminiModel = getEnv("GEMINI_MODEL", cfg.GeminiModel)
	cfg.OpenAIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIKey)
	cfg.OpenAIEndpoint = getEnv("OPENAI_API_ENDPOINT", cfg.OpenAIEndpoint)
	cfg.OpenAIModel = getEnv("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.Database = getEnv("DATABASE_PATH", cfg.Database)
	cfg.EssayModel = getEnv("ESSAY_MODEL_PATH", cfg.EssayModel)
	cfg.SessionSecret = getEnv("SESSION_SECRET", cfg.SessionSecret)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.PromptBudget = getEnvInt("PROMPT_BUDGET", cfg.PromptBudget)
	cfg.ChunkSize = getEnvInt("SUMMARY_CHUNK_SIZE", cfg.ChunkSize)
	cfg.MaxUploadMB = getEnvInt("MAX_UPLOAD_MB", cfg.MaxUploadMB)
	if v := os.Getenv("LLM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("invalid LLM_TIMEOUT %q: %v", v, err)
		}
		cfg.LLMTimeout = Duration(d)
	}

	if err := cfg.validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
		log.Fatalf("failed to ensure database dir %s: %v", cfg.Database, err)
	}

	return cfg
}

func (c Config) validate() error {
	if c.PromptBudget <= 0 {
		return fmt.Errorf("prompt budget must be positive, got %d", c.PromptBudget)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("llm timeout must be positive, got %s", time.Duration(c.LLMTimeout))
	}
	return nil
}

// UseGemini reports whether the Gemini backend should serve completions.
// Gemini wins when both providers are configured.
func (c Config) UseGemini() bool {
	return c.GeminiKey != ""
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid %s %q: %v", key, val, err)
	}
	return n
}
