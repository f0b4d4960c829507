// Package store persists a diagnostic log of every LLM round trip. Session
// artifacts (question sets, answers, reports) are deliberately not stored;
// they live only in memory for the lifetime of a session.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Open connects to the SQLite database and runs schema migrations.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_foreign_keys=1", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	if err := migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return conn, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS llm_calls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			feature TEXT NOT NULL,
			provider TEXT NOT NULL,
			prompt_chars INTEGER NOT NULL DEFAULT 0,
			prompt TEXT NOT NULL,
			response TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_llm_calls_created ON llm_calls(created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_llm_calls_feature ON llm_calls(feature);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("execute %q: %w", stmt, err)
		}
	}
	return nil
}

// CallEntry is one recorded LLM round trip.
type CallEntry struct {
	ID        int64     `json:"id"`
	Feature   string    `json:"feature"`
	Provider  string    `json:"provider"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Error     string    `json:"error,omitempty"`
	Duration  int64     `json:"duration_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// CallLog records completion calls for later inspection.
type CallLog struct {
	db *sql.DB
}

func NewCallLog(db *sql.DB) *CallLog {
	return &CallLog{db: db}
}

func (l *CallLog) Record(ctx context.Context, entry CallEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO llm_calls (feature, provider, prompt_chars, prompt, response, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`, entry.Feature, entry.Provider, len(entry.Prompt), entry.Prompt, entry.Response, entry.Error, entry.Duration, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}

// Recent returns the newest calls first, at most limit of them.
func (l *CallLog) Recent(ctx context.Context, limit int) ([]CallEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, feature, provider, prompt, response, error, duration_ms, created_at
		FROM llm_calls ORDER BY created_at DESC, id DESC LIMIT ?;
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query llm calls: %w", err)
	}
	defer rows.Close()

	var entries []CallEntry
	for rows.Next() {
		var e CallEntry
		if err := rows.Scan(&e.ID, &e.Feature, &e.Provider, &e.Prompt, &e.Response, &e.Error, &e.Duration, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan llm call: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
