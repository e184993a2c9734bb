package llm

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// CallRecord represents a single LLM API call.
type CallRecord struct {
	// RequestID uniquely identifies this LLM call.
	RequestID string `json:"request_id"`

	// Operation is the coaching operation that made the call (generate_plan, ...).
	Operation string `json:"operation,omitempty"`

	// WeekID is the week the operation worked on.
	WeekID string `json:"week_id,omitempty"`

	// Capability is the semantic capability requested.
	Capability string `json:"capability"`

	// Model is the actual model that was used for this call.
	Model string `json:"model"`

	// Provider is the LLM provider (openai, azure, ollama, anthropic, gemini).
	Provider string `json:"provider"`

	// Messages is the input message history sent to the LLM.
	Messages []Message `json:"messages"`

	// Response is the generated content from the LLM.
	Response string `json:"response"`

	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	FinishReason     string `json:"finish_reason"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`

	// Error contains the error message if the call failed.
	Error string `json:"error,omitempty"`
}

// CallStore persists call records in SQLite.
type CallStore struct {
	db *sql.DB
}

// OpenCallStore opens (creating if needed) the call log at path.
func OpenCallStore(ctx context.Context, path string) (*CallStore, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve call log path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure call log dir: %w", err)
	}

	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, fmt.Errorf("open call log: %w", err)
	}
	// A single connection serializes writers on the one file.
	db.SetMaxOpenConns(1)

	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &CallStore{db: db}, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS calls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL UNIQUE,
			operation TEXT NOT NULL,
			week_id TEXT NOT NULL,
			capability TEXT NOT NULL,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			duration_ms INTEGER NOT NULL,
			total_tokens INTEGER NOT NULL,
			error TEXT NOT NULL,
			record_json TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create call log schema: %w", err)
	}
	return nil
}

// Store writes one record.
func (s *CallStore) Store(ctx context.Context, r *CallRecord) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal call record: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO calls (request_id, operation, week_id, capability, provider, model,
			started_at, duration_ms, total_tokens, error, record_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RequestID, r.Operation, r.WeekID, r.Capability, r.Provider, r.Model,
		r.StartedAt.UTC(), r.DurationMs, r.TotalTokens, r.Error, string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert call record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *CallStore) Recent(ctx context.Context, limit int) ([]*CallRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT record_json FROM calls ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query call log: %w", err)
	}
	defer rows.Close()

	var records []*CallRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan call record: %w", err)
		}
		var r CallRecord
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("decode call record: %w", err)
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

// Close releases the database handle.
func (s *CallStore) Close() error {
	return s.db.Close()
}

// TraceContext identifies the operation a model call belongs to.
type TraceContext struct {
	Operation string
	WeekID    string
}

// traceContextKey is the context key for trace information.
type traceContextKey struct{}

// WithTraceContext adds trace information to a context.
func WithTraceContext(ctx context.Context, tc TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, tc)
}

// GetTraceContext extracts trace information from a context.
func GetTraceContext(ctx context.Context) TraceContext {
	if tc, ok := ctx.Value(traceContextKey{}).(TraceContext); ok {
		return tc
	}
	return TraceContext{}
}
