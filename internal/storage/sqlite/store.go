// Package sqlite provides a SQLite-backed tool invocation history store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/workbenchd/workbench/internal/platform/storage/sqlitemigrate"
	"github.com/workbenchd/workbench/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Tool provenance values recorded with each invocation.
const (
	OriginNative    = "native"
	OriginCompanion = "companion"
)

// Invocation is one recorded tool call.
type Invocation struct {
	ID         int64
	ToolName   string
	RemoteName string
	Origin     string
	Outcome    string
	Duration   time.Duration
	CreatedAt  time.Time
}

// Store persists tool invocation history in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite history store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordInvocation inserts one invocation record.
func (s *Store) RecordInvocation(ctx context.Context, invocation Invocation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	toolName := strings.TrimSpace(invocation.ToolName)
	if toolName == "" {
		return fmt.Errorf("tool name is required")
	}
	origin := strings.TrimSpace(invocation.Origin)
	if origin == "" {
		origin = OriginNative
	}
	outcome := strings.TrimSpace(invocation.Outcome)
	if outcome == "" {
		outcome = "ok"
	}
	createdAt := invocation.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO tool_invocations (
		   tool_name,
		   remote_name,
		   origin,
		   outcome,
		   duration_ms,
		   created_at
		 ) VALUES (?, ?, ?, ?, ?, ?)`,
		toolName,
		strings.TrimSpace(invocation.RemoteName),
		origin,
		outcome,
		invocation.Duration.Milliseconds(),
		toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("record invocation: %w", err)
	}
	return nil
}

// ListRecent returns the most recent invocations, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Invocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, tool_name, remote_name, origin, outcome, duration_ms, created_at
		   FROM tool_invocations
		  ORDER BY created_at DESC, id DESC
		  LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list invocations: %w", err)
	}
	defer rows.Close()

	invocations := make([]Invocation, 0, limit)
	for rows.Next() {
		var invocation Invocation
		var durationMillis int64
		var createdAt int64
		if err := rows.Scan(
			&invocation.ID,
			&invocation.ToolName,
			&invocation.RemoteName,
			&invocation.Origin,
			&invocation.Outcome,
			&durationMillis,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("list invocations: %w", err)
		}
		invocation.Duration = time.Duration(durationMillis) * time.Millisecond
		invocation.CreatedAt = fromMillis(createdAt)
		invocations = append(invocations, invocation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list invocations: %w", err)
	}
	return invocations, nil
}
