// Package postgres implements the user and playlist stores on PostgreSQL with pgx.
//
// Edge sets, collaborators and songs live in JSONB columns. Version checks follow the same
// UPDATE ... WHERE version = $n contract as the SQLite repositories.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/dtunes/internal/shared"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB defines the interface for database operations.
// It is implemented by *pgxpool.Pool and can be mocked for testing.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		sequence BIGSERIAL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		friends JSONB NOT NULL DEFAULT '[]',
		incoming_requests JSONB NOT NULL DEFAULT '[]',
		outgoing_requests JSONB NOT NULL DEFAULT '[]',
		liked_songs JSONB NOT NULL DEFAULT '[]',
		pair_revisions JSONB NOT NULL DEFAULT '{}',
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS playlists (
		id TEXT PRIMARY KEY,
		sequence BIGSERIAL UNIQUE,
		creator_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		visibility TEXT NOT NULL DEFAULT 'private' CHECK (visibility IN ('private', 'group', 'public')),
		collaborators JSONB NOT NULL DEFAULT '[]',
		shared_link TEXT UNIQUE,
		songs JSONB NOT NULL DEFAULT '[]',
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (visibility <> 'public' OR shared_link IS NULL)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_playlists_creator ON playlists (creator_id)`,
	`CREATE INDEX IF NOT EXISTS idx_playlists_collaborators ON playlists USING GIN (collaborators)`,
}

// Connect opens a pgx pool for url and verifies it with a ping.
func Connect(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("%w: database url: %v", shared.ErrInvalidConfig, err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %v", shared.ErrUnavailable, err)
	}

	return pool, nil
}

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, db DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// casMiss explains why a version-guarded UPDATE touched no rows.
func casMiss(ctx context.Context, db DB, table, kind, id string) error {
	var exists bool
	err := db.QueryRow(ctx, fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)", table), id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check %s existence: %w", kind, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s %s", shared.ErrNotFound, kind, id)
	}
	return fmt.Errorf("%w: %s %s", shared.ErrVersionConflict, kind, id)
}

// classify maps driver errors onto the shared error kinds.
func classify(err error, what string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s already exists", shared.ErrConflict, what)
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", shared.ErrUnavailable, err)
	}
	return err
}

func jsonb(v any) ([]byte, error) {
	return json.Marshal(v)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
