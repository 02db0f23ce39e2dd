package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the repositories use.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS quotes (
	id           BIGSERIAL PRIMARY KEY,
	language     TEXT        NOT NULL,
	site_key     TEXT        NOT NULL,
	page_id      BIGINT      NOT NULL,
	page_title   TEXT        NOT NULL,
	quote_text   TEXT        NOT NULL CHECK (quote_text <> ''),
	content_hash TEXT        NOT NULL,
	source_url   TEXT        NOT NULL,
	fetched_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_quotes_language_hash ON quotes (language, content_hash);
CREATE INDEX IF NOT EXISTS idx_quotes_language_page ON quotes (language, page_id);

CREATE TABLE IF NOT EXISTS crawl_checkpoints (
	site_key   TEXT PRIMARY KEY,
	token      TEXT        NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// EnsureSchema creates the tables and indexes if needed.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
