package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/user/quote-harvester/internal/entity"
	"github.com/user/quote-harvester/internal/repository"
)

var _ repository.QuoteRepository = (*QuoteRepoImpl)(nil)

// QuoteRepoImpl provides the QuoteRepository on SQLite.
type QuoteRepoImpl struct {
	db *sql.DB
}

// NewQuoteRepo creates a new instance of QuoteRepoImpl.
func NewQuoteRepo(db *sql.DB) *QuoteRepoImpl {
	return &QuoteRepoImpl{db: db}
}

// Count returns the number of committed quotes, optionally for one language.
func (r *QuoteRepoImpl) Count(ctx context.Context, language string) (int, error) {
	var n int
	var err error
	if language == "" {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quotes`).Scan(&n)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quotes WHERE language = ?`, language).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count quotes: %w", err)
	}
	return n, nil
}

// InsertBatch inserts all quotes in one transaction, skipping known hashes.
func (r *QuoteRepoImpl) InsertBatch(ctx context.Context, quotes []entity.Quote) (int, error) {
	if len(quotes) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO quotes (language, site_key, page_id, page_title, quote_text, content_hash, source_url, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (language, content_hash) DO NOTHING`)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, q := range quotes {
		res, err := stmt.ExecContext(ctx,
			q.Language,
			q.SiteKey,
			q.PageID,
			q.PageTitle,
			q.Text,
			q.ContentHash,
			q.SourceURL,
			q.FetchedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to insert quote %s: %w", q.ContentHash, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to read rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit quotes: %w", err)
	}
	return inserted, nil
}

// List returns quotes in insertion order.
func (r *QuoteRepoImpl) List(ctx context.Context, language string, limit int) ([]entity.Quote, error) {
	query := `
		SELECT id, language, site_key, page_id, page_title, quote_text, content_hash, source_url, fetched_at
		FROM quotes
		WHERE (? = '' OR language = ?)
		ORDER BY id`
	args := []any{language, language}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	defer rows.Close()

	var quotes []entity.Quote
	for rows.Next() {
		var q entity.Quote
		var fetchedAt string
		if err := rows.Scan(
			&q.ID,
			&q.Language,
			&q.SiteKey,
			&q.PageID,
			&q.PageTitle,
			&q.Text,
			&q.ContentHash,
			&q.SourceURL,
			&fetchedAt,
		); err != nil {
			return nil, err
		}
		q.FetchedAt = parseTime(fetchedAt)
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
