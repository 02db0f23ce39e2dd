package postgres

import (
	"context"
	"fmt"

	"github.com/user/quote-harvester/internal/entity"
	"github.com/user/quote-harvester/internal/repository"
)

var _ repository.QuoteRepository = (*QuoteRepoImpl)(nil)

// QuoteRepoImpl provides a concrete implementation for the QuoteRepository interface using PostgreSQL.
type QuoteRepoImpl struct {
	db DB
}

// NewQuoteRepo creates a new instance of QuoteRepoImpl.
func NewQuoteRepo(db DB) *QuoteRepoImpl {
	return &QuoteRepoImpl{db: db}
}

// Count returns the number of committed quotes, optionally for one language.
func (r *QuoteRepoImpl) Count(ctx context.Context, language string) (int, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM quotes WHERE ($1 = '' OR language = $1)`, language,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count quotes: %w", err)
	}
	return int(n), nil
}

// InsertBatch stores the quotes within a single transaction. Known hashes are
// skipped through the unique index and do not count as inserted.
func (r *QuoteRepoImpl) InsertBatch(ctx context.Context, quotes []entity.Quote) (int, error) {
	if len(quotes) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `
		INSERT INTO quotes (language, site_key, page_id, page_title, quote_text, content_hash, source_url, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (language, content_hash) DO NOTHING;
	`

	inserted := 0
	for _, q := range quotes {
		tag, err := tx.Exec(ctx, query,
			q.Language,
			q.SiteKey,
			q.PageID,
			q.PageTitle,
			q.Text,
			q.ContentHash,
			q.SourceURL,
			q.FetchedAt,
		)
		if err != nil {
			_ = tx.Rollback(ctx)
			return 0, fmt.Errorf("failed to insert quote %s: %w", q.ContentHash, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit quotes: %w", err)
	}
	return inserted, nil
}

// List retrieves quotes in insertion order.
func (r *QuoteRepoImpl) List(ctx context.Context, language string, limit int) ([]entity.Quote, error) {
	query := `
		SELECT id, language, site_key, page_id, page_title, quote_text, content_hash, source_url, fetched_at
		FROM quotes
		WHERE ($1 = '' OR language = $1)
		ORDER BY id
	`
	args := []any{language}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	defer rows.Close()

	var quotes []entity.Quote
	for rows.Next() {
		var q entity.Quote
		if err := rows.Scan(
			&q.ID,
			&q.Language,
			&q.SiteKey,
			&q.PageID,
			&q.PageTitle,
			&q.Text,
			&q.ContentHash,
			&q.SourceURL,
			&q.FetchedAt,
		); err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}

	return quotes, rows.Err()
}
