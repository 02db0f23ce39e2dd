package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/user/quote-harvester/internal/entity"
	"github.com/user/quote-harvester/internal/repository"
)

var _ repository.CheckpointRepository = (*CheckpointRepoImpl)(nil)

// CheckpointRepoImpl provides the CheckpointRepository on SQLite.
type CheckpointRepoImpl struct {
	db  *sql.DB
	now func() time.Time
}

// NewCheckpointRepo creates a new instance of CheckpointRepoImpl.
func NewCheckpointRepo(db *sql.DB) *CheckpointRepoImpl {
	return &CheckpointRepoImpl{db: db, now: time.Now}
}

// Get returns the stored continuation token of a site.
func (r *CheckpointRepoImpl) Get(ctx context.Context, siteKey string) (string, bool, error) {
	var token string
	err := r.db.QueryRowContext(ctx,
		`SELECT token FROM crawl_checkpoints WHERE site_key = ?`, siteKey,
	).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read checkpoint for %s: %w", siteKey, err)
	}
	return token, true, nil
}

// Set upserts the continuation token of a site.
func (r *CheckpointRepoImpl) Set(ctx context.Context, siteKey, token string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO crawl_checkpoints (site_key, token, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (site_key) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at`,
		siteKey, token, r.now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to save checkpoint for %s: %w", siteKey, err)
	}
	return nil
}

// Reset removes the checkpoint of a site.
func (r *CheckpointRepoImpl) Reset(ctx context.Context, siteKey string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM crawl_checkpoints WHERE site_key = ?`, siteKey); err != nil {
		return fmt.Errorf("failed to reset checkpoint for %s: %w", siteKey, err)
	}
	return nil
}

// List returns every stored checkpoint.
func (r *CheckpointRepoImpl) List(ctx context.Context) ([]entity.Checkpoint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT site_key, token, updated_at FROM crawl_checkpoints ORDER BY site_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []entity.Checkpoint
	for rows.Next() {
		var cp entity.Checkpoint
		var updatedAt string
		if err := rows.Scan(&cp.SiteKey, &cp.Token, &updatedAt); err != nil {
			return nil, err
		}
		cp.UpdatedAt = parseTime(updatedAt)
		checkpoints = append(checkpoints, cp)
	}
	return checkpoints, rows.Err()
}
