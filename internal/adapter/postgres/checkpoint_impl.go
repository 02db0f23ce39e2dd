package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/user/quote-harvester/internal/entity"
	"github.com/user/quote-harvester/internal/repository"
)

var _ repository.CheckpointRepository = (*CheckpointRepoImpl)(nil)

// CheckpointRepoImpl provides a concrete implementation for the CheckpointRepository interface using PostgreSQL.
type CheckpointRepoImpl struct {
	db DB
}

// NewCheckpointRepo creates a new instance of CheckpointRepoImpl.
func NewCheckpointRepo(db DB) *CheckpointRepoImpl {
	return &CheckpointRepoImpl{db: db}
}

// Get returns the continuation token of a site, if any.
func (r *CheckpointRepoImpl) Get(ctx context.Context, siteKey string) (string, bool, error) {
	var token string
	err := r.db.QueryRow(ctx,
		`SELECT token FROM crawl_checkpoints WHERE site_key = $1;`, siteKey,
	).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read checkpoint for %s: %w", siteKey, err)
	}
	return token, true, nil
}

// Set creates or overwrites the checkpoint of a site.
func (r *CheckpointRepoImpl) Set(ctx context.Context, siteKey, token string) error {
	query := `
		INSERT INTO crawl_checkpoints (site_key, token, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (site_key) DO UPDATE SET
			token = EXCLUDED.token,
			updated_at = EXCLUDED.updated_at;
	`
	if _, err := r.db.Exec(ctx, query, siteKey, token); err != nil {
		return fmt.Errorf("failed to save checkpoint for %s: %w", siteKey, err)
	}
	return nil
}

// Reset removes a checkpoint, typically on operator request.
func (r *CheckpointRepoImpl) Reset(ctx context.Context, siteKey string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM crawl_checkpoints WHERE site_key = $1;`, siteKey); err != nil {
		return fmt.Errorf("failed to reset checkpoint for %s: %w", siteKey, err)
	}
	return nil
}

// List retrieves every checkpoint ordered by site key.
func (r *CheckpointRepoImpl) List(ctx context.Context) ([]entity.Checkpoint, error) {
	rows, err := r.db.Query(ctx,
		`SELECT site_key, token, updated_at FROM crawl_checkpoints ORDER BY site_key;`)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []entity.Checkpoint
	for rows.Next() {
		var cp entity.Checkpoint
		if err := rows.Scan(&cp.SiteKey, &cp.Token, &cp.UpdatedAt); err != nil {
			return nil, err
		}
		checkpoints = append(checkpoints, cp)
	}

	return checkpoints, rows.Err()
}
