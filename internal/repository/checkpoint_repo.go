package repository

import (
	"context"

	"github.com/user/quote-harvester/internal/entity"
)

// CheckpointRepository defines storage of per-site enumeration cursors.
type CheckpointRepository interface {
	// Get returns the stored token and whether one exists.
	Get(ctx context.Context, siteKey string) (string, bool, error)
	// Set upserts the token of a site.
	Set(ctx context.Context, siteKey, token string) error
	// Reset deletes the checkpoint so the next crawl starts from the beginning.
	Reset(ctx context.Context, siteKey string) error
	// List returns all checkpoints ordered by site key.
	List(ctx context.Context) ([]entity.Checkpoint, error)
}
