package repository

import (
	"context"

	"github.com/user/quote-harvester/internal/entity"
)

// QuoteRepository defines the durable, deduplicated quote collection.
type QuoteRepository interface {
	// Count returns the number of committed quotes, filtered by language when non-empty.
	Count(ctx context.Context, language string) (int, error)
	// InsertBatch persists quotes atomically and returns how many rows were new.
	// Rows whose (language, content_hash) already exists are skipped silently.
	InsertBatch(ctx context.Context, quotes []entity.Quote) (int, error)
	// List returns up to limit quotes in insertion order. limit <= 0 means no limit.
	List(ctx context.Context, language string, limit int) ([]entity.Quote, error)
}
