package repository

import (
	"context"

	"github.com/user/quote-harvester/internal/entity"
)

// RunLogRepository keeps a bounded history of crawl reports.
type RunLogRepository interface {
	// Push records a report, newest first.
	Push(ctx context.Context, report *entity.CrawlReport) error
	// Recent returns up to limit reports, newest first.
	Recent(ctx context.Context, limit int) ([]entity.CrawlReport, error)
}
