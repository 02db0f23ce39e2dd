package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/user/quote-harvester/internal/entity"
	"github.com/user/quote-harvester/internal/repository"
)

const runLogKey = "harvester:runs"

var _ repository.RunLogRepository = (*RunLogImpl)(nil)

// RunLogImpl keeps recent crawl reports in a capped Redis list.
type RunLogImpl struct {
	client  redis.UniversalClient
	maxSize int64
}

// NewRunLog creates a new instance of RunLogImpl keeping at most maxSize reports.
func NewRunLog(client redis.UniversalClient, maxSize int) *RunLogImpl {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &RunLogImpl{client: client, maxSize: int64(maxSize)}
}

// Push adds a report to the left side of the list and trims the tail.
func (r *RunLogImpl) Push(ctx context.Context, report *entity.CrawlReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, runLogKey, payload)
	pipe.LTrim(ctx, runLogKey, 0, r.maxSize-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record crawl report: %w", err)
	}
	return nil
}

// Recent returns the newest reports first.
func (r *RunLogImpl) Recent(ctx context.Context, limit int) ([]entity.CrawlReport, error) {
	if limit <= 0 || int64(limit) > r.maxSize {
		limit = int(r.maxSize)
	}
	raw, err := r.client.LRange(ctx, runLogKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read crawl reports: %w", err)
	}
	reports := make([]entity.CrawlReport, 0, len(raw))
	for _, item := range raw {
		var rep entity.CrawlReport
		if err := json.Unmarshal([]byte(item), &rep); err != nil {
			return nil, fmt.Errorf("failed to decode crawl report: %w", err)
		}
		reports = append(reports, rep)
	}
	return reports, nil
}
