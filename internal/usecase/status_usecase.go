package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/user/quote-harvester/internal/entity"
	"github.com/user/quote-harvester/internal/repository"
)

var ErrUnknownSite = errors.New("site is not configured")

// StatusService reports persisted progress and performs operator actions.
type StatusService interface {
	Stats(ctx context.Context) (*entity.StoreStats, error)
	RecentRuns(ctx context.Context, limit int) ([]entity.CrawlReport, error)
	ResetCheckpoint(ctx context.Context, siteKey string) error
	Health(ctx context.Context) map[string]error
}

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

type statusUseCase struct {
	quotes      repository.QuoteRepository
	checkpoints repository.CheckpointRepository
	runLog      repository.RunLogRepository
	languages   []string
	siteKeys    map[string]bool
	checks      map[string]HealthCheck
}

// NewStatusService creates a new StatusService. runLog may be nil.
func NewStatusService(
	quotes repository.QuoteRepository,
	checkpoints repository.CheckpointRepository,
	runLog repository.RunLogRepository,
	sites []entity.Site,
	checks map[string]HealthCheck,
) StatusService {
	uc := &statusUseCase{
		quotes:      quotes,
		checkpoints: checkpoints,
		runLog:      runLog,
		siteKeys:    make(map[string]bool),
		checks:      checks,
	}
	seen := make(map[string]bool)
	for _, s := range sites {
		uc.siteKeys[s.Key] = true
		if !seen[s.Language] {
			seen[s.Language] = true
			uc.languages = append(uc.languages, s.Language)
		}
	}
	return uc
}

func (uc *statusUseCase) Stats(ctx context.Context) (*entity.StoreStats, error) {
	total, err := uc.quotes.Count(ctx, "")
	if err != nil {
		return nil, err
	}
	stats := &entity.StoreStats{
		Total:      total,
		ByLanguage: make(map[string]int, len(uc.languages)),
	}
	for _, lang := range uc.languages {
		n, err := uc.quotes.Count(ctx, lang)
		if err != nil {
			return nil, err
		}
		stats.ByLanguage[lang] = n
	}
	stats.Checkpoints, err = uc.checkpoints.List(ctx)
	if err != nil {
		return nil, err
	}
	if stats.Checkpoints == nil {
		stats.Checkpoints = []entity.Checkpoint{}
	}
	return stats, nil
}

func (uc *statusUseCase) RecentRuns(ctx context.Context, limit int) ([]entity.CrawlReport, error) {
	if uc.runLog == nil {
		return []entity.CrawlReport{}, nil
	}
	return uc.runLog.Recent(ctx, limit)
}

// ResetCheckpoint makes the next crawl of siteKey start from the first page.
func (uc *statusUseCase) ResetCheckpoint(ctx context.Context, siteKey string) error {
	if !uc.siteKeys[siteKey] {
		return fmt.Errorf("%s: %w", siteKey, ErrUnknownSite)
	}
	if err := uc.checkpoints.Reset(ctx, siteKey); err != nil {
		return err
	}
	slog.Info("Checkpoint reset", "site", siteKey)
	return nil
}

func (uc *statusUseCase) Health(ctx context.Context) map[string]error {
	results := make(map[string]error, len(uc.checks))
	for name, check := range uc.checks {
		results[name] = check(ctx)
	}
	return results
}
