package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/quote-harvester/internal/entity"
	"github.com/user/quote-harvester/internal/repository"
)

const runLogWriteTimeout = 5 * time.Second

// Harvester crawls every configured site once, in priority order.
type Harvester interface {
	Run(ctx context.Context, sites []entity.Site) ([]entity.CrawlReport, error)
}

// HarvestOptions configures a Harvester.
type HarvestOptions struct {
	Concurrent bool
	LockTTL    time.Duration
}

type harvestUseCase struct {
	scheduler Scheduler
	prober    repository.SiteProber
	lock      repository.SiteLock
	runLog    repository.RunLogRepository
	opts      HarvestOptions
	newRunID  func() string
}

// NewHarvester creates a new Harvester. lock and runLog may be nil when no
// Redis is configured.
func NewHarvester(
	scheduler Scheduler,
	prober repository.SiteProber,
	lock repository.SiteLock,
	runLog repository.RunLogRepository,
	opts HarvestOptions,
) Harvester {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}
	return &harvestUseCase{
		scheduler: scheduler,
		prober:    prober,
		lock:      lock,
		runLog:    runLog,
		opts:      opts,
		newRunID:  uuid.NewString,
	}
}

// Run probes all sites first; an unreachable endpoint is a configuration
// error reported before any crawl state is read. Per-site failures never stop
// the other sites and are returned in the reports.
func (uc *harvestUseCase) Run(ctx context.Context, sites []entity.Site) ([]entity.CrawlReport, error) {
	if len(sites) == 0 {
		return nil, fmt.Errorf("no sites to crawl: %w", repository.ErrInvalidConfig)
	}
	for _, site := range sites {
		if err := uc.prober.Probe(ctx, site); err != nil {
			return nil, fmt.Errorf("site %s is unreachable: %v: %w", site.Key, err, repository.ErrInvalidConfig)
		}
	}

	runID := uc.newRunID()
	slog.Info("Harvest started", "run_id", runID, "sites", len(sites), "concurrent", uc.opts.Concurrent)

	reports := make([]entity.CrawlReport, len(sites))
	if uc.opts.Concurrent {
		var wg sync.WaitGroup
		for i, site := range sites {
			wg.Add(1)
			go func() {
				defer wg.Done()
				reports[i] = uc.runSite(ctx, site, runID)
			}()
		}
		wg.Wait()
	} else {
		for i, site := range sites {
			if ctx.Err() != nil {
				reports = reports[:i]
				break
			}
			reports[i] = uc.runSite(ctx, site, runID)
		}
	}

	slog.Info("Harvest finished", "run_id", runID, "sites", len(reports))
	return reports, nil
}

func (uc *harvestUseCase) runSite(ctx context.Context, site entity.Site, runID string) entity.CrawlReport {
	log := slog.With("run_id", runID, "site", site.Key)

	siteCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if uc.lock != nil {
		if err := uc.lock.Acquire(ctx, site.Key, runID, uc.opts.LockTTL); err != nil {
			if errors.Is(err, repository.ErrLockHeld) {
				log.Warn("Site is being crawled elsewhere, skipping")
			} else {
				log.Error("Failed to acquire site lock", "error", err)
			}
			now := time.Now()
			report := entity.CrawlReport{
				RunID:      runID,
				SiteKey:    site.Key,
				Language:   site.Language,
				Target:     site.Quota,
				Outcome:    entity.OutcomeFailed,
				StartedAt:  now,
				FinishedAt: now,
				Error:      err.Error(),
			}
			uc.record(ctx, log, &report)
			return report
		}
		stop := uc.keepLease(siteCtx, cancel, log, site.Key, runID)
		defer func() {
			stop()
			rctx, rcancel := context.WithTimeout(context.WithoutCancel(ctx), runLogWriteTimeout)
			defer rcancel()
			if err := uc.lock.Release(rctx, site.Key, runID); err != nil {
				log.Warn("Failed to release site lock", "error", err)
			}
		}()
	}

	report, err := uc.scheduler.CrawlSite(siteCtx, site, runID)
	if report == nil {
		report = &entity.CrawlReport{RunID: runID, SiteKey: site.Key, Language: site.Language, Outcome: entity.OutcomeFailed}
		if err != nil {
			report.Error = err.Error()
		}
	}
	uc.record(ctx, log, report)
	return *report
}

// keepLease refreshes the site lock until stopped, cancelling the crawl when
// the lease is lost to another worker.
func (uc *harvestUseCase) keepLease(ctx context.Context, cancel context.CancelFunc, log *slog.Logger, siteKey, owner string) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(uc.opts.LockTTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := uc.lock.Refresh(ctx, siteKey, owner, uc.opts.LockTTL)
				if errors.Is(err, repository.ErrLockHeld) {
					log.Error("Site lock lost, stopping crawl")
					cancel()
					return
				}
				if err != nil {
					log.Warn("Failed to refresh site lock", "error", err)
				}
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

func (uc *harvestUseCase) record(ctx context.Context, log *slog.Logger, report *entity.CrawlReport) {
	if uc.runLog == nil {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runLogWriteTimeout)
	defer cancel()
	if err := uc.runLog.Push(wctx, report); err != nil {
		log.Warn("Failed to record crawl report", "error", err)
	}
}
