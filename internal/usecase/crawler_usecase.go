package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/user/quote-harvester/internal/entity"
	"github.com/user/quote-harvester/internal/extractor"
	"github.com/user/quote-harvester/internal/repository"
	"github.com/user/quote-harvester/pkg/metrics"
	"github.com/user/quote-harvester/pkg/utils"
)

// checkpointWriteTimeout bounds the final checkpoint write after cancellation.
const checkpointWriteTimeout = 5 * time.Second

// Scheduler runs the resumable, quota-bounded crawl of one site.
type Scheduler interface {
	CrawlSite(ctx context.Context, site entity.Site, runID string) (*entity.CrawlReport, error)
}

// BackoffPolicy is the capped exponential retry policy of page enumeration.
// MaxAttempts 0 retries until the context is cancelled.
type BackoffPolicy struct {
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64
	MaxAttempts int
}

func (p BackoffPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.Initial
	eb.MaxInterval = p.Max
	if p.Multiplier > 1 {
		eb.Multiplier = p.Multiplier
	}
	eb.MaxElapsedTime = 0
	eb.Reset()

	var b backoff.BackOff = eb
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts))
	}
	return backoff.WithContext(b, ctx)
}

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	// PageDelay is the minimum pause after every page, whatever its outcome.
	PageDelay time.Duration
	Backoff   BackoffPolicy
}

type stopReason int

const (
	batchComplete stopReason = iota
	stopQuota
	stopCancelled
)

type crawlerUseCase struct {
	quotes      repository.QuoteRepository
	checkpoints repository.CheckpointRepository
	enumerator  repository.PageEnumerator
	fetcher     repository.PageFetcher
	opts        SchedulerOptions

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewScheduler creates a new instance of the crawl Scheduler.
func NewScheduler(
	quotes repository.QuoteRepository,
	checkpoints repository.CheckpointRepository,
	enumerator repository.PageEnumerator,
	fetcher repository.PageFetcher,
	opts SchedulerOptions,
) Scheduler {
	return &crawlerUseCase{
		quotes:      quotes,
		checkpoints: checkpoints,
		enumerator:  enumerator,
		fetcher:     fetcher,
		opts:        opts,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// CrawlSite walks the site from its checkpoint until the quota is met, the
// page space is exhausted or ctx is cancelled. Only store failures and an
// exhausted bounded retry policy return an error.
func (uc *crawlerUseCase) CrawlSite(ctx context.Context, site entity.Site, runID string) (*entity.CrawlReport, error) {
	log := slog.With("run_id", runID, "site", site.Key, "language", site.Language)
	report := &entity.CrawlReport{
		RunID:     runID,
		SiteKey:   site.Key,
		Language:  site.Language,
		Target:    site.Quota,
		StartedAt: uc.now(),
	}

	err := uc.crawl(ctx, log, site, report)

	report.FinishedAt = uc.now()
	if err != nil {
		report.Outcome = entity.OutcomeFailed
		report.Error = err.Error()
		log.Error("Crawl failed", "error", err, "inserted", report.Inserted)
	} else {
		log.Info("Crawl finished",
			"outcome", report.Outcome,
			"inserted", report.Inserted,
			"target", report.Target,
			"batches", report.Batches,
			"pages", report.PagesProcessed,
			"skipped", report.PagesSkipped,
		)
	}
	metrics.CrawlsTotal.WithLabelValues(site.Key, string(report.Outcome)).Inc()
	metrics.CrawlDuration.WithLabelValues(site.Key).Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	return report, err
}

func (uc *crawlerUseCase) crawl(ctx context.Context, log *slog.Logger, site entity.Site, report *entity.CrawlReport) error {
	// Resume
	token, found, err := uc.checkpoints.Get(ctx, site.Key)
	if err != nil {
		return err
	}
	start, err := uc.quotes.Count(ctx, site.Language)
	if err != nil {
		return err
	}
	log.Info("Crawl resumed", "checkpoint", token, "has_checkpoint", found, "existing", start, "target", site.Quota)

	if site.Quota <= 0 {
		report.Outcome = entity.OutcomeQuotaReached
		return nil
	}

	for {
		if ctx.Err() != nil {
			report.Outcome = entity.OutcomeCancelled
			uc.persistOnExit(ctx, log, site.Key, token)
			return nil
		}

		// EnumerateBatch
		pages, next, err := uc.enumerate(ctx, log, site, token)
		if err != nil {
			if ctx.Err() != nil {
				report.Outcome = entity.OutcomeCancelled
				uc.persistOnExit(ctx, log, site.Key, token)
				return nil
			}
			return fmt.Errorf("enumeration of %s gave up: %w", site.Key, err)
		}
		report.Batches++
		metrics.BatchesTotal.WithLabelValues(site.Key).Inc()
		if len(pages) == 0 {
			report.Outcome = entity.OutcomeExhausted
			return nil
		}
		log.Debug("Batch received", "pages", len(pages), "token", token, "next", next)

		// ProcessPage*
		reason, err := uc.processBatch(ctx, log, site, pages, start, report)
		if err != nil {
			return err
		}
		if reason != batchComplete {
			// The rest of this batch was never seen; keep the cursor on it.
			report.Outcome = entity.OutcomeQuotaReached
			if reason == stopCancelled {
				report.Outcome = entity.OutcomeCancelled
			}
			uc.persistOnExit(ctx, log, site.Key, token)
			return nil
		}

		// QuotaCheck
		inserted, err := uc.insertedSince(ctx, site.Language, start)
		if err != nil {
			if ctx.Err() != nil {
				report.Outcome = entity.OutcomeCancelled
				uc.persistOnExit(ctx, log, site.Key, cursorAfter(token, next))
				return nil
			}
			return err
		}
		report.Inserted = inserted

		// PersistCheckpoint
		if next == "" {
			report.Outcome = entity.OutcomeExhausted
			if inserted >= site.Quota {
				report.Outcome = entity.OutcomeQuotaReached
			}
			return nil
		}
		if err := uc.checkpoints.Set(ctx, site.Key, next); err != nil {
			if ctx.Err() != nil {
				report.Outcome = entity.OutcomeCancelled
				uc.persistOnExit(ctx, log, site.Key, next)
				return nil
			}
			return err
		}
		token = next

		if inserted >= site.Quota {
			report.Outcome = entity.OutcomeQuotaReached
			return nil
		}
	}
}

func (uc *crawlerUseCase) processBatch(
	ctx context.Context,
	log *slog.Logger,
	site entity.Site,
	pages []entity.PageRef,
	start int,
	report *entity.CrawlReport,
) (stopReason, error) {
	for _, page := range pages {
		if ctx.Err() != nil {
			return stopCancelled, nil
		}
		inserted, err := uc.insertedSince(ctx, site.Language, start)
		if err != nil {
			if ctx.Err() != nil {
				return stopCancelled, nil
			}
			return batchComplete, err
		}
		report.Inserted = inserted
		remaining := site.Quota - inserted
		if remaining <= 0 {
			return stopQuota, nil
		}

		outcome := uc.processPage(ctx, log, site, page, remaining)
		report.PagesProcessed++
		if outcome != "inserted" && outcome != "no_new" {
			report.PagesSkipped++
		}
		metrics.PagesTotal.WithLabelValues(site.Key, outcome).Inc()

		if err := uc.sleep(ctx, uc.opts.PageDelay); err != nil {
			return stopCancelled, nil
		}
	}
	return batchComplete, nil
}

// processPage fetches, extracts and stores one page. Failures only skip the page.
func (uc *crawlerUseCase) processPage(ctx context.Context, log *slog.Logger, site entity.Site, page entity.PageRef, remaining int) string {
	markup, err := uc.fetcher.FetchContent(ctx, site, page.ID)
	if err != nil {
		log.Warn("Page fetch failed, skipping", "page_id", page.ID, "title", page.Title, "error", err)
		return "fetch_failed"
	}
	if markup == "" {
		return "empty"
	}

	candidates := extractor.Extract(markup)
	if len(candidates) == 0 {
		return "no_quotes"
	}
	if len(candidates) > remaining {
		candidates = candidates[:remaining]
	}

	fetchedAt := uc.now().UTC()
	sourceURL := utils.SourceURL(site.BaseURL, page.Title)
	rows := make([]entity.Quote, 0, len(candidates))
	for _, text := range candidates {
		rows = append(rows, entity.Quote{
			Language:    site.Language,
			SiteKey:     site.Key,
			PageID:      page.ID,
			PageTitle:   page.Title,
			Text:        text,
			ContentHash: utils.ContentHash(site.Language, text),
			SourceURL:   sourceURL,
			FetchedAt:   fetchedAt,
		})
	}

	added, err := uc.quotes.InsertBatch(ctx, rows)
	if err != nil {
		log.Warn("Quote insert failed, skipping page", "page_id", page.ID, "title", page.Title, "error", err)
		return "insert_failed"
	}
	log.Debug("Page processed", "page_id", page.ID, "title", page.Title, "candidates", len(rows), "inserted", added)
	if added == 0 {
		return "no_new"
	}
	metrics.QuotesInserted.WithLabelValues(site.Key, site.Language).Add(float64(added))
	return "inserted"
}

func (uc *crawlerUseCase) enumerate(ctx context.Context, log *slog.Logger, site entity.Site, token string) ([]entity.PageRef, string, error) {
	var (
		pages []entity.PageRef
		next  string
	)
	op := func() error {
		var err error
		pages, next, err = uc.enumerator.NextBatch(ctx, site, token)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		metrics.EnumerationRetries.WithLabelValues(site.Key).Inc()
		log.Warn("Page enumeration failed, retrying", "token", token, "retry_in", wait, "error", err)
	}
	if err := backoff.RetryNotify(op, uc.opts.Backoff.newBackOff(ctx), notify); err != nil {
		return nil, "", err
	}
	return pages, next, nil
}

// insertedSince derives run progress from the store, never from a cached counter.
func (uc *crawlerUseCase) insertedSince(ctx context.Context, language string, start int) (int, error) {
	current, err := uc.quotes.Count(ctx, language)
	if err != nil {
		return 0, err
	}
	return current - start, nil
}

// persistOnExit rewrites the cursor of the batch in progress. It runs detached
// from ctx so a cancelled run still records where it stopped.
func (uc *crawlerUseCase) persistOnExit(ctx context.Context, log *slog.Logger, siteKey, token string) {
	if token == "" {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), checkpointWriteTimeout)
	defer cancel()
	if err := uc.checkpoints.Set(wctx, siteKey, token); err != nil {
		log.Warn("Failed to persist checkpoint on exit", "token", token, "error", err)
	}
}

// cursorAfter is the cursor once a batch has been fully processed.
func cursorAfter(token, next string) string {
	if next != "" {
		return next
	}
	return token
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
