package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisadapter "github.com/user/quote-harvester/internal/adapter/redis"
	"github.com/user/quote-harvester/internal/entity"
	"github.com/user/quote-harvester/internal/repository"
)

type stubScheduler struct {
	mu    sync.Mutex
	calls []string
	crawl func(ctx context.Context, site entity.Site) (*entity.CrawlReport, error)
}

func (s *stubScheduler) CrawlSite(ctx context.Context, site entity.Site, runID string) (*entity.CrawlReport, error) {
	s.mu.Lock()
	s.calls = append(s.calls, site.Key)
	s.mu.Unlock()
	if s.crawl != nil {
		return s.crawl(ctx, site)
	}
	return &entity.CrawlReport{RunID: runID, SiteKey: site.Key, Language: site.Language, Outcome: entity.OutcomeExhausted}, nil
}

type stubProber struct {
	down map[string]bool
}

func (p stubProber) Probe(ctx context.Context, site entity.Site) error {
	if p.down[site.Key] {
		return errors.New("connection refused")
	}
	return nil
}

func twoSites() []entity.Site {
	en := testSite(10)
	zh := testSite(10)
	zh.Language, zh.Key = "zh", "zhwikiquote"
	return []entity.Site{en, zh}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, goredis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestHarvester_ProbeFailureStopsBeforeCrawling(t *testing.T) {
	sched := &stubScheduler{}
	h := NewHarvester(sched, stubProber{down: map[string]bool{"zhwikiquote": true}}, nil, nil, HarvestOptions{})

	reports, err := h.Run(context.Background(), twoSites())
	require.ErrorIs(t, err, repository.ErrInvalidConfig)
	assert.Nil(t, reports)
	assert.Empty(t, sched.calls)
}

func TestHarvester_NoSites(t *testing.T) {
	h := NewHarvester(&stubScheduler{}, stubProber{}, nil, nil, HarvestOptions{})
	_, err := h.Run(context.Background(), nil)
	require.ErrorIs(t, err, repository.ErrInvalidConfig)
}

func TestHarvester_SequentialInPriorityOrder(t *testing.T) {
	sched := &stubScheduler{}
	h := NewHarvester(sched, stubProber{}, nil, nil, HarvestOptions{})
	h.(*harvestUseCase).newRunID = func() string { return "run-fixed" }

	reports, err := h.Run(context.Background(), twoSites())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, []string{"enwikiquote", "zhwikiquote"}, sched.calls)
	assert.Equal(t, "run-fixed", reports[0].RunID)
	assert.Equal(t, "zhwikiquote", reports[1].SiteKey)
}

func TestHarvester_SiteFailureDoesNotStopOthers(t *testing.T) {
	sched := &stubScheduler{crawl: func(ctx context.Context, site entity.Site) (*entity.CrawlReport, error) {
		if site.Key == "enwikiquote" {
			return &entity.CrawlReport{SiteKey: site.Key, Outcome: entity.OutcomeFailed, Error: "store down"}, errors.New("store down")
		}
		return &entity.CrawlReport{SiteKey: site.Key, Outcome: entity.OutcomeQuotaReached, Inserted: 10}, nil
	}}
	h := NewHarvester(sched, stubProber{}, nil, nil, HarvestOptions{Concurrent: true})

	reports, err := h.Run(context.Background(), twoSites())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, entity.OutcomeFailed, reports[0].Outcome)
	assert.Equal(t, entity.OutcomeQuotaReached, reports[1].Outcome)
	assert.ElementsMatch(t, []string{"enwikiquote", "zhwikiquote"}, sched.calls)
}

func TestHarvester_SkipsLockedSiteAndRecordsRuns(t *testing.T) {
	_, client := newRedis(t)
	lock := redisadapter.NewSiteLock(client)
	runLog := redisadapter.NewRunLog(client, 10)
	require.NoError(t, lock.Acquire(context.Background(), "enwikiquote", "other-worker", time.Minute))

	sched := &stubScheduler{}
	h := NewHarvester(sched, stubProber{}, lock, runLog, HarvestOptions{LockTTL: time.Minute})

	reports, err := h.Run(context.Background(), twoSites())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, entity.OutcomeFailed, reports[0].Outcome)
	assert.Contains(t, reports[0].Error, "locked")
	assert.Equal(t, entity.OutcomeExhausted, reports[1].Outcome)
	assert.Equal(t, []string{"zhwikiquote"}, sched.calls)

	// zh lease released, en lease still belongs to the other worker
	require.NoError(t, lock.Acquire(context.Background(), "zhwikiquote", "next", time.Minute))
	require.ErrorIs(t, lock.Acquire(context.Background(), "enwikiquote", "next", time.Minute), repository.ErrLockHeld)

	runs, err := runLog.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "zhwikiquote", runs[0].SiteKey)
	assert.Equal(t, "enwikiquote", runs[1].SiteKey)
}

func TestHarvester_LostLeaseCancelsCrawl(t *testing.T) {
	mr, client := newRedis(t)
	lock := redisadapter.NewSiteLock(client)

	sched := &stubScheduler{crawl: func(ctx context.Context, site entity.Site) (*entity.CrawlReport, error) {
		// another worker steals the lease
		mr.Set("harvester:lock:"+site.Key, "thief")
		select {
		case <-ctx.Done():
			return &entity.CrawlReport{SiteKey: site.Key, Outcome: entity.OutcomeCancelled}, nil
		case <-time.After(5 * time.Second):
			return &entity.CrawlReport{SiteKey: site.Key, Outcome: entity.OutcomeExhausted}, nil
		}
	}}
	h := NewHarvester(sched, stubProber{}, lock, nil, HarvestOptions{LockTTL: 60 * time.Millisecond})

	reports, err := h.Run(context.Background(), twoSites()[:1])
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, entity.OutcomeCancelled, reports[0].Outcome)

	// the thief keeps its lease
	owner, err := mr.Get("harvester:lock:enwikiquote")
	require.NoError(t, err)
	assert.Equal(t, "thief", owner)
}

func TestHarvester_EndToEndWithStore(t *testing.T) {
	store := newTestStore(t)
	wiki := newFakeWiki(2, 2, 2)
	sched := NewScheduler(store.quotes, store.checkpoints, wiki, wiki, SchedulerOptions{Backoff: fastBackoff})
	h := NewHarvester(sched, wiki, nil, nil, HarvestOptions{})

	reports, err := h.Run(context.Background(), []entity.Site{testSite(6)})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, entity.OutcomeQuotaReached, reports[0].Outcome)
	assert.Equal(t, 6, reports[0].Inserted)
	assert.NotEmpty(t, reports[0].RunID)
}
