package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/user/quote-harvester/internal/adapter/postgres"
	redis_adapter "github.com/user/quote-harvester/internal/adapter/redis"
	"github.com/user/quote-harvester/internal/adapter/sqlite"
	"github.com/user/quote-harvester/internal/repository"
	"github.com/user/quote-harvester/internal/usecase"
	"github.com/user/quote-harvester/pkg/config"
)

// app holds the connected repositories for one command invocation.
type app struct {
	cfg         *config.Config
	quotes      repository.QuoteRepository
	checkpoints repository.CheckpointRepository
	lock        repository.SiteLock
	runLog      repository.RunLogRepository
	checks      map[string]usecase.HealthCheck
	closers     []func()
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, checks: make(map[string]usecase.HealthCheck)}

	// --- Content Store ---
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("unable to connect to postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := pool.Ping(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("unable to reach postgres: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			a.Close()
			return nil, err
		}
		a.quotes = postgres.NewQuoteRepo(pool)
		a.checkpoints = postgres.NewCheckpointRepo(pool)
		a.checks["store"] = pool.Ping
		slog.Info("PostgreSQL connection pool established")
	default:
		if !strings.Contains(cfg.Store.DSN, ":memory:") {
			if err := os.MkdirAll(filepath.Dir(cfg.Store.DSN), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create store directory: %w", err)
			}
		}
		db, err := sqlite.Open(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { db.Close() })
		if err := sqlite.EnsureSchema(ctx, db); err != nil {
			a.Close()
			return nil, err
		}
		a.quotes = sqlite.NewQuoteRepo(db)
		a.checkpoints = sqlite.NewCheckpointRepo(db)
		a.checks["store"] = db.PingContext
		slog.Info("SQLite store opened", "path", cfg.Store.DSN)
	}

	// --- Redis (optional) ---
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, func() { rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("unable to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		a.lock = redis_adapter.NewSiteLock(rdb)
		a.runLog = redis_adapter.NewRunLog(rdb, cfg.Redis.RunLogSize)
		a.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		slog.Info("Redis connection established", "addr", cfg.Redis.Addr)
	}

	return a, nil
}

func (a *app) statusService() usecase.StatusService {
	return usecase.NewStatusService(a.quotes, a.checkpoints, a.runLog, a.cfg.SiteList(), a.checks)
}

// Close releases connections in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
