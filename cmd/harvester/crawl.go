package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/user/quote-harvester/internal/adapter/mediawiki"
	"github.com/user/quote-harvester/internal/entity"
	"github.com/user/quote-harvester/internal/repository"
	"github.com/user/quote-harvester/internal/usecase"
)

func (c *cli) crawlCmd() *cobra.Command {
	var (
		siteKey string
		listen  string
	)
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl every configured site until its quota is met or its pages run out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sites := c.cfg.SiteList()
			if siteKey != "" {
				sites = filterSites(sites, siteKey)
				if len(sites) == 0 {
					return fmt.Errorf("site %q is not configured: %w", siteKey, repository.ErrInvalidConfig)
				}
			}

			a, err := newApp(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if listen != "" {
				shutdown := startServer(listen, a.statusService())
				defer shutdown()
			}

			client := mediawiki.NewClient(nil, mediawiki.Options{
				UserAgent:   c.cfg.API.UserAgent,
				MinInterval: c.cfg.API.RequestInterval,
				Timeout:     c.cfg.API.Timeout,
			})
			scheduler := usecase.NewScheduler(a.quotes, a.checkpoints, client, client, usecase.SchedulerOptions{
				PageDelay: c.cfg.Crawl.PageDelay,
				Backoff: usecase.BackoffPolicy{
					Initial:     c.cfg.Crawl.Backoff.Initial,
					Max:         c.cfg.Crawl.Backoff.Max,
					Multiplier:  c.cfg.Crawl.Backoff.Multiplier,
					MaxAttempts: c.cfg.Crawl.Backoff.MaxAttempts,
				},
			})
			harvester := usecase.NewHarvester(scheduler, client, a.lock, a.runLog, usecase.HarvestOptions{
				Concurrent: c.cfg.Crawl.Concurrent,
				LockTTL:    c.cfg.Redis.LockTTL,
			})

			reports, err := harvester.Run(ctx, sites)
			if err != nil {
				return err
			}
			printReports(cmd, reports)

			total, err := a.quotes.Count(ctx, "")
			if err == nil {
				slog.Info("Store total", "quotes", total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&siteKey, "site", "", "crawl only the site with this key")
	cmd.Flags().StringVar(&listen, "listen", "", "serve the status API on this address while crawling (e.g. :8080)")
	return cmd
}

func filterSites(sites []entity.Site, key string) []entity.Site {
	for _, s := range sites {
		if s.Key == key {
			return []entity.Site{s}
		}
	}
	return nil
}

func printReports(cmd *cobra.Command, reports []entity.CrawlReport) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Site", "Outcome", "Inserted", "Target", "Pages", "Skipped", "Batches", "Duration"})
	for _, r := range reports {
		t.AppendRow(table.Row{
			r.SiteKey,
			r.Outcome,
			r.Inserted,
			r.Target,
			r.PagesProcessed,
			r.PagesSkipped,
			r.Batches,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
		})
	}
	t.Render()

	for _, r := range reports {
		if r.Error != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", r.SiteKey, r.Error)
		}
	}
}
