package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/quote-harvester/internal/delivery/http/handler"
	"github.com/user/quote-harvester/internal/delivery/http/router"
	"github.com/user/quote-harvester/internal/usecase"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the status API without crawling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			shutdown := startServer(":"+c.cfg.Server.Port, a.statusService())
			<-ctx.Done()
			slog.Info("Shutting down server...")
			shutdown()
			return nil
		},
	}
}

// startServer serves the status API in the background and returns a function
// that shuts it down gracefully.
func startServer(addr string, status usecase.StatusService) func() {
	server := &http.Server{
		Addr:         addr,
		Handler:      router.New(handler.NewHandler(status)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not listen", "addr", addr, "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
	}
}
