package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/quote-harvester/internal/usecase"
)

func (c *cli) exportCmd() *cobra.Command {
	var (
		outPath string
		limit   int
		scope   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored quotes as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts := usecase.ExportOptions{
				Limit:     c.cfg.Export.Limit,
				Scope:     c.cfg.Export.Scope,
				Languages: c.cfg.Languages(),
			}
			if cmd.Flags().Changed("limit") {
				opts.Limit = limit
			}
			if cmd.Flags().Changed("scope") {
				opts.Scope = scope
			}

			a, err := newApp(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			var (
				w io.Writer = cmd.OutOrStdout()
				f *os.File
			)
			if outPath != "" && outPath != "-" {
				f, err = os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", outPath, err)
				}
				w = f
			}

			n, err := writeExport(ctx, usecase.NewExporter(a.quotes), w, opts)
			if f != nil {
				if cerr := f.Close(); cerr != nil && err == nil {
					err = fmt.Errorf("failed to close %s: %w", outPath, cerr)
				}
			}
			if err != nil {
				return err
			}
			slog.Info("Export finished", "quotes", n, "scope", opts.Scope, "limit", opts.Limit, "out", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "output file (default stdout)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of quotes, 0 for all")
	cmd.Flags().StringVar(&scope, "scope", "", "apply the limit globally or per language (global, per_language)")
	return cmd
}

// writeExport streams the export through a buffer and flushes it.
func writeExport(ctx context.Context, exporter usecase.Exporter, w io.Writer, opts usecase.ExportOptions) (int, error) {
	bw := bufio.NewWriter(w)
	n, err := exporter.Export(ctx, bw, opts)
	if err != nil {
		return n, err
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("failed to flush export: %w", err)
	}
	return n, nil
}
