package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) statsCmd() *cobra.Command {
	var runs int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print quote counts, checkpoints and recent runs as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			svc := a.statusService()
			stats, err := svc.Stats(ctx)
			if err != nil {
				return fmt.Errorf("failed to read stats: %w", err)
			}
			out := map[string]any{"stats": stats}
			if runs > 0 {
				recent, err := svc.RecentRuns(ctx, runs)
				if err != nil {
					return fmt.Errorf("failed to read run log: %w", err)
				}
				out["runs"] = recent
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().IntVar(&runs, "runs", 0, "also print this many recent crawl reports")
	return cmd
}
