package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <site_key>",
		Short: "Delete a site checkpoint so its next crawl starts from the first page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.statusService().ResetCheckpoint(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checkpoint of %s reset\n", args[0])
			return nil
		},
	}
}
