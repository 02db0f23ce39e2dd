package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/user/quote-harvester/pkg/config"
	"github.com/user/quote-harvester/pkg/logger"
)

// cli carries the state shared by all subcommands.
type cli struct {
	cfgFile  string
	logLevel string
	cfg      *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "harvester",
		Short:         "Collect short quotations from MediaWiki quote sites",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env only fills variables that are not already set
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("load .env: %w", err)
			}

			cfg, err := config.Load(c.cfgFile)
			if err != nil {
				return err
			}
			if c.logLevel != "" {
				cfg.LogLevel = c.logLevel
			}
			c.cfg = cfg

			level := logger.ParseLevel(cfg.LogLevel)
			logger.Init(os.Stderr, level, cfg.LogFormat)
			slog.Debug("Configuration loaded", "file", c.cfgFile, "store", cfg.Store.Driver, "sites", len(cfg.Sites))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "harvester.yaml", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override log_level (debug, info, warn, error)")

	root.AddCommand(
		c.crawlCmd(),
		c.serveCmd(),
		c.statsCmd(),
		c.resetCmd(),
		c.exportCmd(),
	)
	return root
}
