package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muskansindhu/xcraper/pkg/config"
	"github.com/muskansindhu/xcraper/pkg/logger"
)

var (
	version = "1.0.0"

	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "xcraper",
	Short: "Multi-account search timeline scraper",
	Long: `xcraper collects search timeline records at scale by spreading load
across a pool of authenticated accounts and egress proxies.

Accounts are imported once from a credential list into a local SQLite
database. Each scrape run partitions the accounts into per-worker batches,
paginates through the configured query on every account while respecting
each account's rate-limit quota, and writes one JSON artifact per worker.`,
	Version: version,
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .xcraper.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// loadConfig builds the effective configuration and initializes logging
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := logger.Initialize(logger.Options{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}
