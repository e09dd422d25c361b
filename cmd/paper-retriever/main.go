// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-retriever CLI, the client
// side of the asynchronous paper-search service: submit searches, watch them
// progress, browse history, and manage the local result cache.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AutoJunjie/async-paper-retriever/internal/backend"
	"github.com/AutoJunjie/async-paper-retriever/internal/cachestore"
	"github.com/AutoJunjie/async-paper-retriever/internal/eventbus"
	"github.com/AutoJunjie/async-paper-retriever/internal/history"
	"github.com/AutoJunjie/async-paper-retriever/internal/orchestrator"
	"github.com/AutoJunjie/async-paper-retriever/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the paper-retriever CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-retriever",
	Short: "Client for the asynchronous paper-search service",
	Long: `paper-retriever submits long-running search requests to the paper-search
backend, tracks each task through its lifecycle (pending, searching,
evaluating, completed), and retrieves results once ready. Completed searches
are cached locally for 24 hours.

Use the search, history, cache, and health subcommands.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-retriever.yaml or ~/.config/paper-retriever/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-retriever")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-retriever"))
		}
	}

	viper.SetEnvPrefix("PAPER_RETRIEVER")
	viper.AutomaticEnv()

	viper.SetDefault("backend.base_url", "http://localhost:8000")
	viper.SetDefault("backend.timeout", "30s")
	viper.SetDefault("backend.user_agent", "paper-retriever/"+version)
	viper.SetDefault("backend.max_retries", 3)
	viper.SetDefault("cache.dir", ".cache")
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.max_entries", 200)
	viper.SetDefault("orchestrator.poll_interval", "2s")
	viper.SetDefault("orchestrator.max_poll_attempts", 60)
	viper.SetDefault("orchestrator.settle_delay", "1s")
	viper.SetDefault("orchestrator.page_size", 30)
	viper.SetDefault("history.limit", 20)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig materializes the typed configuration from viper.
func loadConfig() types.Config {
	return types.Config{
		Backend: types.BackendConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("backend.timeout"),
				UserAgent: viper.GetString("backend.user_agent"),
			},
			BaseURL:    viper.GetString("backend.base_url"),
			MaxRetries: viper.GetInt("backend.max_retries"),
		},
		Cache: types.CacheConfig{
			Dir:        viper.GetString("cache.dir"),
			TTL:        viper.GetDuration("cache.ttl"),
			MaxEntries: viper.GetInt("cache.max_entries"),
		},
		Orchestrator: types.OrchestratorConfig{
			PollInterval:    viper.GetDuration("orchestrator.poll_interval"),
			MaxPollAttempts: viper.GetInt("orchestrator.max_poll_attempts"),
			SettleDelay:     viper.GetDuration("orchestrator.settle_delay"),
			PageSize:        viper.GetInt("orchestrator.page_size"),
		},
		History: types.HistoryConfig{
			Limit: viper.GetInt("history.limit"),
		},
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose, _ := rootCmd.PersistentFlags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// app bundles the wired components a command needs.
type app struct {
	cfg     types.Config
	logger  *slog.Logger
	client  *backend.Client
	bus     *eventbus.Bus
	cache   *cachestore.Store
	orch    *orchestrator.Orchestrator
	history *history.Loader
}

// newApp wires the full component graph. A cache that fails to open is
// reported and skipped; searches then always hit the backend.
func newApp() *app {
	cfg := loadConfig()
	logger := newLogger()
	client := backend.New(cfg.Backend)
	bus := eventbus.New(logger)

	cache, err := cachestore.Open(cfg.Cache, logger)
	if err != nil {
		logger.Warn("local cache unavailable", "error", err)
		cache = nil
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		client:  client,
		bus:     bus,
		cache:   cache,
		orch:    orchestrator.New(client, bus, cache, cfg.Orchestrator, logger),
		history: history.NewLoader(client, logger),
	}
}

func (a *app) close() {
	a.orch.Close()
	if a.cache != nil {
		a.cache.Close()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// waitCeiling bounds how long a command waits for a task to finish, a
// little past the polling session's own ceiling.
func waitCeiling(cfg types.OrchestratorConfig) time.Duration {
	return time.Duration(cfg.MaxPollAttempts+5)*cfg.PollInterval + cfg.SettleDelay
}
