// Package main provides the snapshotfetcher CLI: batch scraping of quote
// snapshot tables into a spreadsheet, from the terminal or over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"snapshotfetcher/internal/config"
	"snapshotfetcher/internal/coordinator"
	"snapshotfetcher/internal/fetcher"
	"snapshotfetcher/internal/logging"
	"snapshotfetcher/internal/ratelimit"
	"snapshotfetcher/internal/snapshot"
)

var rootCmd = &cobra.Command{
	Use:   "snapshotfetcher",
	Short: "Scrape quote snapshot tables for a list of tickers",
	Long: "snapshotfetcher downloads the quote page of every ticker in a list, extracts the " +
		"fundamentals snapshot table and exports one row per ticker as xlsx or csv.",
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// setup loads configuration, installs the logger and builds the pipeline.
func setup() (*config.Config, *coordinator.Coordinator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.Setup(os.Stderr, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	return cfg, newCoordinator(cfg, logger), nil
}

func newCoordinator(cfg *config.Config, logger *slog.Logger) *coordinator.Coordinator {
	limiters := ratelimit.NewLimiter(cfg.RequestsPerSecond)

	opts := fetcher.Options{
		BaseURL:          cfg.BaseURL,
		UserAgent:        cfg.UserAgent,
		Timeout:          cfg.Timeout(),
		MaxAttempts:      cfg.MaxAttempts,
		RetryWaitTime:    cfg.RetryWait(),
		RetryMaxWaitTime: cfg.RetryMaxWait(),
	}

	throttle := ratelimit.Throttle{
		ChunkSize:    cfg.ChunkSize,
		RequestDelay: cfg.RateDelay(),
		ChunkPause:   cfg.ChunkPause(),
	}

	logger.Info("pipeline configured",
		"base_url", cfg.BaseURL,
		"chunk_size", cfg.ChunkSize,
		"rate_delay", throttle.RequestDelay,
		"chunk_pause", throttle.ChunkPause)

	return coordinator.New(
		fetcher.NewQuoteFetcher(opts, limiters.Gate(ratelimit.APIFinviz)),
		throttle,
		coordinator.WithExtractor(snapshot.NewExtractor(cfg.TableSelector)),
		coordinator.WithLogger(logger),
	)
}
