// Command fetch downloads the latest house-price-to-earnings workbook
// from the ONS dataset page.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"hpdash/internal/config"
	"hpdash/internal/fetch"
	"hpdash/internal/infrastructure"
)

func main() {
	pageURL := flag.String("page", "", "dataset page URL (defaults to the configured ONS page)")
	outDir := flag.String("out", "", "directory to save the workbook (defaults to the configured data dir)")
	headless := flag.Bool("headless", true, "run browser headless")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		logger = slog.Default()
		logger.Warn("failed to initialize logger, using default", slog.String("error", err.Error()))
	}

	if *pageURL != "" {
		cfg.Fetch.PageURL = *pageURL
	}
	if *outDir != "" {
		cfg.Fetch.OutDir = *outDir
	}

	fetcher := fetch.NewFetcher(cfg.Fetch, *headless, logger)
	path, err := fetcher.Fetch(context.Background())
	if err != nil {
		logger.Error("fetch failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("workbook saved", slog.String("path", path))
	fmt.Println(path)
}
