package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"score-viewer/internal/config"
	"score-viewer/internal/logger"
	"score-viewer/internal/services"
)

func main() {
	configPath := flag.String("config", "", "TOML or YAML configuration file")
	id := flag.Int("id", 0, "score id (default from configuration)")
	pages := flag.Int("pages", 0, "number of pages to fetch (default from configuration)")
	urlTemplate := flag.String("url-template", "", "page URL with {id} and {page} placeholders")
	out := flag.String("out", "", "output PDF")
	workers := flag.Int("workers", 0, "concurrent downloads")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err == nil {
		cfg, err = config.EnvOverlay(cfg, os.Environ())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(2)
	}
	if *id > 0 {
		cfg.Fetch.ScoreID = *id
	}
	if *pages > 0 {
		cfg.Fetch.Pages = *pages
	}
	if *urlTemplate != "" {
		cfg.Fetch.URLTemplate = *urlTemplate
	}
	if *out != "" {
		cfg.Fetch.Output = *out
	}
	if *workers > 0 {
		cfg.Fetch.Workers = *workers
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(2)
	}

	base, closeLog, err := logger.Open(logger.ParseLevel(cfg.Logging.Level), cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log: %v\n", err)
		os.Exit(2)
	}
	log := base.With("fetch")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg.Fetch, log)
	stop()

	if err != nil {
		if errors.Is(err, services.ErrNothingDownloaded) {
			log.Error("no images downloaded", err, nil)
		} else {
			log.Error("fetch failed", err, nil)
		}
		closeLog()
		os.Exit(1)
	}
	closeLog()
}

func run(ctx context.Context, cfg config.Fetch, log logger.Logger) error {
	svc := services.NewFetchService(&http.Client{Timeout: cfg.Timeout}, services.JPEGNormalizer{}, log)

	fetched, err := svc.Fetch(ctx, services.FetchRequest{
		ScoreID:     cfg.ScoreID,
		Pages:       cfg.Pages,
		URLTemplate: cfg.URLTemplate,
		Workers:     cfg.Workers,
	})
	if err != nil {
		return err
	}

	title := fmt.Sprintf("Score %d", cfg.ScoreID)
	if err := (services.Assembler{Title: title}).WriteFile(cfg.Output, fetched); err != nil {
		return fmt.Errorf("write %s: %w", cfg.Output, err)
	}

	log.Info("PDF saved", map[string]interface{}{
		"path":  cfg.Output,
		"pages": len(fetched),
	})
	return nil
}
