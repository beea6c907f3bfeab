// Command render loads the COVID-19 dataset once, writes the three chart
// artifacts, and prints the summary as JSON. It is the offline counterpart of
// the dashboard's page request. Flag defaults come from the same environment
// variables the server reads. Logs go to stderr so stdout stays valid JSON.
//
// Usage:
//
//	go run ./cmd/render -out static/images
//	go run ./cmd/render -csv testdata/owid-sample.csv -out /tmp/charts
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/couchcryptid/covid-dashboard/internal/adapter/owid"
	"github.com/couchcryptid/covid-dashboard/internal/config"
	"github.com/couchcryptid/covid-dashboard/internal/dataset"
	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/observability"
	"github.com/couchcryptid/covid-dashboard/internal/pipeline"
	"github.com/couchcryptid/covid-dashboard/internal/render"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	csvPath := flag.String("csv", "", "read the dataset from a local CSV file instead of -url")
	url := flag.String("url", cfg.DataSourceURL, "dataset URL")
	out := flag.String("out", cfg.OutputDir, "directory to write chart artifacts to")
	timeout := flag.Duration("timeout", cfg.FetchTimeout, "fetch timeout for -url")
	verbose := flag.Bool("v", false, "log debug output")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	metrics := observability.NewMetrics()

	var fetcher dataset.Fetcher = owid.NewClient(*url, *timeout, logger)
	if *csvPath != "" {
		fetcher = fileFetcher(*csvPath)
	}

	renderer := render.NewRenderer(*out, logger, metrics)
	if err := renderer.EnsureOutputDir(); err != nil {
		return err
	}

	store := dataset.NewStore(fetcher, nil, logger, metrics)
	view, err := pipeline.New(store, renderer, logger).Refresh(context.Background())
	if err != nil {
		return fmt.Errorf("render charts: %w", err)
	}
	if view.Degraded {
		logger.Warn("dataset unavailable, wrote placeholder charts")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(view.Summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if view.Degraded {
		return domain.ErrDataUnavailable
	}
	return nil
}

// fileFetcher reads the dataset from a local path.
type fileFetcher string

func (f fileFetcher) Fetch(_ context.Context) (io.ReadCloser, error) {
	file, err := os.Open(string(f))
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	return file, nil
}
