// Scheduled job: count the pages changed on every site during the previous
// calendar month and record the totals as a reporting_entries term.
//
// Usage:
//
//	go run cmd/monthly-report/main.go [-dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reporter/internal/config"
	"reporter/internal/gather"
	"reporter/internal/metrics"
	"reporter/internal/report"
	"reporter/internal/telemetry"
	"reporter/internal/util"
	"reporter/pkg/drupal"
)

const version = "0.1.0"

func main() {
	dryRun := flag.Bool("dry-run", false, "build the report and log it without submitting")
	flag.Parse()
	os.Exit(run(*dryRun))
}

// run sets up the job, runs one report and returns the process exit code.
// Deferred cleanup has run by the time it returns.
func run(dryRun bool) int {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("failed to load .env: %v", err)
	}

	cfgPath := "config/reporter.yaml"
	if p := os.Getenv("REPORTER_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// Dual logger: stdout + optional log file.
	var w io.Writer = os.Stdout
	if cfg.Logging.File != "" {
		logFile, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("failed to open log file: %v", err)
		}
		defer logFile.Close()
		w = io.MultiWriter(os.Stdout, logFile)
	}
	logger := util.NewLogger(cfg.LogLevel(), cfg.Logging.Format, w)
	util.SetDefault(logger)

	shutdownTracing, err := telemetry.Setup(cfg.Tracing.Stdout, cfg.Metrics.Job, version, os.Stderr)
	if err != nil {
		logger.Error("failed to set up tracing", "err", err)
		return 1
	}

	calendar, err := util.NewReportingCalendar(util.ReportingZone)
	if err != nil {
		logger.Error("failed to load reporting calendar", "err", err)
		return 1
	}

	if cfg.Backend.InsecureSkipVerify {
		logger.Warn("TLS certificate verification disabled for backend", "base_url", cfg.Backend.BaseURL)
	}
	client := drupal.NewClient(
		cfg.Backend.BaseURL,
		drupal.WithAPIKey(cfg.Backend.APIKey),
		drupal.WithHTTPClient(drupal.NewHTTPClient(cfg.Backend.Timeout.Std(), cfg.Backend.InsecureSkipVerify)),
	)

	m := metrics.New()
	pipeline := report.NewPipeline(
		calendar,
		report.NewGuard(client, logger),
		gather.NewChangeFetcher(client, cfg.Gather.MaxWorkers, m, logger).
			WithPacer(util.NewRequestPacer(cfg.Gather.RequestsPerMinute, cfg.Gather.Burst)),
		report.NewSubmitter(client, logger),
		report.Options{
			DryRun:   dryRun,
			Observer: m,
			Logger:   logger,
		},
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("starting %s\n", pipeline.Name())
	runErr := pipeline.Run(ctx)

	finishCtx, finishCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer finishCancel()
	if cfg.Metrics.PushgatewayURL != "" {
		if err := m.Push(finishCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			slog.Warn("metrics push failed", "err", err)
		}
	}
	if err := shutdownTracing(finishCtx); err != nil {
		slog.Warn("tracing shutdown failed", "err", err)
	}

	if runErr != nil {
		slog.Error("report run failed", "err", runErr)
		return 1
	}
	return 0
}
