package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"reporter/internal/config"
	"reporter/internal/domain"
	"reporter/internal/report"
	"reporter/internal/util"
	"reporter/pkg/drupal"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: reporter-cli <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version    Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  period     Show the period the next run would report\n")
		fmt.Fprintf(os.Stderr, "  check      Check whether that period is already reported\n")
		fmt.Fprintf(os.Stderr, "  sites      List sites and their backend target ids\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("reporter-cli %s\n", version)

	case "period":
		if err := printPeriod(os.Stdout, time.Now()); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

	case "check":
		os.Exit(check())

	case "sites":
		for _, s := range domain.Sites() {
			fmt.Printf("%d\t%s\t%s\n", s.TargetID(), s, s.FigureField())
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
}

func printPeriod(w io.Writer, now time.Time) error {
	cal, err := util.NewReportingCalendar(util.ReportingZone)
	if err != nil {
		return err
	}
	p := cal.PreviousMonth(now)
	fmt.Fprintf(w, "period: %s\nstart:  %s\nend:    %s\n", p.Label(), p.StartParam(), p.EndParam())
	return nil
}

// check runs the duplicate guard for the upcoming period. Exit status: 0 not
// yet reported, 2 already reported, 1 on error.
func check() int {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	cfgPath := "config/reporter.yaml"
	if p := os.Getenv("REPORTER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if cfg.Backend.BaseURL == "" {
		fmt.Fprintf(os.Stderr, "error: %v\n", config.ErrMissingBaseURL)
		return 1
	}

	cal, err := util.NewReportingCalendar(util.ReportingZone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	label := cal.PreviousMonth(time.Now()).Label()

	client := drupal.NewClient(
		cfg.Backend.BaseURL,
		drupal.WithHTTPClient(drupal.NewHTTPClient(cfg.Backend.Timeout.Std(), cfg.Backend.InsecureSkipVerify)),
	)
	logger := util.NewLogger(cfg.LogLevel(), cfg.Logging.Format, os.Stderr)

	err = report.NewGuard(client, logger).Check(context.Background(), label)
	switch {
	case err == nil:
		fmt.Printf("%s: not yet reported\n", label)
		return 0
	case errors.Is(err, report.ErrPeriodReported):
		fmt.Printf("%s: already reported\n", label)
		return 2
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
}
