package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/runtrack/internal/probe"
	"github.com/okian/runtrack/pkg/logger"
)

// Default configuration constants.
const (
	defaultRounds       = 10
	defaultInterval     = 2 * time.Second
	defaultTimeout      = 10 * time.Second
	defaultProbeTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the tracker")
		rounds     = flag.Int("rounds", defaultRounds, "Number of /view samples")
		interval   = flag.Duration("interval", defaultInterval, "Pause between two samples")
		workers    = flag.Int("workers", runtime.NumCPU(), "Concurrent /rank lookups")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Save the last sampled view as JSON")
		logFile    = flag.String("log", "", "Also write the log to this file")
		format     = flag.String("format", logger.FormatText, "Log format: text or json")
		verbose    = flag.Bool("verbose", false, "Log every sample and violation")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp()
		return
	}

	if err := probe.SetupLogging(*logFile, *format); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
	defer cancel()

	cfg := &probe.Config{
		BaseURL:    *baseURL,
		Rounds:     *rounds,
		Interval:   *interval,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	}

	if _, err := probe.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "probe failed", logger.Error(err))
		cancel()
		stop()
		os.Exit(1)
	}
}
