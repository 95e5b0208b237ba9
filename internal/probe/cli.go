// Package probe samples a running tracker and checks the invariants of its
// rendered views.
package probe

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/runtrack/pkg/logger"
)

// WorkerChannelMultiplier sizes the rank lookup queue per worker.
const WorkerChannelMultiplier = 2

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures the global logger to write to stdout and, when
// logFile is set, to that file as well.
func SetupLogging(logFile, format string) error {
	var w io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
	}
	if err := logger.InitWriter(w, format); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the probe.
func ShowHelp() {
	os.Stdout.WriteString(`runtrack probe
==============

Samples a running tracker and verifies its rendered views: one marker per
runner, markers matching the active filter, leaderboards ranked in order and
a placeholder row on every empty leaderboard. Ranked runners are
cross-checked against /rank/{runner_id}.

Usage:
  go run ./cmd/probe [options]

Options:
  -url string
        Base URL of the tracker (default "http://localhost:9080")
  -rounds int
        Number of /view samples (default 10)
  -interval duration
        Pause between two samples (default 2s)
  -workers int
        Concurrent /rank lookups (default CPU cores)
  -timeout duration
        HTTP request timeout (default 10s)
  -output string
        Save the last sampled view as JSON
  -log string
        Also write the log to this file
  -format string
        Log format: text or json (default "text")
  -verbose
        Log every sample and violation
  -help
        Show this help message

Examples:
  go run ./cmd/probe -rounds 30 -interval 1s
  go run ./cmd/probe -url http://localhost:8080 -output last_view.json -verbose
`)
}
