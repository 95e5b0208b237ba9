package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/runtrack/internal/domain/types"
	"github.com/okian/runtrack/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run samples the tracker view cfg.Rounds times, verifies every sample and
// cross-checks the rank endpoint. It returns ErrViolations when any
// invariant was broken.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("probe")

	log.Info(ctx, "starting runtrack probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("rounds", cfg.Rounds),
		logger.Duration("interval", cfg.Interval),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
	)

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	if err := checkHealth(ctx, client); err != nil {
		return stats, err
	}

	var (
		last    types.View
		sampled bool
	)
	for round := 0; round < cfg.Rounds; round++ {
		if round > 0 {
			select {
			case <-ctx.Done():
				return finish(ctx, stats), ctx.Err()
			case <-time.After(cfg.Interval):
			}
		}
		stats.Rounds++

		v, err := client.View(ctx)
		if err != nil {
			stats.ViewsFailed++
			log.Warn(ctx, "view sample failed", logger.Int("round", round), logger.Error(err))
			continue
		}
		stats.ViewsChecked++
		stats.MaxSeq = max(stats.MaxSeq, v.Seq)
		last, sampled = v, true

		violations := Verify(v)
		stats.Violations += len(violations)
		for _, viol := range violations {
			if cfg.Verbose || round == cfg.Rounds-1 {
				log.Warn(ctx, "invariant violated", logger.String("violation", viol.String()))
			}
		}

		res := checkRanks(ctx, cfg, client, v)
		stats.RanksChecked += int(res.checked)
		stats.RanksMismatched += int(res.mismatched)

		if cfg.Verbose {
			log.Info(ctx, "view sampled",
				logger.Int("round", round),
				logger.Uint64("seq", v.Seq),
				logger.Int("participants", v.Participants),
				logger.Int("markers", len(v.Markers)),
				logger.Int("leaderboards", len(v.Leaderboards)),
				logger.Int("violations", len(violations)),
				logger.String("error", v.Error),
			)
		}
	}

	if sampled && cfg.OutputFile != "" {
		if err := saveView(cfg.OutputFile, last); err != nil {
			log.Warn(ctx, "failed to save view", logger.Error(err))
		} else {
			log.Info(ctx, "view saved to file", logger.String("filename", cfg.OutputFile))
		}
	}

	finish(ctx, stats)

	switch {
	case !sampled:
		return stats, ErrNoSamples
	case stats.Violations > 0 || stats.RanksMismatched > 0:
		return stats, fmt.Errorf("%w: %d view violations, %d rank mismatches",
			ErrViolations, stats.Violations, stats.RanksMismatched)
	}
	log.Info(ctx, "probe completed successfully")
	return stats, nil
}

// checkHealth verifies the tracker answers its health endpoint.
func checkHealth(ctx context.Context, client *HTTPClient) error {
	if _, err := client.Get(ctx, "/healthz"); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	return nil
}

// saveView writes v as indented JSON, creating the directory if needed.
func saveView(filename string, v types.View) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal view: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write view: %w", err)
	}
	return nil
}

func finish(ctx context.Context, stats *Stats) *Stats {
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats
}

// displayFinalStats logs the final probe statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	logger.Get().Info(ctx, "final statistics",
		logger.Int("rounds", stats.Rounds),
		logger.Int("viewsChecked", stats.ViewsChecked),
		logger.Int("viewsFailed", stats.ViewsFailed),
		logger.Int("violations", stats.Violations),
		logger.Int("ranksChecked", stats.RanksChecked),
		logger.Int("ranksMismatched", stats.RanksMismatched),
		logger.Uint64("maxSeq", stats.MaxSeq),
		logger.Duration("duration", stats.Duration),
	)
}
