package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/okian/runtrack/internal/domain/types"
	"github.com/okian/runtrack/pkg/logger"
)

// rankResult is the outcome of cross-checking one runner.
type rankResult struct {
	checked    int64
	mismatched int64
	reasons    []string
}

// checkRanks asks GET /rank/{runner_id} for every ranked runner of v and
// compares the answer with the row in the sampled view. The view may have
// been replaced between the two reads, so a runner that became unranked
// (404) or whose answer comes from a newer render is not counted as a
// mismatch.
func checkRanks(ctx context.Context, cfg *Config, client *HTTPClient, v types.View) rankResult {
	targets := rankTargets(v)
	ids := make([]string, 0, len(targets))
	for id := range targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var (
		checked    int64
		mismatched int64
		mu         sync.Mutex
		reasons    []string
	)

	workers := max(cfg.Workers, 1)
	idChan := make(chan string, workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range idChan {
				if ctx.Err() != nil {
					return
				}
				reason := checkSingleRank(ctx, client, targets[id])
				atomic.AddInt64(&checked, 1)
				if reason == "" {
					continue
				}
				atomic.AddInt64(&mismatched, 1)
				mu.Lock()
				reasons = append(reasons, reason)
				mu.Unlock()
				if cfg.Verbose {
					logger.Get().Warn(ctx, "rank mismatch", logger.String("runner", id), logger.String("reason", reason))
				}
			}
		}()
	}

	go func() {
		defer close(idChan)
		for _, id := range ids {
			select {
			case <-ctx.Done():
				return
			case idChan <- id:
			}
		}
	}()

	wg.Wait()
	sort.Strings(reasons)
	return rankResult{checked: checked, mismatched: mismatched, reasons: reasons}
}

// checkSingleRank returns an empty string when the tracker agrees with want.
func checkSingleRank(ctx context.Context, client *HTTPClient, want types.Entry) string {
	got, err := client.Rank(ctx, want.RunnerID)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return ""
		}
		return fmt.Sprintf("runner %q: %v", want.RunnerID, err)
	}
	if got.RunnerID != want.RunnerID {
		return fmt.Sprintf("runner %q: rank endpoint answered for %q", want.RunnerID, got.RunnerID)
	}
	if got.RouteID != want.RouteID {
		// Re-ranked onto another route by a newer render.
		return ""
	}
	if got.Rank < 1 {
		return fmt.Sprintf("runner %q: rank %d", want.RunnerID, got.Rank)
	}
	return ""
}
