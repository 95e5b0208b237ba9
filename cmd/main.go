package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/runtrack/internal/adapters/http/api"
	"github.com/okian/runtrack/internal/adapters/http/swagger"
	"github.com/okian/runtrack/internal/adapters/provider"
	app "github.com/okian/runtrack/internal/app"
	"github.com/okian/runtrack/internal/config"
	"github.com/okian/runtrack/internal/domain/geo"
	"github.com/okian/runtrack/internal/domain/ranking"
	"github.com/okian/runtrack/pkg/logger"
	"github.com/okian/runtrack/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if cfg.LogFormat != logger.FormatText {
		if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
			os.Stderr.WriteString("failed to switch log format: " + err.Error() + "\n")
		}
	}
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Configure(metricsOptions(cfg)...)

	svc, err := newService(cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build session", logger.Error(err))
		return
	}
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start session", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx, metrics.RefreshInterval())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("provider", cfg.ProviderURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// metricsOptions maps the metrics section of cfg onto manager options.
func metricsOptions(cfg *config.Config) []metrics.Option {
	return []metrics.Option{
		metrics.WithNamespace(cfg.Metrics.Namespace),
		metrics.WithSubsystem(cfg.Metrics.Subsystem),
		metrics.WithMetricsEnabled(cfg.Metrics.FetchEnabled),
		metrics.WithRefreshInterval(cfg.RefreshInterval()),
		metrics.WithCustomLabels(cfg.Metrics.Labels),
	}
}

// newService wires the provider client, the coordinate mapper and the
// ranking options from cfg into a tracking session.
func newService(cfg *config.Config, log logger.Logger) (*app.Service, error) {
	offsets, err := cfg.Offsets()
	if err != nil {
		return nil, err
	}

	client := provider.New(cfg.ProviderURL,
		provider.WithSnapshotPath(cfg.SnapshotPath),
		provider.WithRoutesPath(cfg.RoutesPath),
		provider.WithTimeout(cfg.RequestTimeout()),
	)
	mapper := geo.NewMapper(
		geo.WithBase(cfg.Map.BaseLat, cfg.Map.BaseLon),
		geo.WithScale(cfg.Map.Scale),
		geo.WithOffsets(offsets),
	)

	return app.New(client,
		app.WithLogger(log),
		app.WithQueueSize(cfg.EventQueueSize),
		app.WithPollInterval(cfg.PollInterval()),
		app.WithMapper(mapper),
		app.WithRankingOptions(
			ranking.WithDefaultSegments(cfg.DefaultSegments),
			ranking.WithSpeedTopN(cfg.SpeedTopN),
		),
		app.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
	), nil
}

// newMux registers the docs and the session API routes.
func newMux(ctx context.Context, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater refreshes the runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
