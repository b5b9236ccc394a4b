package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/placar/internal/adapters/http/api"
	"github.com/okian/placar/internal/adapters/http/site"
	"github.com/okian/placar/internal/adapters/http/swagger"
	"github.com/okian/placar/internal/adapters/repository"
	service "github.com/okian/placar/internal/app"
	"github.com/okian/placar/internal/config"
	"github.com/okian/placar/internal/domain/stats"
	"github.com/okian/placar/internal/scheduler"
	"github.com/okian/placar/pkg/logger"
	"github.com/okian/placar/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't available yet
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the store, the service, the routes and the background jobs, then
// serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	store, err := repository.Open(ctx, cfg.DBDriver, cfg.DBDSN,
		repository.WithLogger(log.Named("store")),
	)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(context.Background(), "failed to close store", logger.Error(err))
		}
	}()

	svc := newService(store, cfg, log)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	sched, err := newScheduler(cfg, svc, log)
	if err != nil {
		return err
	}
	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			log.Warn(context.Background(), "scheduler did not stop cleanly", logger.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc, cfg, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("driver", store.Driver()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

func newService(store repository.Store, cfg *config.Config, log logger.Logger) *service.Service {
	return service.New(store,
		service.WithLogger(log.Named("service")),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithEventWindow(cfg.EventWindow),
		service.WithEngineOptions(
			stats.WithDefaultLimit(cfg.DefaultLimit),
			stats.WithStrictScores(cfg.StrictScores),
			stats.WithUnknownPlayerName(cfg.UnknownPlayerName),
			stats.WithUnknownTeamName(cfg.UnknownTeamName),
		),
	)
}

func newMux(ctx context.Context, svc *service.Service, cfg *config.Config, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	// ReDoc under /api-docs, raw document under /openapi.yaml
	swagger.Register(ctx, mux)

	// Rendered statistics page at /
	site.Register(ctx, mux, svc, log.Named("site"))

	api.NewServer(svc, svc,
		api.WithMaxLimit(cfg.MaxLimit),
		api.WithLogger(log.Named("api")),
	).Register(ctx, mux)
	return mux
}

// newScheduler registers the gauge refresh jobs and the intake summary.
func newScheduler(cfg *config.Config, svc *service.Service, log logger.Logger) (*scheduler.Scheduler, error) {
	sched, err := scheduler.New(scheduler.WithLogger(log.Named("scheduler")))
	if err != nil {
		return nil, err
	}
	if _, err := sched.Every("system-metrics", cfg.MetricsInterval(), func(context.Context) { updateSystemMetrics() }); err != nil {
		return nil, err
	}
	if _, err := sched.Every("service-metrics", cfg.MetricsInterval(), func(context.Context) { updateServiceMetrics(svc) }); err != nil {
		return nil, err
	}
	if cfg.SummaryCron != "" {
		if _, err := sched.Cron("intake-summary", cfg.SummaryCron, func(ctx context.Context) { logIntakeSummary(ctx, svc, log) }); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

// logIntakeSummary writes one line with the intake counters.
func logIntakeSummary(ctx context.Context, svc *service.Service, log logger.Logger) {
	st := svc.GetStats()
	fields := make([]logger.Field, 0, 5)
	for _, key := range []string{"accepted", "processed", "duplicates", "failed", "pending"} {
		if v, ok := st[key]; ok {
			fields = append(fields, logger.Any(key, v))
		}
	}
	log.Info(ctx, "intake summary", fields...)
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

// updateServiceMetrics copies intake gauges out of the service stats.
func updateServiceMetrics(svc *service.Service) {
	st := svc.GetStats()

	if queueLen, ok := st["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if queueSize, ok := st["queueSize"].(int); ok {
		metrics.UpdateQueueCapacity(queueSize)
		if queueLen, ok := st["queueLength"].(int); ok && queueSize > 0 {
			metrics.UpdateQueueUtilization(float64(queueLen) / float64(queueSize))
		}
	}
	if workerCount, ok := st["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
	if entries, ok := st["dedupeEntries"].(int64); ok {
		metrics.UpdateDedupeSize(entries)
	}
}
