// Package main is the entrypoint for the Venter API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kiranshivaraju/venter/internal/api"
	"github.com/kiranshivaraju/venter/internal/api/handler"
	mw "github.com/kiranshivaraju/venter/internal/api/middleware"
	"github.com/kiranshivaraju/venter/internal/api/response"
	"github.com/kiranshivaraju/venter/internal/artifact"
	"github.com/kiranshivaraju/venter/internal/cache"
	"github.com/kiranshivaraju/venter/internal/classifier"
	"github.com/kiranshivaraju/venter/internal/config"
	"github.com/kiranshivaraju/venter/internal/metrics"
	"github.com/kiranshivaraju/venter/internal/prediction"
	"github.com/kiranshivaraju/venter/internal/report"
	"github.com/kiranshivaraju/venter/internal/store"
	"github.com/kiranshivaraju/venter/internal/wordfreq"
	"github.com/kiranshivaraju/venter/pkg/models"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("reading .env", "error", err)
	}

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, failing fast when invalid
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "classifier", cfg.Classifier.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create classifier
	clf, err := classifier.NewClassifier(cfg.Classifier)
	if err != nil {
		return fmt.Errorf("create classifier: %w", err)
	}
	slog.Info("classifier initialized", "classifier", clf.Name())

	// 6. Build services
	pgStore := store.NewPostgresStore(pool)
	m := metrics.New()
	views := newViews(cfg, pgStore, redisCache, clf, m)

	// 7. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMinute),

		HealthHandler:  healthHandler(pgStore, redisCache),
		MetricsHandler: m.Handler(),

		ListArtifacts:    handler.NewListArtifactsHandler(views),
		GetArtifact:      handler.NewGetArtifactHandler(views),
		Result:           handler.NewResultHandler(views),
		Statistics:       handler.NewStatisticsHandler(views),
		Chart:            handler.NewChartHandler(views),
		Table:            handler.NewTableHandler(views),
		SaveCorrections:  handler.NewCorrectionsHandler(views),
		DomainCategories: handler.NewDomainCategoriesHandler(views),
		WordCloud:        handler.NewWordCloudHandler(views),
		Export:           handler.NewExportHandler(views),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Classifier.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// newViews wires the classification cache, the word-frequency cache and
// the report views on top of st and c.
func newViews(cfg *config.Config, st store.Store, c cache.Cache, clf models.Classifier, m *metrics.Metrics) *report.Service {
	layout := artifact.NewLayout(cfg.Media.Root)
	pred := prediction.NewService(st, clf, layout,
		prediction.WithLocker(c, cfg.Redis.LockTTL),
		prediction.WithMetrics(m),
		prediction.WithTimeout(cfg.Classifier.Timeout),
		prediction.WithScratchDir(cfg.Classifier.ScratchDir),
		prediction.WithTopK(cfg.Classifier.TopK),
	)
	words := wordfreq.NewCache(st, layout, m)
	return report.NewService(st, pred, words,
		report.WithStatsCache(c, time.Hour),
		report.WithMetrics(m),
	)
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
