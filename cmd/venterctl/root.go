package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/kiranshivaraju/venter/internal/artifact"
	"github.com/kiranshivaraju/venter/internal/cache"
	"github.com/kiranshivaraju/venter/internal/classifier"
	"github.com/kiranshivaraju/venter/internal/config"
	"github.com/kiranshivaraju/venter/internal/prediction"
	"github.com/kiranshivaraju/venter/internal/report"
	"github.com/kiranshivaraju/venter/internal/store"
	"github.com/kiranshivaraju/venter/internal/wordfreq"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "venterctl",
		Short:         "Operate a venter deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment")

	root.AddCommand(
		newMigrateCommand(),
		newOrgCommand(),
		newKeyCommand(),
		newPredictCommand(),
		newStatsCommand(),
		newWordCloudCommand(),
	)
	return root
}

// app is the wiring a command needs against a live deployment.
type app struct {
	cfg     *config.Config
	store   store.Store
	predict *prediction.Service
	views   *report.Service
	close   func()
}

// openStore connects to Postgres only.
func openStore(ctx context.Context) (*config.Config, store.Store, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, store.NewPostgresStore(pool), pool, nil
}

// openApp connects Postgres and Redis and builds the prediction and report
// services the way the server does.
func openApp(ctx context.Context) (*app, error) {
	cfg, st, pool, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create redis cache: %w", err)
	}
	opts := []prediction.Option{
		prediction.WithTimeout(cfg.Classifier.Timeout),
		prediction.WithScratchDir(cfg.Classifier.ScratchDir),
		prediction.WithTopK(cfg.Classifier.TopK),
	}
	if err := redisCache.Ping(ctx); err != nil {
		slog.Warn("redis unreachable, classifying without the shared lock", "error", err)
	} else {
		opts = append(opts, prediction.WithLocker(redisCache, cfg.Redis.LockTTL))
	}

	clf, err := classifier.NewClassifier(cfg.Classifier)
	if err != nil {
		redisCache.Close()
		pool.Close()
		return nil, fmt.Errorf("create classifier: %w", err)
	}

	layout := artifact.NewLayout(cfg.Media.Root)
	pred := prediction.NewService(st, clf, layout, opts...)
	views := report.NewService(st, pred, wordfreq.NewCache(st, layout, nil))

	return &app{
		cfg:     cfg,
		store:   st,
		predict: pred,
		views:   views,
		close: func() {
			redisCache.Close()
			pool.Close()
		},
	}, nil
}
