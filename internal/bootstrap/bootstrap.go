// Package bootstrap builds the assessment service from configuration for the
// server and the batch driver.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/gambia-creative/assessment/internal/analyzer"
	"github.com/gambia-creative/assessment/internal/assessment"
	"github.com/gambia-creative/assessment/internal/cache/redis"
	"github.com/gambia-creative/assessment/internal/ingestion"
	"github.com/gambia-creative/assessment/internal/lexicon"
	"github.com/gambia-creative/assessment/internal/scoring"
	"github.com/gambia-creative/assessment/internal/storage/sqlite"
	"github.com/gambia-creative/assessment/pkg/config"
	"github.com/gambia-creative/assessment/pkg/logger"
)

var (
	_ assessment.Store       = (*sqlite.Client)(nil)
	_ assessment.Cache       = (*redis.Client)(nil)
	_ assessment.PageFetcher = (*ingestion.Fetcher)(nil)
)

type Runtime struct {
	Service *assessment.Service
	SQLite  *sqlite.Client
	// Redis is nil when caching is disabled or unreachable.
	Redis *redis.Client
}

// LoadEngine reads the lexicon and weight tables, falling back to the embedded
// defaults for empty paths. Malformed files are errors.
func LoadEngine(cfg config.EngineConfig) (*lexicon.Store, *scoring.WeightTable, error) {
	var (
		store *lexicon.Store
		err   error
	)
	if cfg.LexiconPath != "" {
		store, err = lexicon.Load(cfg.LexiconPath)
	} else {
		store, err = lexicon.Default()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load lexicon: %w", err)
	}

	var table *scoring.WeightTable
	if cfg.WeightsPath != "" {
		table, err = scoring.LoadWeightTable(cfg.WeightsPath)
	} else {
		table, err = scoring.DefaultWeightTable()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load sector weights: %w", err)
	}

	return store, table, nil
}

func New(cfg *config.Config) (*Runtime, error) {
	store, table, err := LoadEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}

	logger.Info("Engine loaded",
		zap.Int("themes", store.Len()),
		zap.String("lexicon_version", store.Version()),
		zap.Int("sectors", len(table.Sectors())),
	)

	if dir := filepath.Dir(cfg.SQLite.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite client: %w", err)
	}
	if err := db.InitSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	rt := &Runtime{SQLite: db}

	deps := assessment.Deps{
		Analyzer:   analyzer.New(store),
		Combinator: scoring.NewCombinator(table, scoring.WithClamping(cfg.Engine.ClampScores)),
		Processor: ingestion.NewProcessor(ingestion.ExtractOptions{
			ReviewSelector: cfg.Ingestion.ReviewSelector,
			RatingAttr:     cfg.Ingestion.RatingAttr,
		}),
		Fetcher: ingestion.NewFetcher(ingestion.FetcherConfig{
			Timeout:           time.Duration(cfg.Ingestion.TimeoutSec) * time.Second,
			UserAgent:         cfg.Ingestion.UserAgent,
			MaxAttempts:       cfg.Ingestion.MaxAttempts,
			AllowPrivateHosts: cfg.Ingestion.AllowPrivateHosts,
		}),
		Store: db,
	}

	if cfg.Redis.Enabled {
		client, err := redis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSec)*time.Second,
		)
		if err != nil {
			logger.Warn("Redis unavailable, running without cache", zap.Error(err))
		} else {
			rt.Redis = client
			deps.Cache = client
		}
	}

	rt.Service = assessment.NewService(deps)
	return rt, nil
}

// Ready pings SQLite and, when configured, Redis.
func (rt *Runtime) Ready(ctx context.Context) error {
	if err := rt.SQLite.Ping(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if rt.Redis != nil {
		if err := rt.Redis.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (rt *Runtime) Close() {
	if rt.Redis != nil {
		if err := rt.Redis.Close(); err != nil {
			logger.Warn("Failed to close Redis client", zap.Error(err))
		}
	}
	if err := rt.SQLite.Close(); err != nil {
		logger.Warn("Failed to close SQLite client", zap.Error(err))
	}
}
