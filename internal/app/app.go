// Package app wires configuration into a running ledger: the store, the
// optional redis connection and the services on top.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"tillledger/internal/cache"
	"tillledger/internal/config"
	"tillledger/internal/fee"
	"tillledger/internal/service"
	"tillledger/internal/store"
	"tillledger/internal/store/memory"
	pgstore "tillledger/internal/store/postgres"
	"tillledger/internal/store/sqlite"
)

type App struct {
	Config  config.Config
	Log     *logrus.Logger
	Repo    store.Repository
	Service *service.Service
	// Redis is nil when no redis is configured or it could not be reached.
	Redis *cache.RedisClosingCache

	closers []func() error
}

// Open builds the ledger described by cfg. A configured database that
// cannot be opened is fatal; an unreachable redis only disables caching.
func Open(ctx context.Context, cfg config.Config, log *logrus.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}
	for _, warning := range cfg.Warnings {
		log.WithField("module", "config").Warn(warning)
	}

	repo, err := a.openRepository(ctx)
	if err != nil {
		return nil, err
	}
	a.Repo = repo

	closingCache := cache.ClosingCache(cache.NoopClosingCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisClosingCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.WithError(err).Warn("redis unavailable, closing cache disabled")
			_ = redisCache.Close()
		} else {
			closingCache = redisCache
			a.Redis = redisCache
			a.closers = append(a.closers, redisCache.Close)
			log.WithField("addr", cfg.RedisAddr).Info("cache: redis")
		}
	}

	fees, err := fee.New(cfg.FeeRates)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("fee rates: %w", err)
	}

	a.Service = service.New(repo, service.Options{
		Fees:              fees,
		Location:          cfg.Location,
		Logger:            log,
		LowStockThreshold: cfg.LowStockThreshold,
		UnlinkOnRemove:    cfg.UnlinkOnRemove,
		ClosingCache:      closingCache,
		ClosingCacheTTL:   cfg.ClosingCacheTTL,
	})
	return a, nil
}

func (a *App) openRepository(ctx context.Context) (store.Repository, error) {
	switch {
	case a.Config.DatabaseURL != "":
		pg, err := pgstore.New(ctx, a.Config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		a.Log.Info("repository: postgres")
		return pg, nil
	case a.Config.SQLitePath != "":
		lite, err := sqlite.Open(ctx, a.Config.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite %s: %w", a.Config.SQLitePath, err)
		}
		a.closers = append(a.closers, lite.Close)
		a.Log.WithField("path", a.Config.SQLitePath).Info("repository: sqlite")
		return lite, nil
	default:
		a.Log.Warn("repository: in-memory, nothing survives a restart")
		return memory.New(), nil
	}
}

// Close releases everything Open acquired, in reverse order.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.WithError(err).Warn("close error")
			if first == nil {
				first = err
			}
		}
	}
	a.closers = nil
	return first
}
