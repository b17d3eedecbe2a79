// Package app assembles the services of a granja process from its
// configuration.
package app

import (
	"context"
	"fmt"

	"granja/internal/config"
	"granja/internal/core/tx"
	"granja/internal/domain/params"
	"granja/internal/domain/sow"
	"granja/internal/infrastructure/cache"
	"granja/internal/infrastructure/http/v1/handlers"
	"granja/internal/infrastructure/metrics"
	"granja/internal/infrastructure/storage/memory"
	"granja/internal/infrastructure/storage/postgres"
	"granja/internal/infrastructure/storage/postgres/sow_repo"
	"granja/internal/infrastructure/storage/sqlite"
	"granja/pkg/logger"
)

// App holds the wired services. Close releases the store and cache.
type App struct {
	Config  *config.Config
	Sows    *sow.Service
	Params  *params.Service
	Metrics *metrics.Metrics
	Checks  map[string]handlers.Pinger

	closers []func()
}

// Store is an opened sow store with its transaction manager.
type Store struct {
	Repo      sow.Repository
	TxManager tx.Manager
	Close     func()
}

// OpenStore opens the configured driver and applies its schema. m may be
// nil; when set, postgres pool gauges are registered on it.
func OpenStore(ctx context.Context, cfg config.StoreConfig, m *metrics.Metrics) (*Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return &Store{Repo: memory.NewStore(), TxManager: tx.Nop{}, Close: func() {}}, nil

	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Store{Repo: s, TxManager: s, Close: func() { _ = s.Close() }}, nil

	case config.DriverPostgres:
		poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
		poolCfg.MaxConns = cfg.MaxConns
		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		if m != nil {
			registerPoolGauges(m, pool)
		}
		txm := postgres.NewTxManager(pool)
		closeFn := func() {
			pool.LogStats(ctx)
			pool.Close()
		}
		return &Store{Repo: sow_repo.NewRepo(txm), TxManager: txm, Close: closeFn}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func registerPoolGauges(m *metrics.Metrics, pool *postgres.Pool) {
	m.GaugeFunc("db_pool", "total_conns", "Open connections in the pool.", func() float64 {
		return float64(pool.Stats().TotalConns)
	})
	m.GaugeFunc("db_pool", "acquired_conns", "Connections currently in use.", func() float64 {
		return float64(pool.Stats().AcquiredConns)
	})
	m.GaugeFunc("db_pool", "idle_conns", "Idle connections in the pool.", func() float64 {
		return float64(pool.Stats().IdleConns)
	})
}

// New opens the store and the parameter cache and wires the services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config:  cfg,
		Metrics: metrics.New(),
		Checks:  map[string]handlers.Pinger{},
	}

	store, err := OpenStore(ctx, cfg.Store, a.Metrics)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	a.closers = append(a.closers, store.Close)
	a.Checks["store"] = store.Repo

	a.Sows = sow.NewService(sow.ServiceConfig{Repo: store.Repo, TxManager: store.TxManager})

	var reports params.Cache
	if cfg.Redis.Addr != "" {
		redisCfg := cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		}
		client := cache.NewRedisClient(redisCfg)
		a.closers = append(a.closers, func() { _ = client.Close() })
		rc := cache.NewRedisCache(client, redisCfg)
		if err := rc.Ping(ctx); err != nil {
			logger.Warn(ctx, "redis unavailable, parameter reports will be computed on every request", "addr", cfg.Redis.Addr, "error", err)
		}
		a.Checks["cache"] = rc
		reports = rc
	} else {
		reports = cache.NewLocalCache(cfg.Redis.TTL)
	}

	a.Params = params.NewService(params.ServiceConfig{
		Source:   a.Sows,
		Cache:    reports,
		Recorder: a.Metrics,
		Calculation: params.Config{
			AnestrusWindowDays: cfg.Params.AnestrusWindowDays,
			Workers:            cfg.Params.Workers,
		},
	})
	a.Params.InvalidateOn(a.Sows.Hooks())

	logger.Info(ctx, "services ready",
		"store", cfg.Store.Driver,
		"cache", cacheKind(cfg.Redis.Addr),
	)
	return a, nil
}

func cacheKind(addr string) string {
	if addr == "" {
		return "local"
	}
	return "redis"
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
