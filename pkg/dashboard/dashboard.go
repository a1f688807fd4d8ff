package dashboard

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	core "github.com/goliatone/go-dashboard-editor/components/dashboard"
	"github.com/goliatone/go-dashboard-editor/pkg/config"
	"github.com/goliatone/go-dashboard-editor/pkg/savedobjects"
)

// Service exposes the underlying components/dashboard.Service type.
type Service = core.Service

// Options re-exports the Service options.
type Options = core.ServiceOptions

// Loader is the saved dashboard persistence contract.
type Loader = core.Loader

// NewService proxies to the internal constructor.
func NewService(opts Options) *Service {
	return core.NewService(opts)
}

// OpenLoader builds the saved object backend selected by cfg.Loader.Driver. The
// returned close function releases connections and is never nil.
func OpenLoader(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Loader, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	noop := func() {}
	switch cfg.Loader.Driver {
	case config.DriverMemory, "":
		return core.NewInMemoryLoader(), noop, nil
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("dashboard: connect redis %s: %w", cfg.Redis.Addr, err)
		}
		return savedobjects.NewRedisStore(client, cfg.Redis.Prefix), func() { _ = client.Close() }, nil
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, noop, fmt.Errorf("dashboard: connect postgres: %w", err)
		}
		store := savedobjects.NewPostgresStore(pool)
		if cfg.Postgres.EnsureSchema {
			if err := store.EnsureSchema(ctx); err != nil {
				pool.Close()
				return nil, noop, err
			}
		}
		return store, pool.Close, nil
	case config.DriverHTTP:
		breaker := cfg.HTTPLoader.CircuitBreaker
		client, err := savedobjects.NewHTTPClient(savedobjects.HTTPConfig{
			BaseURL:    cfg.HTTPLoader.BaseURL,
			APIKey:     cfg.HTTPLoader.APIKey,
			HTTPClient: &http.Client{Timeout: cfg.HTTPLoader.Timeout},
			Breaker: &savedobjects.BreakerConfig{
				MaxRequests:      breaker.MaxRequests,
				Interval:         breaker.Interval,
				Timeout:          breaker.Timeout,
				MinRequests:      breaker.MinRequests,
				FailureThreshold: breaker.FailureThreshold,
			},
			DeleteConcurrency: cfg.HTTPLoader.DeleteConcurrency,
			Logger:            logger,
		})
		if err != nil {
			return nil, noop, err
		}
		return client, noop, nil
	default:
		return nil, noop, fmt.Errorf("dashboard: unknown loader driver %q", cfg.Loader.Driver)
	}
}
