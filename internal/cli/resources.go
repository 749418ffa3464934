package cli

import (
	"context"
	"time"

	"careercoach/internal/ai"
	"careercoach/internal/cache"
	"careercoach/internal/config"
	"careercoach/internal/errors"
	"careercoach/internal/identity"
	"careercoach/internal/store"
)

const dependencyPingTimeout = 5 * time.Second

// openCache connects to Redis when caching is enabled. An unreachable
// Redis disables the cache instead of failing the command.
func openCache(ctx context.Context, cfg *config.Config, logger *errors.Logger) *cache.Redis {
	redis := cache.NewRedis(cfg.Cache)
	if redis == nil {
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, dependencyPingTimeout)
	defer cancel()
	if err := redis.Ping(pingCtx); err != nil {
		logger.LogError(err, "Redis unavailable, continuing without output cache", "address", cfg.Cache.Address)
		closeQuietly(logger, "redis", redis.Close)
		return nil
	}

	logger.Info("Output cache enabled", "address", cfg.Cache.Address, "ttl", cfg.Cache.TTL)
	return redis
}

// openHistory opens the generation history database and creates its table.
// It returns nil when history is disabled.
func openHistory(ctx context.Context, cfg *config.Config, logger *errors.Logger) (*store.History, error) {
	history, err := store.Open(cfg.History)
	if err != nil || history == nil {
		return nil, err
	}

	schemaCtx, cancel := context.WithTimeout(ctx, dependencyPingTimeout)
	defer cancel()
	if err := history.EnsureSchema(schemaCtx); err != nil {
		closeQuietly(logger, "history", history.Close)
		return nil, err
	}

	logger.Info("Generation history enabled")
	return history, nil
}

func newCoach(cfg *config.Config, logger *errors.Logger, redis *cache.Redis) (*ai.Coach, error) {
	var opts []ai.Option
	if redis != nil {
		opts = append(opts, ai.WithCache(redis))
	}
	return ai.NewCoach(cfg, logger, opts...)
}

func newIdentityClient(cfg *config.Config, logger *errors.Logger, redis *cache.Redis) *identity.Client {
	var opts []identity.ClientOption
	if redis != nil && cfg.Auth.SessionCacheTTL > 0 {
		opts = append(opts, identity.WithSessionCache(redis, cfg.Auth.SessionCacheTTL))
	}
	return identity.NewClient(cfg.Auth, logger, opts...)
}

func closeQuietly(logger *errors.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.LogError(err, "Failed to close resource", "resource", name)
	}
}
