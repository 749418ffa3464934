package cache

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"careercoach/internal/config"
	"careercoach/internal/errors"
	"careercoach/internal/types"

	"github.com/redis/go-redis/v9"
)

// Redis caches validated flow outputs and verified sessions
type Redis struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

// NewRedis creates a pooled client. It returns nil when the cache is disabled.
func NewRedis(cfg config.CacheConfig) *Redis {
	if !cfg.Enabled {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	return newRedis(rdb, cfg.TTL, cfg.KeyPrefix)
}

func newRedis(client *redis.Client, ttl time.Duration, keyPrefix string) *Redis {
	return &Redis{client: client, ttl: ttl, keyPrefix: keyPrefix}
}

// Ping tests the connection
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errors.NewNetworkError(errors.ErrCodeCacheFailed, "redis ping failed", err)
	}
	return nil
}

// Close closes the connection pool
func (r *Redis) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

func (r *Redis) flowKey(flow types.FlowName, key string) string {
	return fmt.Sprintf("%sflow:%s:%s", r.keyPrefix, flow, key)
}

func (r *Redis) sessionKey(key string) string {
	return r.keyPrefix + "session:" + key
}

// Get returns a cached flow output
func (r *Redis) Get(ctx context.Context, flow types.FlowName, key string) ([]byte, bool, error) {
	return r.get(ctx, r.flowKey(flow, key))
}

// Set stores a flow output for the configured TTL
func (r *Redis) Set(ctx context.Context, flow types.FlowName, key string, value []byte) error {
	return r.set(ctx, r.flowKey(flow, key), value, r.ttl)
}

// GetSession returns a cached session
func (r *Redis) GetSession(ctx context.Context, key string) ([]byte, bool, error) {
	return r.get(ctx, r.sessionKey(key))
}

// SetSession stores a session for ttl
func (r *Redis) SetSession(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.set(ctx, r.sessionKey(key), value, ttl)
}

func (r *Redis) get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewNetworkError(errors.ErrCodeCacheFailed, "redis get failed", err)
	}
	return value, true, nil
}

func (r *Redis) set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.NewNetworkError(errors.ErrCodeCacheFailed, "redis set failed", err)
	}
	return nil
}
