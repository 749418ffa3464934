package cache

import (
	"context"
	"testing"
	"time"

	"careercoach/internal/config"
	"careercoach/internal/types"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := newRedis(client, time.Hour, "test:")
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestFlowOutputCache(t *testing.T) {
	r, mr := setupRedis(t)
	ctx := context.Background()

	_, hit, err := r.Get(ctx, types.FlowChat, "abc")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, r.Set(ctx, types.FlowChat, "abc", []byte(`{"reply":"hi"}`)))

	value, hit, err := r.Get(ctx, types.FlowChat, "abc")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.JSONEq(t, `{"reply":"hi"}`, string(value))

	assert.True(t, mr.Exists("test:flow:chat:abc"))
	assert.Equal(t, time.Hour, mr.TTL("test:flow:chat:abc"))

	_, hit, err = r.Get(ctx, types.FlowRoadmap, "abc")
	require.NoError(t, err)
	assert.False(t, hit, "keys are scoped by flow")

	mr.FastForward(2 * time.Hour)
	_, hit, err = r.Get(ctx, types.FlowChat, "abc")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestSessionCache(t *testing.T) {
	r, mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, r.SetSession(ctx, "k1", []byte(`{"userId":"u1"}`), 30*time.Second))
	assert.Equal(t, 30*time.Second, mr.TTL("test:session:k1"))

	value, hit, err := r.GetSession(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, `{"userId":"u1"}`, string(value))
}

func TestRedisErrors(t *testing.T) {
	r, mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Ping(ctx))
	mr.Close()

	assert.Error(t, r.Ping(ctx))
	_, hit, err := r.Get(ctx, types.FlowChat, "abc")
	assert.Error(t, err)
	assert.False(t, hit)
	assert.Error(t, r.Set(ctx, types.FlowChat, "abc", []byte("x")))
}

func TestNewRedisDisabled(t *testing.T) {
	assert.Nil(t, NewRedis(config.CacheConfig{Enabled: false}))

	var r *Redis
	assert.NoError(t, r.Close())
}
