package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projecthub/internal/core/config"
)

type stats struct {
	Total int64 `json:"total"`
}

func newCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestNew_EmptyAddrDisables(t *testing.T) {
	c := New(config.Redis{})
	assert.Nil(t, c)
	assert.False(t, c.Enabled())
	assert.NoError(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())

	var calls int
	load := func(context.Context) (*stats, error) { calls++; return &stats{Total: 1}, nil }
	for i := 0; i < 2; i++ {
		v, err := GetOrLoadJSON(c, context.Background(), "k", time.Minute, load)
		require.NoError(t, err)
		assert.EqualValues(t, 1, v.Total)
	}
	assert.Equal(t, 2, calls)
}

func TestGetOrLoadJSON_CachesUntilTTL(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))

	var calls atomic.Int32
	load := func(context.Context) (*stats, error) {
		n := calls.Add(1)
		return &stats{Total: int64(n)}, nil
	}

	v, err := GetOrLoadJSON(c, ctx, "stats:users", time.Minute, load)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v.Total)
	assert.True(t, mr.Exists(keyPrefix+"stats:users"))

	v, err = GetOrLoadJSON(c, ctx, "stats:users", time.Minute, load)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v.Total)
	assert.EqualValues(t, 1, calls.Load())

	mr.FastForward(2 * time.Minute)
	v, err = GetOrLoadJSON(c, ctx, "stats:users", time.Minute, load)
	require.NoError(t, err)
	assert.EqualValues(t, 2, v.Total)
}

func TestDelete(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	_, err := c.GetOrLoad(ctx, "a", time.Minute, func(context.Context) ([]byte, error) { return []byte("1"), nil })
	require.NoError(t, err)
	require.True(t, mr.Exists(keyPrefix+"a"))

	require.NoError(t, c.Delete(ctx, "a"))
	assert.False(t, mr.Exists(keyPrefix+"a"))
}

func TestGetOrLoad_LoadErrorNotCached(t *testing.T) {
	c, mr := newCache(t)
	_, err := c.GetOrLoad(context.Background(), "bad", time.Minute, func(context.Context) ([]byte, error) {
		return nil, assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.False(t, mr.Exists(keyPrefix+"bad"))
}

func TestGetOrLoadJSON_CorruptEntryReloads(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	require.NoError(t, mr.Set(keyPrefix+"stats:users", "{not json"))

	var calls int32
	v, err := GetOrLoadJSON(c, ctx, "stats:users", time.Minute, func(context.Context) (*stats, error) {
		atomic.AddInt32(&calls, 1)
		return &stats{Total: 7}, nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 7, v.Total)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.False(t, mr.Exists(keyPrefix+"stats:users"))
}
