package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type payload struct {
	Segment string  `json:"segment"`
	Rate    float64 `json:"rate"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := New(context.Background(), WithAddress(mr.Addr()), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestCache_SetGet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Segment: "A", Rate: 2.5}, time.Minute))

	var got payload
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, payload{Segment: "A", Rate: 2.5}, got)

	mr.FastForward(2 * time.Minute)
	err := c.Get(ctx, "k", &got)
	assert.True(t, errors.Is(err, redis.Nil))
}

func TestCache_Miss(t *testing.T) {
	c, _ := newTestCache(t)

	var got payload
	err := c.Get(context.Background(), "absent", &got)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestCache_UndecodableEntry(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("bad", "{not json"))

	var got payload
	err := c.Get(context.Background(), "bad", &got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, redis.Nil)
}

func TestCache_Ping(t *testing.T) {
	c, mr := newTestCache(t)
	assert.NoError(t, c.Ping(context.Background()))

	mr.Close()
	assert.Error(t, c.Ping(context.Background()))
}

func TestNew_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := New(ctx, WithAddress(addr))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis")
}
