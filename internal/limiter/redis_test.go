package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisLimiter(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "", Policy{Window: time.Minute, MaxFails: 3, BlockFor: 10 * time.Minute}), mr
}

func TestRedis_BlocksAfterMaxFails(t *testing.T) {
	t.Parallel()
	l, _ := newRedisLimiter(t)
	ctx := context.Background()
	ip := HashIP("10.0.0.1:5000")

	ok, _, err := l.Allow(ctx, "a@b.com", ip)
	require.NoError(t, err)
	require.True(t, ok)

	for i := 0; i < 2; i++ {
		blocked, _, err := l.Failure(ctx, "a@b.com", ip)
		require.NoError(t, err)
		require.False(t, blocked)
	}
	blocked, dur, err := l.Failure(ctx, "A@B.com", ip)
	require.NoError(t, err)
	require.True(t, blocked)
	require.Equal(t, 10*time.Minute, dur)

	ok, retry, err := l.Allow(ctx, "a@b.com", ip)
	require.NoError(t, err)
	require.False(t, ok)
	require.Greater(t, retry, time.Duration(0))

	// other address is unaffected
	ok, _, err = l.Allow(ctx, "a@b.com", HashIP("10.0.0.2:5000"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedis_BlockExpires(t *testing.T) {
	t.Parallel()
	l, mr := newRedisLimiter(t)
	ctx := context.Background()
	ip := HashIP("x")

	for i := 0; i < 3; i++ {
		_, _, err := l.Failure(ctx, "a@b.com", ip)
		require.NoError(t, err)
	}
	mr.FastForward(11 * time.Minute)

	ok, _, err := l.Allow(ctx, "a@b.com", ip)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedis_WindowResetsFailures(t *testing.T) {
	t.Parallel()
	l, mr := newRedisLimiter(t)
	ctx := context.Background()
	ip := HashIP("x")

	for i := 0; i < 2; i++ {
		_, _, _ = l.Failure(ctx, "a@b.com", ip)
	}
	mr.FastForward(2 * time.Minute)

	blocked, _, err := l.Failure(ctx, "a@b.com", ip)
	require.NoError(t, err)
	require.False(t, blocked, "old failures must be forgotten")
}

func TestRedis_SuccessResets(t *testing.T) {
	t.Parallel()
	l, _ := newRedisLimiter(t)
	ctx := context.Background()
	ip := HashIP("x")

	for i := 0; i < 2; i++ {
		_, _, _ = l.Failure(ctx, "a@b.com", ip)
	}
	require.NoError(t, l.Success(ctx, "a@b.com", ip))

	blocked, _, err := l.Failure(ctx, "a@b.com", ip)
	require.NoError(t, err)
	require.False(t, blocked)
}
