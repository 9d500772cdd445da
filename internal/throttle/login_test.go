package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestThrottle(t *testing.T, max int) (*LoginThrottle, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLoginThrottle(client, max, 15*time.Minute), mr
}

func TestLoginThrottle_LocksAfterMaxFailures(t *testing.T) {
	th, _ := setupTestThrottle(t, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, _, err := th.Allow(ctx, "a@x.com")
		require.NoError(t, err)
		require.True(t, ok, "attempt %d should be allowed", i+1)
		require.NoError(t, th.Fail(ctx, "a@x.com"))
	}

	ok, retry, err := th.Allow(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, 15*time.Minute)

	other, _, err := th.Allow(ctx, "b@x.com")
	require.NoError(t, err)
	assert.True(t, other)
}

func TestLoginThrottle_WindowStartsAtFirstFailure(t *testing.T) {
	th, mr := setupTestThrottle(t, 3)
	ctx := context.Background()

	require.NoError(t, th.Fail(ctx, "a@x.com"))
	mr.FastForward(10 * time.Minute)
	require.NoError(t, th.Fail(ctx, "a@x.com"))

	assert.Equal(t, 5*time.Minute, mr.TTL(keyPrefix+"a@x.com"))
}

func TestLoginThrottle_ExpiresAfterLockout(t *testing.T) {
	th, mr := setupTestThrottle(t, 1)
	ctx := context.Background()

	require.NoError(t, th.Fail(ctx, "a@x.com"))
	ok, _, err := th.Allow(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(16 * time.Minute)

	ok, _, err = th.Allow(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoginThrottle_Reset(t *testing.T) {
	th, mr := setupTestThrottle(t, 2)
	ctx := context.Background()

	require.NoError(t, th.Fail(ctx, "a@x.com"))
	require.NoError(t, th.Fail(ctx, "a@x.com"))
	require.NoError(t, th.Reset(ctx, "a@x.com"))

	assert.False(t, mr.Exists(keyPrefix+"a@x.com"))
	ok, _, err := th.Allow(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoginThrottle_RedisDown(t *testing.T) {
	th, mr := setupTestThrottle(t, 5)
	mr.Close()

	_, _, err := th.Allow(context.Background(), "a@x.com")
	assert.Error(t, err)
	assert.Error(t, th.Fail(context.Background(), "a@x.com"))
}

func TestNoop(t *testing.T) {
	var n Noop
	ok, _, err := n.Allow(context.Background(), "a@x.com")
	assert.True(t, ok)
	assert.NoError(t, err)
	assert.NoError(t, n.Fail(context.Background(), "a@x.com"))
	assert.NoError(t, n.Reset(context.Background(), "a@x.com"))
}
