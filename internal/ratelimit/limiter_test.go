package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestLimiterFixedWindow(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	l := New(store, "global", 3, time.Minute)
	l.now = fixedClock(base.Add(10 * time.Second))
	store.now = l.now
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		require.True(t, d.Allowed)
		require.Equal(t, 2-i, d.Remaining)
	}

	d, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, 0, d.Remaining)
	require.Equal(t, base.Add(time.Minute), d.ResetAt)
	require.Equal(t, 50*time.Second, d.RetryAfter)
	require.Equal(t, 50, d.RetryAfterSeconds())

	other, err := l.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	require.True(t, other.Allowed, "keys are independent")

	// The window rolls over on the wall-clock boundary.
	l.now = fixedClock(base.Add(time.Minute))
	store.now = l.now
	d, err = l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 2, d.Remaining)
}

func TestMemoryStoreCleanupEvictsFinishedWindows(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	now := time.Now()
	store.now = fixedClock(now)

	_, _ = store.Incr(context.Background(), "old", now.Add(time.Second))
	_, _ = store.Incr(context.Background(), "new", now.Add(time.Hour))
	require.Equal(t, 2, store.Len())

	store.now = fixedClock(now.Add(time.Minute))
	store.cleanup()
	require.Equal(t, 1, store.Len())
}

type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Time) (int64, error) {
	return 0, errors.New("down")
}

func TestLimiterFailsOpen(t *testing.T) {
	l := New(failingStore{}, "global", 1, time.Minute)
	d, err := l.Allow(context.Background(), "k")
	require.Error(t, err)
	require.True(t, d.Allowed)
}

func TestRedisStoreSharesCounters(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	now := time.Now()
	store := NewRedisStore(client)
	store.now = fixedClock(now)

	a := New(store, "auth", 2, time.Minute)
	b := New(NewRedisStore(client), "auth", 2, time.Minute)
	a.now = fixedClock(now)
	b.now = fixedClock(now)
	ctx := context.Background()

	d, err := a.Allow(ctx, "ip")
	require.NoError(t, err)
	require.True(t, d.Allowed)
	d, err = b.Allow(ctx, "ip")
	require.NoError(t, err)
	require.True(t, d.Allowed)
	d, err = a.Allow(ctx, "ip")
	require.NoError(t, err)
	require.False(t, d.Allowed, "second instance sees the first instance's hits")

	keys := mr.Keys()
	require.Len(t, keys, 1)
	require.Greater(t, mr.TTL(keys[0]), time.Duration(0))
}
