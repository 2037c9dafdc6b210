package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meowem-bao/do1ad-assignment2/internal/session"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisSessionStore(client)
	ctx := context.Background()

	sess := &session.Session{ID: "abc", UserID: 42, Username: "alice", CSRFToken: "tok"}
	sess.AddFlash(session.FlashSuccess, "Welcome")
	require.NoError(t, store.Save(ctx, sess, time.Hour))
	require.True(t, mr.Exists("session:abc"))
	require.Equal(t, time.Hour, mr.TTL("session:abc"))

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, int64(42), got.UserID)
	require.Equal(t, "tok", got.CSRFToken)
	require.Len(t, got.Flashes, 1)

	require.NoError(t, store.Delete(ctx, "abc"))
	got, err = store.Get(ctx, "abc")
	require.NoError(t, err)
	require.Nil(t, got)
	require.NoError(t, store.Ping(ctx))
}

func TestRedisSessionStoreExpires(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisSessionStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &session.Session{ID: "idle"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	got, err := store.Get(ctx, "idle")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisSessionStoreCorruptPayload(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisSessionStore(client)
	require.NoError(t, mr.Set("session:bad", "{not json"))

	_, err := store.Get(context.Background(), "bad")
	require.ErrorContains(t, err, "decode session")
}
