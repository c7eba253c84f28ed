package history

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeContract exercises the Store behaviors every backend must share.
func storeContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Empty session lists empty.
	msgs, err := store.List(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, store.Append(ctx, "s1", "user", "how do I plot?", ts))
	require.NoError(t, store.Append(ctx, "s1", "assistant", "use ggplot2", ts.Add(time.Second)))
	require.NoError(t, store.Append(ctx, "s2", "user", "unrelated", ts))

	msgs, err = store.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "how do I plot?", msgs[0].Content)
	assert.True(t, msgs[0].Timestamp.Equal(ts))
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, "use ggplot2", msgs[1].Content)

	// Sessions are isolated.
	msgs, err = store.List(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	// Clear removes only the targeted session and tolerates repeats.
	require.NoError(t, store.Clear(ctx, "s1"))
	msgs, err = store.List(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
	require.NoError(t, store.Clear(ctx, "s1"))

	msgs, err = store.List(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestInMemoryStore(t *testing.T) {
	storeContract(t, NewInMemoryStore())
}

func TestInMemoryStore_ListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	require.NoError(t, store.Append(ctx, "s1", "user", "original", time.Now()))

	msgs, err := store.List(ctx, "s1")
	require.NoError(t, err)
	msgs[0].Content = "mutated"

	again, err := store.List(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Content)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	storeContract(t, store)
}

func TestSQLiteStore_OrderSurvivesManyAppends(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	base := time.Now().UTC()
	contents := []string{"one", "two", "three", "four"}
	for i, c := range contents {
		require.NoError(t, store.Append(ctx, "s1", "user", c, base.Add(time.Duration(i)*time.Millisecond)))
	}

	msgs, err := store.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, len(contents))
	for i, c := range contents {
		assert.Equal(t, c, msgs[i].Content)
	}
}

func newRedisTestStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStoreFromClient(client, ttl), mr
}

func TestRedisStore(t *testing.T) {
	store, _ := newRedisTestStore(t, 0)
	storeContract(t, store)
}

func TestRedisStore_SlidingTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisTestStore(t, time.Minute)

	require.NoError(t, store.Append(ctx, "s1", "user", "hi", time.Now()))
	require.Greater(t, mr.TTL("history:s1"), time.Duration(0))

	// The key expires once idle past the TTL.
	mr.FastForward(2 * time.Minute)
	msgs, err := store.List(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestRedisStore_AppendRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisTestStore(t, time.Minute)

	require.NoError(t, store.Append(ctx, "s1", "user", "first", time.Now()))
	mr.FastForward(30 * time.Second)
	require.NoError(t, store.Append(ctx, "s1", "assistant", "second", time.Now()))
	mr.FastForward(45 * time.Second)

	// 75s after the first append the session is still alive because the
	// second append reset the clock.
	msgs, err := store.List(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}
