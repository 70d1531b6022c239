package flags

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	require.NoError(t, client.FlushDB(ctx).Err())

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})

	return client
}

func TestStore_UpsertAndGet(t *testing.T) {
	store, err := NewStore(setupTestRedis(t))
	require.NoError(t, err)

	ctx := context.Background()

	flag, err := store.Upsert(ctx, TradingPaused, true)
	require.NoError(t, err)
	assert.Equal(t, TradingPaused, flag.Key)
	assert.True(t, flag.Value)
	assert.NotZero(t, flag.UpdatedAt)

	got, err := store.Get(ctx, TradingPaused)
	require.NoError(t, err)
	assert.Equal(t, flag.Key, got.Key)
	assert.Equal(t, flag.Value, got.Value)

	// Upsert overwrites and bumps the timestamp
	time.Sleep(time.Millisecond)
	flag2, err := store.Upsert(ctx, TradingPaused, false)
	require.NoError(t, err)
	assert.True(t, flag2.UpdatedAt.After(flag.UpdatedAt))

	got, err = store.Get(ctx, TradingPaused)
	require.NoError(t, err)
	assert.False(t, got.Value)
}

func TestStore_GetMissing(t *testing.T) {
	store, err := NewStore(setupTestRedis(t))
	require.NoError(t, err)

	flag, err := store.Get(context.Background(), "nonexistent.flag")
	assert.Equal(t, ErrNotFound, err)
	assert.Nil(t, flag)
}

func TestStore_Enabled(t *testing.T) {
	store, err := NewStore(setupTestRedis(t))
	require.NoError(t, err)

	ctx := context.Background()

	// A flag nobody has set reads as off
	on, err := store.Enabled(ctx, TradingPaused)
	require.NoError(t, err)
	assert.False(t, on)

	_, err = store.Upsert(ctx, TradingPaused, true)
	require.NoError(t, err)

	on, err = store.Enabled(ctx, TradingPaused)
	require.NoError(t, err)
	assert.True(t, on)

	_, err = store.Upsert(ctx, TradingPaused, false)
	require.NoError(t, err)

	on, err = store.Enabled(ctx, TradingPaused)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestStore_Delete(t *testing.T) {
	store, err := NewStore(setupTestRedis(t))
	require.NoError(t, err)

	ctx := context.Background()

	_, err = store.Upsert(ctx, "venue.clmm.disabled", true)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "venue.clmm.disabled"))

	_, err = store.Get(ctx, "venue.clmm.disabled")
	assert.Equal(t, ErrNotFound, err)

	// Deleting a missing flag is not an error
	assert.NoError(t, store.Delete(ctx, "nonexistent.flag"))
}

func TestStore_List(t *testing.T) {
	store, err := NewStore(setupTestRedis(t))
	require.NoError(t, err)

	ctx := context.Background()

	items, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	want := map[string]bool{
		TradingPaused:        true,
		"venue.amm.disabled": false,
		"ledger.read_only":   true,
	}
	for key, value := range want {
		_, err := store.Upsert(ctx, key, value)
		require.NoError(t, err)
	}

	items, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, len(want))

	got := make(map[string]bool, len(items))
	for _, f := range items {
		got[f.Key] = f.Value
	}
	assert.Equal(t, want, got)
}

func TestStore_ConcurrentUpserts(t *testing.T) {
	store, err := NewStore(setupTestRedis(t))
	require.NoError(t, err)

	ctx := context.Background()

	const numGoroutines = 10
	const numOps = 50

	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer func() { done <- true }()
			for j := 0; j < numOps; j++ {
				key := fmt.Sprintf("flag.%d.%d", id, j)
				value := (id+j)%2 == 0

				_, err := store.Upsert(ctx, key, value)
				assert.NoError(t, err)

				got, err := store.Get(ctx, key)
				assert.NoError(t, err)
				assert.Equal(t, value, got.Value)
			}
		}(i)
	}
	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	items, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, numGoroutines*numOps)
}

func TestStore_KeyValidation(t *testing.T) {
	store, err := NewStore(setupTestRedis(t))
	require.NoError(t, err)

	ctx := context.Background()

	valid := []string{
		TradingPaused,
		"flag.with.dots",
		"flag123",
		"a",
	}
	for _, key := range valid {
		_, err := store.Upsert(ctx, key, true)
		assert.NoError(t, err, "key %s should be valid", key)
	}

	invalid := []string{
		"",
		" ",
		"flag with spaces",
		"flag:with:colons",
		"flag\twith\ttabs",
	}
	for _, key := range invalid {
		_, err := store.Upsert(ctx, key, true)
		assert.Error(t, err, "key %s should be invalid", key)
	}
}
