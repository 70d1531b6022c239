package cache

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvault/vault-engine/internal/events"
	"github.com/solvault/vault-engine/internal/storage"
	"github.com/solvault/vault-engine/internal/vault"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.Ping(ctx).Err()
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	err = client.FlushDB(ctx).Err()
	require.NoError(t, err)

	return client
}

func cleanupTestRedis(client *redis.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = client.FlushDB(ctx).Err()
	_ = client.Close()
}

func newTestVault(investor solana.PublicKey) *vault.Vault {
	return &vault.Vault{
		Investor:    investor,
		Initialized: true,
		Bump:        254,
	}
}

func TestRedisVaultStore_CreateAndLoad(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	store, err := NewRedisVaultStoreWithClient(client)
	require.NoError(t, err)

	ctx := context.Background()
	investor := solana.NewWallet().PublicKey()
	v := newTestVault(investor)
	vault.SetTokenBalance(v, vault.WSOLMint, 5_000_000)

	require.NoError(t, store.CreateVault(ctx, v))

	loaded, err := store.LoadVault(ctx, investor)
	require.NoError(t, err)
	assert.Equal(t, v.Investor, loaded.Investor)
	assert.Equal(t, uint64(5_000_000), vault.GetTokenBalance(loaded, vault.WSOLMint))
	assert.Equal(t, uint8(254), loaded.Bump)
}

func TestRedisVaultStore_CreateDuplicateFails(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	store, err := NewRedisVaultStoreWithClient(client)
	require.NoError(t, err)

	ctx := context.Background()
	v := newTestVault(solana.NewWallet().PublicKey())

	require.NoError(t, store.CreateVault(ctx, v))

	err = store.CreateVault(ctx, v)
	assert.ErrorIs(t, err, storage.ErrVaultExists)
}

func TestRedisVaultStore_PersistRequiresExisting(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	store, err := NewRedisVaultStoreWithClient(client)
	require.NoError(t, err)

	ctx := context.Background()
	v := newTestVault(solana.NewWallet().PublicKey())

	err = store.PersistVault(ctx, v)
	assert.ErrorIs(t, err, storage.ErrVaultNotFound)

	require.NoError(t, store.CreateVault(ctx, v))
	vault.SetTokenBalance(v, vault.WSOLMint, 42)
	require.NoError(t, store.PersistVault(ctx, v))

	loaded, err := store.LoadVault(ctx, v.Investor)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), vault.GetTokenBalance(loaded, vault.WSOLMint))
}

func TestRedisVaultStore_LoadMissing(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	store, err := NewRedisVaultStoreWithClient(client)
	require.NoError(t, err)

	_, err = store.LoadVault(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, storage.ErrVaultNotFound)
}

func TestRedisVaultStore_GlobalConfig(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	store, err := NewRedisVaultStoreWithClient(client)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = store.LoadGlobalConfig(ctx)
	assert.ErrorIs(t, err, storage.ErrGlobalConfigNotFound)

	cfg := &vault.GlobalConfig{
		Admin:       solana.NewWallet().PublicKey(),
		Bot:         solana.NewWallet().PublicKey(),
		Initialized: true,
	}
	require.NoError(t, store.PersistGlobalConfig(ctx, cfg))

	loaded, err := store.LoadGlobalConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg.Admin, loaded.Admin)
	assert.Equal(t, cfg.Bot, loaded.Bot)
	assert.True(t, loaded.Initialized)
}

func TestRedisEventSink_RecentTradeSignals(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	sink, err := NewRedisEventSinkWithClient(client, nil)
	require.NoError(t, err)

	ctx := context.Background()
	user := solana.NewWallet().PublicKey()

	for i := 1; i <= 3; i++ {
		err := sink.Publish(ctx, events.TradeSignalEvent{
			User:       user,
			TokenIn:    vault.WSOLMint,
			TokenOut:   solana.NewWallet().PublicKey(),
			AmountIn:   uint64(i) * 1_000,
			AmountOut:  uint64(i) * 990,
			Timestamps: events.Now(),
		})
		require.NoError(t, err)
	}

	signals, err := sink.RecentTradeSignals(ctx, 2)
	require.NoError(t, err)
	require.Len(t, signals, 2)
	// Newest first.
	assert.Equal(t, uint64(3_000), signals[0].AmountIn)
	assert.Equal(t, uint64(2_000), signals[1].AmountIn)
	assert.Equal(t, user, signals[0].User)
}

func TestRedisEventSink_SubscribeTradeSignals(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	sink, err := NewRedisEventSinkWithClient(client, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *events.TradeSignalEvent, 1)
	go func() {
		_ = sink.SubscribeTradeSignals(ctx, func(sig *events.TradeSignalEvent) {
			received <- sig
		})
	}()

	// Give the subscription time to establish.
	time.Sleep(200 * time.Millisecond)

	sent := events.TradeSignalEvent{
		User:       solana.NewWallet().PublicKey(),
		AmountIn:   500_000,
		AmountOut:  492_700,
		Timestamps: events.Now(),
	}
	require.NoError(t, sink.Publish(ctx, sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.User, got.User)
		assert.Equal(t, sent.AmountIn, got.AmountIn)
	case <-ctx.Done():
		t.Fatal("timed out waiting for trade signal")
	}
}

func TestDecodeEnvelope_UnknownKind(t *testing.T) {
	_, err := decodeEnvelope([]byte(`{"kind":"mystery","data":{}}`))
	assert.Error(t, err)
}
