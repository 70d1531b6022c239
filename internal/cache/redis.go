package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"

	"github.com/solvault/vault-engine/internal/storage"
	"github.com/solvault/vault-engine/internal/vault"
)

const (
	vaultKeyPrefix  = "vault:"
	vaultIndexKey   = "vault:index"
	globalConfigKey = "vault:global_config"
)

// RedisVaultStore keeps vault and global-config state in Redis as JSON
// values, one key per investor.
type RedisVaultStore struct {
	client *redis.Client
}

func NewRedisVaultStore(addr string) *RedisVaultStore {
	return &RedisVaultStore{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   0,
		}),
	}
}

// NewRedisVaultStoreWithClient wraps an existing client, used by tests.
func NewRedisVaultStoreWithClient(client *redis.Client) (*RedisVaultStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisVaultStore{client: client}, nil
}

// Client exposes the underlying connection so other Redis-backed
// components (feature flags) can share it.
func (s *RedisVaultStore) Client() *redis.Client {
	return s.client
}

func vaultKey(investor solana.PublicKey) string {
	return vaultKeyPrefix + investor.String()
}

func (s *RedisVaultStore) CreateVault(ctx context.Context, v *vault.Vault) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal vault: %w", err)
	}

	// SetNX is the uniqueness check: a second create for the same investor
	// must fail, it never resets an existing ledger.
	ok, err := s.client.SetNX(ctx, vaultKey(v.Investor), b, 0).Result()
	if err != nil {
		return fmt.Errorf("create vault: %w", err)
	}
	if !ok {
		return storage.ErrVaultExists
	}

	if err := s.client.SAdd(ctx, vaultIndexKey, v.Investor.String()).Err(); err != nil {
		return fmt.Errorf("index vault: %w", err)
	}
	return nil
}

func (s *RedisVaultStore) LoadVault(ctx context.Context, investor solana.PublicKey) (*vault.Vault, error) {
	val, err := s.client.Get(ctx, vaultKey(investor)).Result()
	if err == redis.Nil {
		return nil, storage.ErrVaultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load vault: %w", err)
	}

	var v vault.Vault
	if err := json.Unmarshal([]byte(val), &v); err != nil {
		return nil, fmt.Errorf("unmarshal vault: %w", err)
	}
	return &v, nil
}

func (s *RedisVaultStore) PersistVault(ctx context.Context, v *vault.Vault) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal vault: %w", err)
	}

	// XX: only overwrite a vault that already exists.
	ok, err := s.client.SetXX(ctx, vaultKey(v.Investor), b, 0).Result()
	if err != nil {
		return fmt.Errorf("persist vault: %w", err)
	}
	if !ok {
		return storage.ErrVaultNotFound
	}
	return nil
}

func (s *RedisVaultStore) LoadGlobalConfig(ctx context.Context) (*vault.GlobalConfig, error) {
	val, err := s.client.Get(ctx, globalConfigKey).Result()
	if err == redis.Nil {
		return nil, storage.ErrGlobalConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load global config: %w", err)
	}

	var cfg vault.GlobalConfig
	if err := json.Unmarshal([]byte(val), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal global config: %w", err)
	}
	return &cfg, nil
}

func (s *RedisVaultStore) PersistGlobalConfig(ctx context.Context, cfg *vault.GlobalConfig) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal global config: %w", err)
	}
	if err := s.client.Set(ctx, globalConfigKey, b, 0).Err(); err != nil {
		return fmt.Errorf("persist global config: %w", err)
	}
	return nil
}

func (s *RedisVaultStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisVaultStore) Close() error {
	return s.client.Close()
}
