package storage

import (
	"context"
	"io"

	"github.com/gagliardetto/solana-go"

	"github.com/solvault/vault-engine/internal/events"
	"github.com/solvault/vault-engine/internal/vault"
)

// VaultStore defines the interface for vault and global-config state
type VaultStore interface {
	// CreateVault stores a freshly initialized vault; it fails if one
	// already exists for the investor
	CreateVault(ctx context.Context, v *vault.Vault) error

	// LoadVault retrieves an investor's vault, or ErrVaultNotFound
	LoadVault(ctx context.Context, investor solana.PublicKey) (*vault.Vault, error)

	// PersistVault overwrites an existing vault's state
	PersistVault(ctx context.Context, v *vault.Vault) error

	// LoadGlobalConfig retrieves the singleton config, or
	// ErrGlobalConfigNotFound before initialization
	LoadGlobalConfig(ctx context.Context) (*vault.GlobalConfig, error)

	// PersistGlobalConfig stores the singleton config
	PersistGlobalConfig(ctx context.Context, cfg *vault.GlobalConfig) error

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	// Close closes the store connection
	io.Closer
}

// EventSink defines the interface for publishing vault lifecycle events
type EventSink interface {
	// Publish fans an event out to subscribers
	Publish(ctx context.Context, event events.Event) error

	// RecentTradeSignals retrieves the most recently published trade signals
	RecentTradeSignals(ctx context.Context, limit int64) ([]*events.TradeSignalEvent, error)

	// Close closes the sink connection
	io.Closer
}

// EventStore defines the interface for durable trade-signal storage
type EventStore interface {
	// InsertTradeSignal appends a completed trade to the audit log
	InsertTradeSignal(ctx context.Context, event *events.TradeSignalEvent) error

	// RecentTradeSignals retrieves the newest trades for a user, or for
	// everyone when user is the zero key
	RecentTradeSignals(ctx context.Context, user solana.PublicKey, limit int64) ([]*events.TradeSignalEvent, error)

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	// Close closes the store connection
	io.Closer
}

// EventHandler is a function that processes vault events
type EventHandler func(events.Event)
