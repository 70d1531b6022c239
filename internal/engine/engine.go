package engine

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/solvault/vault-engine/internal/dex"
	"github.com/solvault/vault-engine/internal/events"
	"github.com/solvault/vault-engine/internal/storage"
	"github.com/solvault/vault-engine/internal/vault"
)

// Transferrer moves actual tokens alongside the ledger. A nil Transferrer
// runs the engine in ledger-only mode, used by tests and dry runs.
type Transferrer interface {
	Deposit(ctx context.Context, authority vault.Authority, mint solana.PublicKey, amount uint64) error
	Withdraw(ctx context.Context, authority vault.Authority, mint solana.PublicKey, amount uint64) error
	WrapSOL(ctx context.Context, authority vault.Authority, amount uint64) error
	UnwrapSOL(ctx context.Context, authority vault.Authority) error
}

// Swapper routes encoded swaps to a venue. *dex.Router is the production
// implementation.
type Swapper interface {
	ExecuteSwap(ctx context.Context, poolType dex.PoolType, amountIn, amountOutMin uint64, accounts []dex.VenueAccount, signer vault.Authority) (*dex.SwapResult, error)
}

// Engine orchestrates every vault operation: admin config, the per-investor
// ledger, and the trade-signal pipeline.
type Engine struct {
	store       storage.VaultStore
	sink        storage.EventSink
	eventStore  storage.EventStore
	swapper     Swapper
	transferrer Transferrer
	locks       *vault.LockRegistry
	logger      *logrus.Logger
}

// EngineConfig holds the engine's collaborators. Store and Swapper are
// required; Sink, EventStore and Transferrer are optional.
type EngineConfig struct {
	Store       storage.VaultStore
	Sink        storage.EventSink
	EventStore  storage.EventStore
	Swapper     Swapper
	Transferrer Transferrer
	Logger      *logrus.Logger
}

// NewEngine creates an engine with all dependencies wired.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("engine: vault store is required")
	}
	if cfg.Swapper == nil {
		return nil, fmt.Errorf("engine: swapper is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	return &Engine{
		store:       cfg.Store,
		sink:        cfg.Sink,
		eventStore:  cfg.EventStore,
		swapper:     cfg.Swapper,
		transferrer: cfg.Transferrer,
		locks:       vault.NewLockRegistry(),
		logger:      cfg.Logger,
	}, nil
}

// emit publishes an event to the sink. Emission failures are logged, not
// returned: by the time an event exists the state change already happened.
func (e *Engine) emit(ctx context.Context, event events.Event) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Publish(ctx, event); err != nil {
		e.logger.WithError(err).WithField("kind", event.Kind()).Warn("failed to publish event")
	}
}

// loadInitializedVault fetches an investor's vault and checks it is usable.
func (e *Engine) loadInitializedVault(ctx context.Context, investor solana.PublicKey) (*vault.Vault, error) {
	v, err := e.store.LoadVault(ctx, investor)
	if err != nil {
		return nil, err
	}
	if !v.Initialized {
		return nil, ErrVaultNotInitialized
	}
	return v, nil
}

// authority rebuilds the vault's delegated signing identity from its stored
// bump.
func (e *Engine) authority(v *vault.Vault) (vault.Authority, error) {
	return vault.DeriveAuthority(v.Investor, v.Bump)
}

// acquireLock takes both the in-process lock and checks the persisted flag.
// A persisted Locked=true with no in-process holder means a previous run
// died mid-operation; refusing is safer than assuming.
func (e *Engine) acquireLock(v *vault.Vault) (func(), error) {
	release, err := e.locks.Acquire(v.Investor)
	if err != nil {
		return nil, err
	}
	if v.Locked {
		release()
		return nil, vault.ErrReentrantCall
	}
	return release, nil
}
