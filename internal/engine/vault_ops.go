package engine

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/solvault/vault-engine/internal/events"
	"github.com/solvault/vault-engine/internal/vault"
)

// CreateBalanceManager initializes an empty vault for the investor. Creating
// twice for the same investor fails without touching the existing ledger.
func (e *Engine) CreateBalanceManager(ctx context.Context, investor solana.PublicKey) (*vault.Vault, error) {
	if investor.IsZero() {
		return nil, ErrInvalidTokenAddress
	}

	addr, bump, err := vault.DeriveVaultAddress(investor)
	if err != nil {
		return nil, err
	}

	v := &vault.Vault{
		Investor:    investor,
		Initialized: true,
		Bump:        bump,
	}
	if err := e.store.CreateVault(ctx, v); err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"investor": investor.String(),
		"vault":    addr.String(),
	}).Info("balance manager created")

	e.emit(ctx, events.BalanceManagerCreatedEvent{
		User:       investor,
		Vault:      addr,
		Timestamps: events.Now(),
	})
	return v, nil
}

// Deposit credits amount of token to the investor's ledger. Only the
// investor may fund their own vault. The zero token address is the
// native SOL entry. Deposits hold the same per-vault lock as every
// other mutation, so one landing mid-trade is refused instead of being
// overwritten by the trade's persist.
func (e *Engine) Deposit(ctx context.Context, caller, investor, token solana.PublicKey, amount uint64) error {
	if !caller.Equals(investor) {
		return ErrOnlyInvestor
	}
	if amount == 0 {
		return ErrInvalidAmount
	}

	v, err := e.loadInitializedVault(ctx, investor)
	if err != nil {
		return err
	}

	release, err := e.acquireLock(v)
	if err != nil {
		return err
	}
	defer release()

	next := v.Clone()
	balance, err := checkedAdd(vault.GetTokenBalance(next, token), amount)
	if err != nil {
		return err
	}
	vault.SetTokenBalance(next, token, balance)

	if e.transferrer != nil {
		auth, err := e.authority(v)
		if err != nil {
			return err
		}
		if err := e.transferrer.Deposit(ctx, auth, token, amount); err != nil {
			return err
		}
	}

	if err := e.store.PersistVault(ctx, next); err != nil {
		return err
	}

	e.emit(ctx, events.UserDepositEvent{
		User:       investor,
		Token:      token,
		Amount:     amount,
		Timestamps: events.Now(),
	})
	return nil
}

// Withdraw debits amount of token from the investor's ledger and returns the
// tokens. The zero token address is the native SOL entry. Withdrawals are
// guarded: a second one for the same investor cannot start until the first
// finishes.
func (e *Engine) Withdraw(ctx context.Context, caller, investor, token solana.PublicKey, amount uint64) error {
	if !caller.Equals(investor) {
		return ErrOnlyInvestor
	}
	if amount == 0 {
		return ErrInvalidAmount
	}

	v, err := e.loadInitializedVault(ctx, investor)
	if err != nil {
		return err
	}

	release, err := e.acquireLock(v)
	if err != nil {
		return err
	}
	defer release()

	next := v.Clone()
	balance, err := checkedSub(vault.GetTokenBalance(next, token), amount)
	if err != nil {
		return err
	}
	vault.SetTokenBalance(next, token, balance)

	if e.transferrer != nil {
		auth, err := e.authority(v)
		if err != nil {
			return err
		}
		if err := e.transferrer.Withdraw(ctx, auth, token, amount); err != nil {
			return err
		}
	}

	if err := e.store.PersistVault(ctx, next); err != nil {
		return err
	}

	e.emit(ctx, events.UserWithdrawEvent{
		User:       investor,
		Token:      token,
		Amount:     amount,
		Timestamps: events.Now(),
	})
	return nil
}

// WrapSOL converts part of the native SOL ledger entry into wrapped SOL so
// it can trade on SPL venues.
func (e *Engine) WrapSOL(ctx context.Context, caller, investor solana.PublicKey, amount uint64) error {
	if !caller.Equals(investor) {
		return ErrOnlyInvestor
	}
	if amount == 0 {
		return ErrInvalidAmount
	}

	v, err := e.loadInitializedVault(ctx, investor)
	if err != nil {
		return err
	}

	release, err := e.acquireLock(v)
	if err != nil {
		return err
	}
	defer release()

	next := v.Clone()
	native, err := checkedSub(vault.GetTokenBalance(next, vault.NativeSOLMint), amount)
	if err != nil {
		return err
	}
	wrapped, err := checkedAdd(vault.GetTokenBalance(next, vault.WSOLMint), amount)
	if err != nil {
		return err
	}
	vault.SetTokenBalance(next, vault.NativeSOLMint, native)
	vault.SetTokenBalance(next, vault.WSOLMint, wrapped)

	if e.transferrer != nil {
		auth, err := e.authority(v)
		if err != nil {
			return err
		}
		if err := e.transferrer.WrapSOL(ctx, auth, amount); err != nil {
			return err
		}
	}

	return e.store.PersistVault(ctx, next)
}

// UnwrapSOL converts the vault's entire wrapped SOL balance back to native
// SOL. Token accounts close whole, so there is no partial unwrap.
func (e *Engine) UnwrapSOL(ctx context.Context, caller, investor solana.PublicKey) error {
	if !caller.Equals(investor) {
		return ErrOnlyInvestor
	}

	v, err := e.loadInitializedVault(ctx, investor)
	if err != nil {
		return err
	}

	release, err := e.acquireLock(v)
	if err != nil {
		return err
	}
	defer release()

	next := v.Clone()
	wrapped := vault.GetTokenBalance(next, vault.WSOLMint)
	if wrapped == 0 {
		return ErrInsufficientBalance
	}
	native, err := checkedAdd(vault.GetTokenBalance(next, vault.NativeSOLMint), wrapped)
	if err != nil {
		return err
	}
	vault.SetTokenBalance(next, vault.WSOLMint, 0)
	vault.SetTokenBalance(next, vault.NativeSOLMint, native)

	if e.transferrer != nil {
		auth, err := e.authority(v)
		if err != nil {
			return err
		}
		if err := e.transferrer.UnwrapSOL(ctx, auth); err != nil {
			return err
		}
	}

	return e.store.PersistVault(ctx, next)
}

// Balance reports the ledger balance for one token, zero if never deposited.
func (e *Engine) Balance(ctx context.Context, investor, token solana.PublicKey) (uint64, error) {
	v, err := e.loadInitializedVault(ctx, investor)
	if err != nil {
		return 0, err
	}
	return vault.GetTokenBalance(v, token), nil
}

// Vault returns the full ledger for an investor.
func (e *Engine) Vault(ctx context.Context, investor solana.PublicKey) (*vault.Vault, error) {
	return e.loadInitializedVault(ctx, investor)
}
