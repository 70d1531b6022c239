package wallet

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/solvault/vault-engine/internal/vault"
)

// Transferrer moves custodial funds held by the operator wallet. Custody is
// omnibus: the operator's associated token accounts hold every investor's
// tokens and the ledger tracks per-investor entitlements. The vault
// authority is a derived address with no private key, so it never signs;
// every instruction built here resolves its signer metas to the operator
// key alone.
type Transferrer struct {
	wallet *Wallet
}

func NewTransferrer(w *Wallet) *Transferrer {
	return &Transferrer{wallet: w}
}

// Deposit makes sure the custody account for mint exists so the investor's
// inbound transfer has a destination. The inbound transfer itself is signed
// by the investor's own wallet out of band. Native SOL lands directly at
// the operator address and needs no token account.
func (t *Transferrer) Deposit(ctx context.Context, _ vault.Authority, mint solana.PublicKey, _ uint64) error {
	if mint.Equals(vault.NativeSOLMint) {
		return nil
	}

	custody, _, err := FindAssociatedTokenAddress(t.wallet.PublicKey(), mint)
	if err != nil {
		return fmt.Errorf("derive custody token account: %w", err)
	}
	exists, err := t.wallet.AccountExists(ctx, custody)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	operator := t.wallet.PublicKey()
	ix := NewCreateAssociatedTokenAccountIx(operator, custody, operator, mint)
	return t.sendAndConfirm(ctx, []solana.Instruction{ix})
}

// Withdraw pays amount of mint out of custody to the investor's own wallet,
// creating the investor's token account when it is missing.
func (t *Transferrer) Withdraw(ctx context.Context, authority vault.Authority, mint solana.PublicKey, amount uint64) error {
	investor := authority.Investor()
	if mint.Equals(vault.NativeSOLMint) {
		ix := NewSystemTransferIx(t.wallet.PublicKey(), investor, amount)
		return t.sendAndConfirm(ctx, []solana.Instruction{ix})
	}

	dest, _, err := FindAssociatedTokenAddress(investor, mint)
	if err != nil {
		return fmt.Errorf("derive destination token account: %w", err)
	}
	exists, err := t.wallet.AccountExists(ctx, dest)
	if err != nil {
		return err
	}

	ixs, err := withdrawTokenInstructions(t.wallet.PublicKey(), investor, mint, amount, exists)
	if err != nil {
		return err
	}
	return t.sendAndConfirm(ctx, ixs)
}

// WrapSOL moves amount lamports from the operator account into the wSOL
// custody account, then SyncNative so the token balance reflects them.
func (t *Transferrer) WrapSOL(ctx context.Context, _ vault.Authority, amount uint64) error {
	operator := t.wallet.PublicKey()
	wsolAccount, _, err := FindAssociatedTokenAddress(operator, vault.WSOLMint)
	if err != nil {
		return fmt.Errorf("derive wsol account: %w", err)
	}
	exists, err := t.wallet.AccountExists(ctx, wsolAccount)
	if err != nil {
		return err
	}

	return t.sendAndConfirm(ctx, wrapInstructions(operator, wsolAccount, amount, exists))
}

// UnwrapSOL closes the wSOL custody account, releasing its entire lamport
// balance back to the operator account. SPL token accounts can only be
// closed whole, so partial unwraps are not offered.
func (t *Transferrer) UnwrapSOL(ctx context.Context, _ vault.Authority) error {
	ixs, err := unwrapInstructions(t.wallet.PublicKey())
	if err != nil {
		return err
	}
	return t.sendAndConfirm(ctx, ixs)
}

// withdrawTokenInstructions builds the instruction list for a token
// withdrawal: create the investor's associated token account when missing,
// then transfer out of the operator's custody account. The operator key is
// the only signer across the list.
func withdrawTokenInstructions(operator, investor, mint solana.PublicKey, amount uint64, destExists bool) ([]solana.Instruction, error) {
	source, _, err := FindAssociatedTokenAddress(operator, mint)
	if err != nil {
		return nil, fmt.Errorf("derive custody token account: %w", err)
	}
	dest, _, err := FindAssociatedTokenAddress(investor, mint)
	if err != nil {
		return nil, fmt.Errorf("derive destination token account: %w", err)
	}

	var ixs []solana.Instruction
	if !destExists {
		ixs = append(ixs, NewCreateAssociatedTokenAccountIx(operator, dest, investor, mint))
	}
	ixs = append(ixs, NewTokenTransferIx(source, dest, operator, amount))
	return ixs, nil
}

func wrapInstructions(operator, wsolAccount solana.PublicKey, amount uint64, accountExists bool) []solana.Instruction {
	var ixs []solana.Instruction
	if !accountExists {
		ixs = append(ixs, NewCreateAssociatedTokenAccountIx(operator, wsolAccount, operator, vault.WSOLMint))
	}
	return append(ixs,
		NewSystemTransferIx(operator, wsolAccount, amount),
		NewTokenSyncNativeIx(wsolAccount),
	)
}

func unwrapInstructions(operator solana.PublicKey) ([]solana.Instruction, error) {
	wsolAccount, _, err := FindAssociatedTokenAddress(operator, vault.WSOLMint)
	if err != nil {
		return nil, fmt.Errorf("derive wsol account: %w", err)
	}
	return []solana.Instruction{NewTokenCloseAccountIx(wsolAccount, operator, operator)}, nil
}

func (t *Transferrer) sendAndConfirm(ctx context.Context, ixs []solana.Instruction) error {
	sig, err := t.wallet.SignAndSend(ctx, ixs)
	if err != nil {
		return fmt.Errorf("send transfer: %w", err)
	}
	if err := t.wallet.ConfirmTransaction(ctx, sig, t.wallet.cfg.DefaultCommitment, t.wallet.cfg.Timeout); err != nil {
		return fmt.Errorf("confirm transfer %s: %w", sig, err)
	}
	return nil
}
