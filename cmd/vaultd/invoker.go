package main

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"

	"github.com/solvault/vault-engine/internal/vault"
)

// unavailableInvoker rejects venue calls when no operator wallet is
// configured. Ledger operations still work; trades do not.
type unavailableInvoker struct{}

func (unavailableInvoker) Invoke(context.Context, solana.Instruction, vault.Authority, solana.PublicKey) (uint64, error) {
	return 0, errors.New("no operator wallet configured")
}
