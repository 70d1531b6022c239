package dex

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"

	"github.com/solvault/vault-engine/internal/vault"
)

// PoolType selects which venue adapter handles a swap.
type PoolType uint8

const (
	PoolTypeRaydiumAMM  PoolType = 0 // constant-product AMM V4
	PoolTypeRaydiumCLMM PoolType = 1 // concentrated liquidity
)

func (p PoolType) String() string {
	switch p {
	case PoolTypeRaydiumAMM:
		return "raydium_amm_v4"
	case PoolTypeRaydiumCLMM:
		return "raydium_clmm"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidAmount        = errors.New("swap amount must be greater than zero")
	ErrInsufficientAccounts = errors.New("insufficient venue accounts supplied")
	ErrInvalidPoolType      = errors.New("unsupported pool type")
	// ErrSwapExecutionFailed collapses every venue-side failure; the venue's
	// detailed failure reason is not decoded.
	ErrSwapExecutionFailed = errors.New("swap execution failed")
)

// Venue program IDs (mainnet).
var (
	RaydiumAMMProgramID  = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	RaydiumCLMMProgramID = solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK")
)

// VenueAccount is one externally supplied account reference. The shape of the
// list is venue-specific and opaque to the router; by convention the last
// element names the venue program itself.
type VenueAccount struct {
	Pubkey     solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

// Metas converts the list to solana account metas, preserving the
// signer/writable flags exactly as supplied.
func Metas(accounts []VenueAccount) []*solana.AccountMeta {
	metas := make([]*solana.AccountMeta, len(accounts))
	for i, a := range accounts {
		metas[i] = &solana.AccountMeta{
			PublicKey:  a.Pubkey,
			IsSigner:   a.IsSigner,
			IsWritable: a.IsWritable,
		}
	}
	return metas
}

// SwapResult is what an adapter reports after a successful venue call.
type SwapResult struct {
	// AmountOut is the observed output: the balance delta on the vault's
	// output token account across the venue call. The venue's return value
	// is never trusted directly.
	AmountOut uint64
	// VenueFee is the venue-side fee estimate. The pipeline computes the
	// protocol fee itself; this is informational only.
	VenueFee uint64
}

// Invoker executes an encoded venue instruction with the vault's delegated
// signing authority and reports the balance delta observed on outputAccount.
// Implementations must be atomic: a failed call leaves no partial effects.
type Invoker interface {
	Invoke(ctx context.Context, ix solana.Instruction, signer vault.Authority, outputAccount solana.PublicKey) (uint64, error)
}
