package dex

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/solvault/vault-engine/internal/vault"
)

// Raydium AMM V4 is a non-Anchor program driven by a single-byte
// instruction id. Swap-fixed-in is id 9:
//
//	[9u8] + amount_in (u64 LE) + min_amount_out (u64 LE)
//
// Callers supply the full 18-account list the pool expects (token program,
// pool state/authority/open-orders/target-orders, both pool vaults, the
// OpenBook market accounts, the vault's input and output token accounts, and
// the AMM program itself last).
const (
	ammSwapFixedInInstruction = 9

	ammAccountCount     = 18
	ammOutputAccountIdx = 16
)

// RaydiumAMM is the constant-product venue adapter.
type RaydiumAMM struct {
	invoker Invoker
	logger  *logrus.Logger
}

func NewRaydiumAMM(invoker Invoker, logger *logrus.Logger) *RaydiumAMM {
	if logger == nil {
		logger = logrus.New()
	}
	return &RaydiumAMM{invoker: invoker, logger: logger}
}

func (d *RaydiumAMM) Name() string { return PoolTypeRaydiumAMM.String() }

// EncodeSwapInstruction builds the AMM V4 swap-fixed-in instruction from the
// supplied venue accounts, preserving each account's flags.
func (d *RaydiumAMM) EncodeSwapInstruction(amountIn, amountOutMin uint64, accounts []VenueAccount) (solana.Instruction, error) {
	if len(accounts) < ammAccountCount {
		return nil, fmt.Errorf("%w: raydium amm v4 needs %d accounts, got %d", ErrInsufficientAccounts, ammAccountCount, len(accounts))
	}

	data := make([]byte, 17)
	data[0] = ammSwapFixedInInstruction
	binary.LittleEndian.PutUint64(data[1:9], amountIn)
	binary.LittleEndian.PutUint64(data[9:17], amountOutMin)

	return solana.NewInstruction(RaydiumAMMProgramID, Metas(accounts), data), nil
}

// ExecuteSwap encodes and invokes the swap with the vault's delegated
// authority, returning the output observed on the vault's output account.
func (d *RaydiumAMM) ExecuteSwap(
	ctx context.Context,
	amountIn uint64,
	amountOutMin uint64,
	accounts []VenueAccount,
	signer vault.Authority,
) (*SwapResult, error) {
	if amountIn == 0 {
		return nil, ErrInvalidAmount
	}
	if len(accounts) == 0 {
		return nil, ErrInsufficientAccounts
	}

	ix, err := d.EncodeSwapInstruction(amountIn, amountOutMin, accounts)
	if err != nil {
		return nil, err
	}

	outputAccount := accounts[ammOutputAccountIdx].Pubkey

	d.logger.WithFields(logrus.Fields{
		"venue":          d.Name(),
		"amount_in":      amountIn,
		"amount_out_min": amountOutMin,
		"accounts":       len(accounts),
	}).Debug("executing swap")

	amountOut, err := d.invoker.Invoke(ctx, ix, signer, outputAccount)
	if err != nil {
		d.logger.WithError(err).WithField("venue", d.Name()).Warn("venue call failed")
		return nil, fmt.Errorf("%w: %s", ErrSwapExecutionFailed, d.Name())
	}

	return &SwapResult{
		AmountOut: amountOut,
		VenueFee:  amountIn / 1000,
	}, nil
}
