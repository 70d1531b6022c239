package dex

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/solvault/vault-engine/internal/vault"
)

// Raydium CLMM is an Anchor program; its swap instruction is tagged with the
// 8-byte discriminator sha256("global:swap")[:8] followed by
//
//	amount (u64 LE) + other_amount_threshold (u64 LE) +
//	sqrt_price_limit_x64 (u128 LE, zero = unconstrained) +
//	is_base_input (bool, fixed to true)
//
// Expected account order (payer first, CLMM program last):
//
//	[0] executor (payer, signer)
//	[1] ammConfig
//	[2] poolState
//	[3] inputTokenAccount  (vault's)
//	[4] outputTokenAccount (vault's)
//	[5] inputVault
//	[6] outputVault
//	[7] observationState
//	[8] token program
//	[9] token-2022 program
//	[10] memo program
//	[11] inputMint
//	[12] outputMint
//	[13+] tick array bitmap + tick arrays
const (
	clmmMinAccountCount  = 13
	clmmOutputAccountIdx = 4
)

// RaydiumCLMM is the concentrated-liquidity venue adapter.
type RaydiumCLMM struct {
	invoker Invoker
	logger  *logrus.Logger
}

func NewRaydiumCLMM(invoker Invoker, logger *logrus.Logger) *RaydiumCLMM {
	if logger == nil {
		logger = logrus.New()
	}
	return &RaydiumCLMM{invoker: invoker, logger: logger}
}

func (d *RaydiumCLMM) Name() string { return PoolTypeRaydiumCLMM.String() }

// SwapDiscriminator computes the Anchor instruction tag for "swap".
func SwapDiscriminator() []byte {
	sum := sha256.Sum256([]byte("global:swap"))
	return sum[:8]
}

// EncodeSwapInstruction builds the CLMM swap instruction. The price limit is
// left at zero (unconstrained) and the input is always the base asset; the
// minimum-output check bounds the downside instead.
func (d *RaydiumCLMM) EncodeSwapInstruction(amountIn, amountOutMin uint64, accounts []VenueAccount) (solana.Instruction, error) {
	if len(accounts) < clmmMinAccountCount {
		return nil, fmt.Errorf("%w: raydium clmm needs at least %d accounts, got %d", ErrInsufficientAccounts, clmmMinAccountCount, len(accounts))
	}

	data := make([]byte, 0, 41)
	data = append(data, SwapDiscriminator()...)

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], amountIn)
	data = append(data, buf[:]...)
	binary.LittleEndian.PutUint64(buf[:], amountOutMin)
	data = append(data, buf[:]...)

	// sqrt_price_limit_x64: u128, zero.
	data = append(data, make([]byte, 16)...)
	// is_base_input: true.
	data = append(data, 1)

	return solana.NewInstruction(RaydiumCLMMProgramID, Metas(accounts), data), nil
}

func (d *RaydiumCLMM) ExecuteSwap(
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

	outputAccount := accounts[clmmOutputAccountIdx].Pubkey

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
