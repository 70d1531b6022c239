package engine

import "math/big"

const (
	// maxBps is the basis-point denominator: 10000 bps = 100%.
	maxBps = 10_000

	// baseFeeBps is the platform margin folded into every minimum-output
	// calculation on top of the caller's slippage tolerance.
	baseFeeBps = 100

	// Protocol fee on realized output: 3000 / 1_000_000 = 0.3%.
	feeNumerator   = 3_000
	feeDenominator = 1_000_000
)

var (
	bigMaxBps   = big.NewInt(maxBps)
	bigFeeNum   = big.NewInt(feeNumerator)
	bigFeeDenom = big.NewInt(feeDenominator)
)

// MinOutputAmount computes the worst acceptable swap output:
//
//	floor(amountIn * (10000 - (baseFeeBps + slippageBps)) / 10000)
//
// The combined deduction must stay under 100%.
func MinOutputAmount(amountIn uint64, slippageBps uint16) (uint64, error) {
	if uint32(slippageBps) > maxBps {
		return 0, ErrInvalidSlippage
	}
	total := uint32(baseFeeBps) + uint32(slippageBps)
	if total > maxBps {
		return 0, ErrInvalidSlippage
	}

	// Intermediate product can exceed 64 bits.
	out := new(big.Int).SetUint64(amountIn)
	out.Mul(out, big.NewInt(int64(maxBps-total)))
	out.Div(out, bigMaxBps)

	if !out.IsUint64() {
		return 0, ErrMathOverflow
	}
	return out.Uint64(), nil
}

// ComputeFee splits a realized output into (protocol fee, user amount).
// The two always sum back to amountOut exactly.
func ComputeFee(amountOut uint64) (fee uint64, userAmount uint64) {
	f := new(big.Int).SetUint64(amountOut)
	f.Mul(f, bigFeeNum)
	f.Div(f, bigFeeDenom)

	fee = f.Uint64()
	return fee, amountOut - fee
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrMathOverflow
	}
	return sum, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrInsufficientBalance
	}
	return a - b, nil
}
