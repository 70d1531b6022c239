package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinOutputAmount(t *testing.T) {
	// 1% platform margin + 0.5% slippage = 1.5% off the input.
	out, err := MinOutputAmount(500_000, 50)
	require.NoError(t, err)
	assert.Equal(t, uint64(492_500), out)

	// Zero slippage still deducts the platform margin.
	out, err = MinOutputAmount(10_000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(9_900), out)

	// Flooring.
	out, err = MinOutputAmount(999, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(989), out)

	// Full deduction leaves nothing.
	out, err = MinOutputAmount(500_000, 9_900)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), out)
}

func TestMinOutputAmount_RejectsExcessiveSlippage(t *testing.T) {
	_, err := MinOutputAmount(1_000, 10_001)
	assert.ErrorIs(t, err, ErrInvalidSlippage)

	// Slippage alone is in range but the combined deduction is not.
	_, err = MinOutputAmount(1_000, 9_901)
	assert.ErrorIs(t, err, ErrInvalidSlippage)
}

func TestMinOutputAmount_LargeInput(t *testing.T) {
	// Intermediate product exceeds 64 bits; result must not. The expected
	// value is floor(2^63 * 9_900 / 10_000) computed at full width, which
	// differs from dividing first.
	out, err := MinOutputAmount(1<<63, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(9_131_138_316_486_228_049), out)
}

func TestComputeFee(t *testing.T) {
	fee, user := ComputeFee(1_000_000)
	assert.Equal(t, uint64(3_000), fee)
	assert.Equal(t, uint64(997_000), user)

	// Tiny outputs round the fee to zero.
	fee, user = ComputeFee(100)
	assert.Equal(t, uint64(0), fee)
	assert.Equal(t, uint64(100), user)
}

func TestComputeFee_SplitsExactly(t *testing.T) {
	for _, amountOut := range []uint64{0, 1, 333, 492_700, 1_000_000, 1<<64 - 1} {
		fee, user := ComputeFee(amountOut)
		assert.Equal(t, amountOut, fee+user, "fee and user amount must sum to the output")
	}
}

func TestCheckedMath(t *testing.T) {
	sum, err := checkedAdd(1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), sum)

	_, err = checkedAdd(1<<64-1, 1)
	assert.ErrorIs(t, err, ErrMathOverflow)

	diff, err := checkedSub(5, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), diff)

	_, err = checkedSub(3, 5)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}
