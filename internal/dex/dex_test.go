package dex

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvault/vault-engine/internal/vault"
)

// fakeInvoker records the instruction it was handed and returns a fixed
// output delta, standing in for an on-chain venue call.
type fakeInvoker struct {
	lastIx     solana.Instruction
	lastOutput solana.PublicKey
	amountOut  uint64
	err        error
}

func (f *fakeInvoker) Invoke(_ context.Context, ix solana.Instruction, _ vault.Authority, outputAccount solana.PublicKey) (uint64, error) {
	f.lastIx = ix
	f.lastOutput = outputAccount
	if f.err != nil {
		return 0, f.err
	}
	return f.amountOut, nil
}

func venueAccounts(n int) []VenueAccount {
	accounts := make([]VenueAccount, n)
	for i := range accounts {
		accounts[i] = VenueAccount{Pubkey: solana.NewWallet().PublicKey(), IsWritable: true}
	}
	return accounts
}

func testAuthority(t *testing.T) vault.Authority {
	t.Helper()
	investor := solana.NewWallet().PublicKey()
	_, bump, err := vault.DeriveVaultAddress(investor)
	require.NoError(t, err)
	auth, err := vault.DeriveAuthority(investor, bump)
	require.NoError(t, err)
	return auth
}

func TestRaydiumAMM_EncodeSwapInstruction(t *testing.T) {
	d := NewRaydiumAMM(&fakeInvoker{}, nil)
	accounts := venueAccounts(18)

	ix, err := d.EncodeSwapInstruction(500_000, 492_500, accounts)
	require.NoError(t, err)

	assert.Equal(t, RaydiumAMMProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 17)
	assert.Equal(t, byte(9), data[0])
	assert.Equal(t, uint64(500_000), binary.LittleEndian.Uint64(data[1:9]))
	assert.Equal(t, uint64(492_500), binary.LittleEndian.Uint64(data[9:17]))

	assert.Len(t, ix.Accounts(), 18)
}

func TestRaydiumAMM_RejectsShortAccountList(t *testing.T) {
	d := NewRaydiumAMM(&fakeInvoker{}, nil)

	_, err := d.EncodeSwapInstruction(1, 1, venueAccounts(17))
	assert.ErrorIs(t, err, ErrInsufficientAccounts)
}

func TestRaydiumAMM_ExecuteSwap(t *testing.T) {
	inv := &fakeInvoker{amountOut: 492_700}
	d := NewRaydiumAMM(inv, nil)
	accounts := venueAccounts(18)

	res, err := d.ExecuteSwap(context.Background(), 500_000, 492_500, accounts, testAuthority(t))
	require.NoError(t, err)

	assert.Equal(t, uint64(492_700), res.AmountOut)
	assert.Equal(t, accounts[16].Pubkey, inv.lastOutput)
}

func TestRaydiumAMM_ZeroAmount(t *testing.T) {
	d := NewRaydiumAMM(&fakeInvoker{}, nil)

	_, err := d.ExecuteSwap(context.Background(), 0, 0, venueAccounts(18), testAuthority(t))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestRaydiumAMM_InvokerFailureCollapses(t *testing.T) {
	inv := &fakeInvoker{err: errors.New("custom program error: 0x26")}
	d := NewRaydiumAMM(inv, nil)

	_, err := d.ExecuteSwap(context.Background(), 1_000, 900, venueAccounts(18), testAuthority(t))
	assert.ErrorIs(t, err, ErrSwapExecutionFailed)
	assert.NotContains(t, err.Error(), "0x26")
}

func TestRaydiumCLMM_EncodeSwapInstruction(t *testing.T) {
	d := NewRaydiumCLMM(&fakeInvoker{}, nil)
	accounts := venueAccounts(14)

	ix, err := d.EncodeSwapInstruction(1_000_000, 980_000, accounts)
	require.NoError(t, err)

	assert.Equal(t, RaydiumCLMMProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 41)

	want := sha256.Sum256([]byte("global:swap"))
	assert.Equal(t, want[:8], data[:8])
	assert.Equal(t, uint64(1_000_000), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(980_000), binary.LittleEndian.Uint64(data[16:24]))
	assert.Equal(t, make([]byte, 16), data[24:40], "price limit must stay unconstrained")
	assert.Equal(t, byte(1), data[40], "is_base_input")
}

func TestRaydiumCLMM_RejectsShortAccountList(t *testing.T) {
	d := NewRaydiumCLMM(&fakeInvoker{}, nil)

	_, err := d.EncodeSwapInstruction(1, 1, venueAccounts(12))
	assert.ErrorIs(t, err, ErrInsufficientAccounts)
}

func TestRaydiumCLMM_ExecuteSwap(t *testing.T) {
	inv := &fakeInvoker{amountOut: 979_990}
	d := NewRaydiumCLMM(inv, nil)
	accounts := venueAccounts(13)

	res, err := d.ExecuteSwap(context.Background(), 1_000_000, 979_000, accounts, testAuthority(t))
	require.NoError(t, err)

	assert.Equal(t, uint64(979_990), res.AmountOut)
	assert.Equal(t, accounts[4].Pubkey, inv.lastOutput)
}

func TestRouter_Dispatch(t *testing.T) {
	r := NewRouter(&fakeInvoker{}, nil)

	amm, err := r.Adapter(PoolTypeRaydiumAMM)
	require.NoError(t, err)
	assert.Equal(t, "raydium_amm_v4", amm.Name())

	clmm, err := r.Adapter(PoolTypeRaydiumCLMM)
	require.NoError(t, err)
	assert.Equal(t, "raydium_clmm", clmm.Name())
}

func TestRouter_UnknownPoolType(t *testing.T) {
	inv := &fakeInvoker{amountOut: 1}
	r := NewRouter(inv, nil)

	_, err := r.ExecuteSwap(context.Background(), PoolType(2), 1_000, 900, venueAccounts(18), testAuthority(t))
	assert.ErrorIs(t, err, ErrInvalidPoolType)
	assert.Nil(t, inv.lastIx, "no venue call may happen for an unknown pool type")
}
