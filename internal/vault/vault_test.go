package vault

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTokenBalance_AbsentIsZero(t *testing.T) {
	v := &Vault{Investor: solana.NewWallet().PublicKey()}

	assert.Equal(t, uint64(0), GetTokenBalance(v, solana.NewWallet().PublicKey()))
}

func TestSetTokenBalance_AppendsAndUpdates(t *testing.T) {
	v := &Vault{}
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()

	SetTokenBalance(v, mintA, 100)
	SetTokenBalance(v, mintB, 50)
	assert.Len(t, v.Balances, 2)
	assert.Equal(t, uint64(100), GetTokenBalance(v, mintA))
	assert.Equal(t, uint64(50), GetTokenBalance(v, mintB))

	// Update in place, no new entry.
	SetTokenBalance(v, mintA, 75)
	assert.Len(t, v.Balances, 2)
	assert.Equal(t, uint64(75), GetTokenBalance(v, mintA))

	// Zero is stored explicitly once an entry exists.
	SetTokenBalance(v, mintA, 0)
	assert.Len(t, v.Balances, 2)
	assert.Equal(t, uint64(0), GetTokenBalance(v, mintA))
}

func TestClone_IsIndependent(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	v := &Vault{Initialized: true}
	SetTokenBalance(v, mint, 500)

	c := v.Clone()
	SetTokenBalance(c, mint, 999)

	assert.Equal(t, uint64(500), GetTokenBalance(v, mint))
	assert.Equal(t, uint64(999), GetTokenBalance(c, mint))
}

func TestDeriveVaultAddress_Deterministic(t *testing.T) {
	investor := solana.NewWallet().PublicKey()

	addr1, bump1, err := DeriveVaultAddress(investor)
	require.NoError(t, err)
	addr2, bump2, err := DeriveVaultAddress(investor)
	require.NoError(t, err)

	assert.Equal(t, addr1, addr2)
	assert.Equal(t, bump1, bump2)
	assert.False(t, addr1.IsZero())

	// A different investor derives a different address.
	other, _, err := DeriveVaultAddress(solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.NotEqual(t, addr1, other)
}

func TestDeriveAuthority_RejectsBadBump(t *testing.T) {
	investor := solana.NewWallet().PublicKey()
	_, bump, err := DeriveVaultAddress(investor)
	require.NoError(t, err)

	auth, err := DeriveAuthority(investor, bump)
	require.NoError(t, err)
	assert.False(t, auth.Address.IsZero())
	assert.Len(t, auth.Seeds(), 3)

	_, err = DeriveAuthority(investor, bump+1)
	assert.Error(t, err)
}

func TestLockRegistry_BlocksReentry(t *testing.T) {
	r := NewLockRegistry()
	investor := solana.NewWallet().PublicKey()

	release, err := r.Acquire(investor)
	require.NoError(t, err)
	assert.True(t, r.Held(investor))

	_, err = r.Acquire(investor)
	assert.ErrorIs(t, err, ErrReentrantCall)

	// Independent vaults are not serialized against each other.
	otherRelease, err := r.Acquire(solana.NewWallet().PublicKey())
	require.NoError(t, err)
	otherRelease()

	release()
	assert.False(t, r.Held(investor))

	// Double release is harmless.
	release()

	_, err = r.Acquire(investor)
	assert.NoError(t, err)
}
