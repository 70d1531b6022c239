package wallet

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvault/vault-engine/internal/vault"
)

// signAsOperator assembles the instructions into a transaction and signs it
// resolving only the operator key, exactly as SignAndSend does. Any
// instruction requiring another signer fails here.
func signAsOperator(t *testing.T, operator *solana.Wallet, ixs []solana.Instruction) {
	t.Helper()

	tx, err := solana.NewTransaction(ixs, solana.Hash{}, solana.TransactionPayer(operator.PublicKey()))
	require.NoError(t, err)

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(operator.PublicKey()) {
			return &operator.PrivateKey
		}
		return nil
	})
	require.NoError(t, err)
}

func TestWithdrawTokenInstructions_OperatorSignsAlone(t *testing.T) {
	operator := solana.NewWallet()
	investor := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	for _, destExists := range []bool{true, false} {
		ixs, err := withdrawTokenInstructions(operator.PublicKey(), investor, mint, 500, destExists)
		require.NoError(t, err)

		for _, ix := range ixs {
			for _, meta := range ix.Accounts() {
				if meta.IsSigner {
					assert.Equal(t, operator.PublicKey(), meta.PublicKey)
				}
			}
		}
		signAsOperator(t, operator, ixs)
	}
}

func TestWithdrawTokenInstructions_DestinationOwnedByInvestor(t *testing.T) {
	operator := solana.NewWallet()
	investor := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	ixs, err := withdrawTokenInstructions(operator.PublicKey(), investor, mint, 500, false)
	require.NoError(t, err)
	require.Len(t, ixs, 2)

	// The created account belongs to the investor, not the operator.
	createMetas := ixs[0].Accounts()
	assert.Equal(t, investor, createMetas[2].PublicKey)
	assert.False(t, createMetas[2].IsSigner)
}

func TestWrapAndUnwrapInstructions_OperatorSignsAlone(t *testing.T) {
	operator := solana.NewWallet()

	wsolAccount, _, err := FindAssociatedTokenAddress(operator.PublicKey(), vault.WSOLMint)
	require.NoError(t, err)

	signAsOperator(t, operator, wrapInstructions(operator.PublicKey(), wsolAccount, 1_000_000, false))
	signAsOperator(t, operator, wrapInstructions(operator.PublicKey(), wsolAccount, 1_000_000, true))

	ixs, err := unwrapInstructions(operator.PublicKey())
	require.NoError(t, err)
	signAsOperator(t, operator, ixs)
}
