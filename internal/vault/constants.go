package vault

import "github.com/gagliardetto/solana-go"

const (
	SOLDecimals    = 9
	LamportsPerSOL = 1_000_000_000
)

// WSOLMint is the wrapped-SOL token mint.
var WSOLMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

// NativeSOLMint is the sentinel mint used to record native SOL in the
// balance list, distinct from wrapped SOL.
var NativeSOLMint = solana.SystemProgramID
