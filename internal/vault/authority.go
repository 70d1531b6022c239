package vault

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ProgramID is the on-chain vault program address. Vault and global-config
// addresses are PDAs derived under it.
var ProgramID = solana.MustPublicKeyFromBase58("FFbZem3yLs4Pr4LoXJPuqFp7CJsDvaYj9xQEkYboTaoJ")

var (
	vaultSeed        = []byte("vault")
	globalConfigSeed = []byte("global_config")
)

// Authority is a vault's derived identity: a deterministic program address
// with no private key. It names the vault in events and derivations; actual
// transactions are signed by the operator wallet on its behalf.
type Authority struct {
	Address solana.PublicKey
	Bump    uint8

	investor solana.PublicKey
}

// DeriveVaultAddress derives the PDA for an investor's vault.
func DeriveVaultAddress(investor solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{vaultSeed, investor.Bytes()},
		ProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive vault address: %w", err)
	}
	return addr, bump, nil
}

// DeriveGlobalConfigAddress derives the singleton global-config PDA.
func DeriveGlobalConfigAddress() (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{globalConfigSeed},
		ProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive global config address: %w", err)
	}
	return addr, bump, nil
}

// DeriveAuthority rebuilds a vault's signing authority from its investor and
// stored bump, then verifies it against a fresh derivation. A mismatch means
// the stored bump or seeds are corrupt and the authority must not be used.
func DeriveAuthority(investor solana.PublicKey, storedBump uint8) (Authority, error) {
	addr, bump, err := DeriveVaultAddress(investor)
	if err != nil {
		return Authority{}, err
	}
	if bump != storedBump {
		return Authority{}, fmt.Errorf("vault authority: stored bump %d does not match derived bump %d", storedBump, bump)
	}
	return Authority{Address: addr, Bump: bump, investor: investor}, nil
}

// Seeds returns the signer seeds the authority signs with.
func (a Authority) Seeds() [][]byte {
	return [][]byte{vaultSeed, a.investor.Bytes(), {a.Bump}}
}

// Investor returns the investor the authority was derived for.
func (a Authority) Investor() solana.PublicKey {
	return a.investor
}
