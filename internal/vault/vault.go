package vault

import (
	"github.com/gagliardetto/solana-go"
)

// TokenBalance is one (mint, amount) entry in a vault's balance list.
type TokenBalance struct {
	Mint   solana.PublicKey `json:"mint"`
	Amount uint64           `json:"amount"`
}

// Vault is the per-investor balance ledger. The investor has exclusive
// deposit/withdraw rights; the configured bot trades on their behalf.
type Vault struct {
	Investor    solana.PublicKey `json:"investor"`
	Initialized bool             `json:"initialized"`
	// Locked is the reentrancy flag. It must be false on entry to any
	// withdrawal-class or trade operation and false again on every exit.
	Locked   bool           `json:"locked"`
	Balances []TokenBalance `json:"balances"`
	// Bump is the PDA bump seed saved at creation, used to rebuild the
	// delegated signing authority.
	Bump uint8 `json:"bump"`
}

// GlobalConfig holds operator state shared by every vault.
type GlobalConfig struct {
	Admin       solana.PublicKey `json:"admin"`
	Bot         solana.PublicKey `json:"bot"`
	Initialized bool             `json:"initialized"`
}

// GetTokenBalance returns the recorded balance for mint, 0 if absent.
func GetTokenBalance(v *Vault, mint solana.PublicKey) uint64 {
	for _, b := range v.Balances {
		if b.Mint.Equals(mint) {
			return b.Amount
		}
	}
	return 0
}

// SetTokenBalance updates the entry for mint in place, appending a new entry
// if the mint has never been seen. Callers do overflow/underflow checks
// before calling; this never fails.
func SetTokenBalance(v *Vault, mint solana.PublicKey, amount uint64) {
	for i := range v.Balances {
		if v.Balances[i].Mint.Equals(mint) {
			v.Balances[i].Amount = amount
			return
		}
	}
	v.Balances = append(v.Balances, TokenBalance{Mint: mint, Amount: amount})
}

// Clone returns a deep copy. Operations mutate a copy and persist it only
// after every check and external call has succeeded.
func (v *Vault) Clone() *Vault {
	out := *v
	out.Balances = make([]TokenBalance, len(v.Balances))
	copy(out.Balances, v.Balances)
	return &out
}
