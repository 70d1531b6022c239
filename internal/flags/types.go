package flags

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("flag not found")

// TradingPaused halts trade-signal execution while set. Ledger operations
// (deposit, withdraw, wrap, unwrap) are unaffected.
const TradingPaused = "trading.paused"

type Flag struct {
	Key       string    `json:"key"`
	Value     bool      `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
