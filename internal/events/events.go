package events

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Event is one immutable audit record emitted by the engine.
type Event interface {
	// Kind returns the event's wire name, used for pub/sub channel routing.
	Kind() string
}

// Event kinds.
const (
	KindBalanceManagerCreated = "balance_manager_created"
	KindUserDeposit           = "user_deposit"
	KindUserWithdraw          = "user_withdraw"
	KindTradeSignal           = "trade_signal"
)

// Timestamps carries the event time in the two resolutions every event
// records: whole seconds and derived microseconds.
type Timestamps struct {
	Timestamp       int64  `json:"timestamp"`
	TimestampMicros uint64 `json:"timestamp_microseconds"`
}

// Now captures the current time in both resolutions.
func Now() Timestamps {
	sec := time.Now().Unix()
	return Timestamps{
		Timestamp:       sec,
		TimestampMicros: uint64(sec) * 1_000_000,
	}
}

type BalanceManagerCreatedEvent struct {
	User  solana.PublicKey `json:"user"`
	Vault solana.PublicKey `json:"vault"`
	Timestamps
}

func (BalanceManagerCreatedEvent) Kind() string { return KindBalanceManagerCreated }

type UserDepositEvent struct {
	User   solana.PublicKey `json:"user"`
	Token  solana.PublicKey `json:"token"`
	Amount uint64           `json:"amount"`
	Timestamps
}

func (UserDepositEvent) Kind() string { return KindUserDeposit }

type UserWithdrawEvent struct {
	User   solana.PublicKey `json:"user"`
	Token  solana.PublicKey `json:"token"`
	Amount uint64           `json:"amount"`
	Timestamps
}

func (UserWithdrawEvent) Kind() string { return KindUserWithdraw }

// TradeSignalEvent is the audit record for one executed trade signal.
type TradeSignalEvent struct {
	User         solana.PublicKey `json:"user"`
	Executor     solana.PublicKey `json:"executor"`
	TokenIn      solana.PublicKey `json:"token_in"`
	TokenOut     solana.PublicKey `json:"token_out"`
	AmountIn     uint64           `json:"amount_in"`
	AmountOutMin uint64           `json:"amount_out_min"`
	AmountOut    uint64           `json:"amount_out"`
	SlippageBps  uint16           `json:"slippage_bps"`
	FeeRecipient solana.PublicKey `json:"fee_recipient"`
	FeeAmount    uint64           `json:"fee_amount"`
	Timestamps
}

func (TradeSignalEvent) Kind() string { return KindTradeSignal }
