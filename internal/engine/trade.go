package engine

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/solvault/vault-engine/internal/dex"
	"github.com/solvault/vault-engine/internal/events"
	"github.com/solvault/vault-engine/internal/vault"
)

// TradeSignal is one instruction from the bot to trade on an investor's
// behalf. The venue account list is opaque to the engine and handed to the
// adapter as-is.
type TradeSignal struct {
	Investor    solana.PublicKey   `json:"investor"`
	Executor    solana.PublicKey   `json:"executor"`
	TokenIn     solana.PublicKey   `json:"token_in"`
	TokenOut    solana.PublicKey   `json:"token_out"`
	AmountIn    uint64             `json:"amount_in"`
	SlippageBps uint16             `json:"slippage_bps"`
	PoolType    dex.PoolType       `json:"pool_type"`
	Accounts    []dex.VenueAccount `json:"accounts"`
}

// ExecuteTradeSignal runs the full trade pipeline: validate, lock, debit,
// swap, verify, split the fee, credit, then unlock and emit. The ledger is
// only persisted after the swap verifies; any failure leaves the stored
// vault untouched and the lock released.
func (e *Engine) ExecuteTradeSignal(ctx context.Context, signal TradeSignal) (*events.TradeSignalEvent, error) {
	// Authorization comes before anything that reads the ledger.
	cfg, err := e.loadGlobalConfig(ctx)
	if err != nil {
		return nil, err
	}
	if !signal.Executor.Equals(cfg.Bot) && !signal.Executor.Equals(cfg.Admin) {
		return nil, ErrOnlyBotOrAdmin
	}

	if signal.AmountIn == 0 {
		return nil, ErrInvalidAmount
	}
	if signal.TokenIn.IsZero() || signal.TokenOut.IsZero() {
		return nil, ErrInvalidTokenAddress
	}
	if signal.TokenIn.Equals(signal.TokenOut) {
		return nil, ErrInvalidTokenPair
	}

	amountOutMin, err := MinOutputAmount(signal.AmountIn, signal.SlippageBps)
	if err != nil {
		return nil, err
	}

	v, err := e.loadInitializedVault(ctx, signal.Investor)
	if err != nil {
		return nil, err
	}

	release, err := e.acquireLock(v)
	if err != nil {
		return nil, err
	}
	defer release()

	auth, err := e.authority(v)
	if err != nil {
		return nil, err
	}

	// All mutations happen on a copy; the stored vault only changes at the
	// single persist below.
	next := v.Clone()
	debited, err := checkedSub(vault.GetTokenBalance(next, signal.TokenIn), signal.AmountIn)
	if err != nil {
		return nil, err
	}
	vault.SetTokenBalance(next, signal.TokenIn, debited)

	e.logger.WithFields(logrus.Fields{
		"investor":       signal.Investor.String(),
		"pool_type":      signal.PoolType.String(),
		"amount_in":      signal.AmountIn,
		"amount_out_min": amountOutMin,
		"slippage_bps":   signal.SlippageBps,
	}).Info("executing trade signal")

	result, err := e.swapper.ExecuteSwap(ctx, signal.PoolType, signal.AmountIn, amountOutMin, signal.Accounts, auth)
	if err != nil {
		return nil, err
	}

	if result.AmountOut < amountOutMin {
		return nil, ErrInsufficientOutputAmount
	}

	fee, userAmount := ComputeFee(result.AmountOut)

	credited, err := checkedAdd(vault.GetTokenBalance(next, signal.TokenOut), userAmount)
	if err != nil {
		return nil, err
	}
	vault.SetTokenBalance(next, signal.TokenOut, credited)

	if err := e.store.PersistVault(ctx, next); err != nil {
		return nil, err
	}

	event := &events.TradeSignalEvent{
		User:         signal.Investor,
		Executor:     signal.Executor,
		TokenIn:      signal.TokenIn,
		TokenOut:     signal.TokenOut,
		AmountIn:     signal.AmountIn,
		AmountOutMin: amountOutMin,
		AmountOut:    result.AmountOut,
		SlippageBps:  signal.SlippageBps,
		FeeRecipient: cfg.Admin,
		FeeAmount:    fee,
		Timestamps:   events.Now(),
	}

	e.emit(ctx, *event)
	if e.eventStore != nil {
		if err := e.eventStore.InsertTradeSignal(ctx, event); err != nil {
			e.logger.WithError(err).Warn("failed to persist trade signal")
		}
	}

	e.logger.WithFields(logrus.Fields{
		"investor":   signal.Investor.String(),
		"amount_out": result.AmountOut,
		"fee":        fee,
	}).Info("trade signal executed")

	return event, nil
}
