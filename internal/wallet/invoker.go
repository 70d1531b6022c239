package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/solvault/vault-engine/internal/vault"
)

// Invoker submits venue instructions on-chain and reports the realized
// output. The venue's own return value is never read; the output is the
// observed balance delta on the vault's output token account, measured
// before and after the confirmed transaction.
type Invoker struct {
	wallet  *Wallet
	logger  *logrus.Logger
	confirm time.Duration
}

func NewInvoker(w *Wallet, logger *logrus.Logger) *Invoker {
	if logger == nil {
		logger = logrus.New()
	}
	return &Invoker{
		wallet:  w,
		logger:  logger,
		confirm: 60 * time.Second,
	}
}

func (i *Invoker) Invoke(
	ctx context.Context,
	ix solana.Instruction,
	signer vault.Authority,
	outputAccount solana.PublicKey,
) (uint64, error) {
	before, err := i.wallet.rpc.GetTokenAccountBalance(ctx, outputAccount.String(), i.wallet.cfg.DefaultCommitment)
	if err != nil {
		return 0, fmt.Errorf("read output balance before swap: %w", err)
	}

	sig, err := i.wallet.SignAndSend(ctx, []solana.Instruction{ix})
	if err != nil {
		return 0, fmt.Errorf("send swap transaction: %w", err)
	}

	i.logger.WithFields(logrus.Fields{
		"signature": sig,
		"authority": signer.Address.String(),
	}).Info("swap transaction sent")

	if err := i.wallet.ConfirmTransaction(ctx, sig, i.wallet.cfg.DefaultCommitment, i.confirm); err != nil {
		return 0, fmt.Errorf("confirm swap transaction %s: %w", sig, err)
	}

	after, err := i.wallet.rpc.GetTokenAccountBalance(ctx, outputAccount.String(), i.wallet.cfg.DefaultCommitment)
	if err != nil {
		return 0, fmt.Errorf("read output balance after swap: %w", err)
	}

	if after < before {
		return 0, fmt.Errorf("output account balance decreased across swap: %d -> %d", before, after)
	}
	return after - before, nil
}
