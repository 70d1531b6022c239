package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/solvault/vault-engine/internal/cache"
	"github.com/solvault/vault-engine/internal/config"
	"github.com/solvault/vault-engine/internal/events"
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

// The subscriber tails the engine's event stream and archives trade signals
// into ClickHouse. Running it separately keeps the trade path independent of
// the analytics store.
func main() {
	loadEnv()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down subscriber")
		cancel()
	}()

	sink := cache.NewRedisEventSink(cfg.RedisAddr, logger)
	defer sink.Close()

	store, err := cache.NewClickHouseStore(cfg.ClickHouseAddr, cfg.ClickHouseDatabase, cfg.ClickHouseUsername, cfg.ClickHousePassword, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to ClickHouse")
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("failed to ensure trade_signals schema")
	}

	// Log every event; archive the trade signals.
	go func() {
		err := sink.SubscribeAll(ctx, func(event events.Event) {
			logger.WithField("kind", event.Kind()).Debug("event received")
		})
		if err != nil && ctx.Err() == nil {
			logger.WithError(err).Error("event subscription ended")
		}
	}()

	logger.Info("subscriber running")

	err = sink.SubscribeTradeSignals(ctx, func(sig *events.TradeSignalEvent) {
		if err := store.InsertTradeSignal(ctx, sig); err != nil {
			logger.WithError(err).Error("failed to archive trade signal")
			return
		}
		logger.WithFields(logrus.Fields{
			"user":       sig.User.String(),
			"amount_in":  sig.AmountIn,
			"amount_out": sig.AmountOut,
			"fee":        sig.FeeAmount,
		}).Info("trade signal archived")
	})
	if err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("trade signal subscription failed")
	}
}
