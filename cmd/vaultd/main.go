package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/solvault/vault-engine/internal/ai"
	"github.com/solvault/vault-engine/internal/cache"
	"github.com/solvault/vault-engine/internal/config"
	"github.com/solvault/vault-engine/internal/dex"
	"github.com/solvault/vault-engine/internal/engine"
	"github.com/solvault/vault-engine/internal/flags"
	"github.com/solvault/vault-engine/internal/server"
	"github.com/solvault/vault-engine/internal/wallet"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main is the entry point for the vault daemon
// It wires the ledger store, venue router, and wallet, then serves the HTTP API
func main() {
	// Initialize structured logger with custom formatting
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	// Load and validate configuration from environment variables
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown (Ctrl+C, SIGTERM)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Vault and global-config state lives in Redis
	store := cache.NewRedisVaultStore(cfg.RedisAddr)
	if err := store.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}
	defer store.Close()

	// Feature flags share the vault store's Redis connection
	flagStore, err := flags.NewStore(store.Client())
	if err != nil {
		logger.WithError(err).Fatal("failed to create flags store")
	}

	// Event fan-out over Redis Pub/Sub
	sink := cache.NewRedisEventSink(cfg.RedisAddr, logger)
	defer sink.Close()

	// Durable trade-signal audit log (optional)
	var eventStore *cache.ClickHouseStore
	if cfg.ClickHouseAddr != "" {
		ch, err := cache.NewClickHouseStore(cfg.ClickHouseAddr, cfg.ClickHouseDatabase, cfg.ClickHouseUsername, cfg.ClickHousePassword, logger)
		if err != nil {
			logger.WithError(err).Warn("ClickHouse unavailable, trade signals will not be archived")
		} else {
			eventStore = ch
			defer eventStore.Close()
			if err := eventStore.EnsureSchema(ctx); err != nil {
				logger.WithError(err).Warn("failed to ensure trade_signals schema")
			}
		}
	}

	// Operator wallet signs venue transactions and token transfers.
	// Without a key the engine runs ledger-only: useful for dry runs.
	var (
		invoker     dex.Invoker
		transferrer engine.Transferrer
	)
	if cfg.WalletPrivateKey != "" {
		w, err := wallet.NewWallet(wallet.WalletConfig{
			RPCURL:            cfg.RPCUrl,
			Timeout:           cfg.HTTPTimeout,
			MaxRetries:        cfg.MaxRetries,
			RetryBackoff:      cfg.RetryBackoff,
			RequestsPerSecond: cfg.RPCRateLimit,
			PrivateKey:        cfg.WalletPrivateKey,
			DefaultCommitment: cfg.Commitment,
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to initialize wallet")
		}
		logger.WithField("address", w.Address()).Info("operator wallet loaded")
		invoker = wallet.NewInvoker(w, logger)
		transferrer = wallet.NewTransferrer(w)
	} else {
		logger.Warn("WALLET_PRIVATE_KEY not set, running ledger-only")
		invoker = unavailableInvoker{}
	}

	engineCfg := engine.EngineConfig{
		Store:       store,
		Sink:        sink,
		Swapper:     dex.NewRouter(invoker, logger),
		Transferrer: transferrer,
		Logger:      logger,
	}
	if eventStore != nil {
		engineCfg.EventStore = eventStore
	}

	eng, err := engine.NewEngine(engineCfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to create engine")
	}

	// Initialize AI agent for natural language queries (optional)
	var agent *ai.Agent
	aiBase := ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              cfg.Model,
		Logger:             logger,
	}
	if cfg.OpenRouterAPIKey != "" {
		a, err := ai.NewAgent(ctx, aiBase)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize ai agent")
		} else {
			agent = a
			defer func() {
				_ = agent.Close()
			}()
		}
	}

	// Create handlers with all dependencies injected
	h := &server.Handlers{
		Engine:       eng,
		Sink:         sink,
		Flags:        flagStore,
		AI:           agent,
		AIBaseConfig: aiBase,
		DevMode:      cfg.DevMode,
		Logger:       logger,
	}

	// Create HTTP server with configuration and handlers
	srv, err := server.NewServer(h, server.ServerConfig{
		Addr:         cfg.ListenAddr,
		DevMode:      cfg.DevMode,
		APIKey:       cfg.APIKey,
		TradeRateRPS: cfg.TradeRateRPS,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	// Setup graceful shutdown in a separate goroutine
	go func() {
		<-sigCh // Wait for shutdown signal
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	// Start the HTTP server
	logger.WithField("addr", cfg.ListenAddr).Info("vault daemon starting")
	if err := srv.Start(); err != nil {
		// "http: Server closed" is expected during graceful shutdown
		if err.Error() == "http: Server closed" {
			return
		}
		logger.WithError(err).Fatal("vault daemon failed")
	}

	// Wait for server to be fully shut down
	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}
}
