package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/solvault/vault-engine/internal/cache"
	"github.com/solvault/vault-engine/internal/config"
	"github.com/solvault/vault-engine/internal/dex"
	"github.com/solvault/vault-engine/internal/engine"
	"github.com/solvault/vault-engine/internal/vault"
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

func usage() {
	fmt.Println(`usage: vaultctl <command> [flags]

commands:
  init-config  -admin <key> -bot <key>       initialize the global config
  set-bot      -caller <key> -address <key>  rotate the bot key (admin only)
  set-admin    -caller <key> -address <key>  hand over the admin role
  create       -investor <key>               create a balance manager
  deposit      -investor <key> -token <key> -amount <n>
  withdraw     -investor <key> -token <key> -amount <n>
  balance      -investor <key> -token <key>
  vault        -investor <key>               print the full ledger`)
	os.Exit(2)
}

// vaultctl drives ledger operations directly against the Redis store,
// bypassing the HTTP API. Trades stay with vaultd; this tool is for
// operators and local testing.
func main() {
	loadEnv()

	if len(os.Args) < 2 {
		usage()
	}
	command := os.Args[1]

	fs := flag.NewFlagSet(command, flag.ExitOnError)
	adminFlag := fs.String("admin", "", "admin public key (base58)")
	botFlag := fs.String("bot", "", "bot public key (base58)")
	callerFlag := fs.String("caller", "", "caller public key (base58)")
	addressFlag := fs.String("address", "", "new role holder (base58)")
	investorFlag := fs.String("investor", "", "investor public key (base58)")
	tokenFlag := fs.String("token", "", "token mint (base58)")
	amountFlag := fs.Uint64("amount", 0, "raw token amount")
	_ = fs.Parse(os.Args[2:])

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	store := cache.NewRedisVaultStore(cfg.RedisAddr)
	if err := store.Ping(ctx); err != nil {
		fatal(fmt.Errorf("redis: %w", err))
	}
	defer store.Close()

	sink := cache.NewRedisEventSink(cfg.RedisAddr, logger)
	defer sink.Close()

	eng, err := engine.NewEngine(engine.EngineConfig{
		Store:   store,
		Sink:    sink,
		Swapper: dex.NewRouter(nil, logger),
		Logger:  logger,
	})
	if err != nil {
		fatal(err)
	}

	switch command {
	case "init-config":
		admin := mustKey(*adminFlag, "-admin")
		bot := mustKey(*botFlag, "-bot")
		if err := eng.InitializeGlobalConfig(ctx, admin, bot); err != nil {
			fatal(err)
		}
		fmt.Println("global config initialized")

	case "set-bot":
		caller := mustKey(*callerFlag, "-caller")
		address := mustKey(*addressFlag, "-address")
		if err := eng.SetBot(ctx, caller, address); err != nil {
			fatal(err)
		}
		fmt.Println("bot updated")

	case "set-admin":
		caller := mustKey(*callerFlag, "-caller")
		address := mustKey(*addressFlag, "-address")
		if err := eng.SetAdmin(ctx, caller, address); err != nil {
			fatal(err)
		}
		fmt.Println("admin updated")

	case "create":
		investor := mustKey(*investorFlag, "-investor")
		v, err := eng.CreateBalanceManager(ctx, investor)
		if err != nil {
			fatal(err)
		}
		addr, _, _ := vault.DeriveVaultAddress(investor)
		fmt.Printf("vault=%s bump=%d\n", addr.String(), v.Bump)

	case "deposit":
		investor := mustKey(*investorFlag, "-investor")
		token := mustKey(*tokenFlag, "-token")
		if err := eng.Deposit(ctx, investor, investor, token, *amountFlag); err != nil {
			fatal(err)
		}
		fmt.Println("deposited")

	case "withdraw":
		investor := mustKey(*investorFlag, "-investor")
		token := mustKey(*tokenFlag, "-token")
		if err := eng.Withdraw(ctx, investor, investor, token, *amountFlag); err != nil {
			fatal(err)
		}
		fmt.Println("withdrawn")

	case "balance":
		investor := mustKey(*investorFlag, "-investor")
		token := mustKey(*tokenFlag, "-token")
		amount, err := eng.Balance(ctx, investor, token)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("%d\n", amount)

	case "vault":
		investor := mustKey(*investorFlag, "-investor")
		v, err := eng.Vault(ctx, investor)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("investor=%s locked=%v\n", v.Investor.String(), v.Locked)
		for _, b := range v.Balances {
			fmt.Printf("  %s %d\n", b.Mint.String(), b.Amount)
		}

	default:
		usage()
	}
}

func mustKey(s, name string) solana.PublicKey {
	if s == "" {
		fmt.Printf("missing %s\n", name)
		os.Exit(2)
	}
	key, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		fmt.Printf("invalid %s: %v\n", name, err)
		os.Exit(2)
	}
	return key
}

func fatal(err error) {
	fmt.Println("error:", err)
	os.Exit(1)
}
