package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/solvault/vault-engine/internal/ai"
	"github.com/solvault/vault-engine/internal/config"
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

// advisor answers questions about vault trade activity from the command
// line: one-shot with -q, interactive otherwise.
func main() {
	loadEnv()

	queryFlag := flag.String("q", "", "run a single question and exit")
	modelFlag := flag.String("model", "", "OpenRouter model name (overrides AI_MODEL)")
	verboseFlag := flag.Bool("v", false, "debug logging, prints generated SQL as it runs")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	if *verboseFlag {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if cfg.OpenRouterAPIKey == "" {
		logger.Fatal("OPENROUTER_API_KEY is required for the advisor")
	}

	model := cfg.Model
	if *modelFlag != "" {
		model = *modelFlag
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	agent, err := ai.NewAgent(ctx, ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              model,
		Logger:             logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create AI agent")
	}
	defer agent.Close()

	if *queryFlag != "" {
		if !ask(ctx, agent, *queryFlag) {
			os.Exit(1)
		}
		return
	}

	repl(ctx, agent)
}

// ask runs one question and prints the SQL and answer. Returns false on
// failure so one-shot mode can exit nonzero.
func ask(ctx context.Context, agent *ai.Agent, question string) bool {
	res, err := agent.Ask(ctx, question)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return false
	}
	fmt.Printf("\nSQL:\n%s\n\nAnswer:\n%s\n\n", res.SQL, res.Answer)
	return true
}

func repl(ctx context.Context, agent *ai.Agent) {
	fmt.Println("vault trade advisor; empty line or Ctrl+C to exit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		if ctx.Err() != nil {
			return
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			return
		}

		ask(ctx, agent, question)
	}
}
