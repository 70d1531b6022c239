package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/solvault/vault-engine/internal/ai"
	"github.com/solvault/vault-engine/internal/dex"
	"github.com/solvault/vault-engine/internal/engine"
	"github.com/solvault/vault-engine/internal/flags"
	"github.com/solvault/vault-engine/internal/storage"
	"github.com/solvault/vault-engine/internal/vault"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Engine       *engine.Engine    // Vault operation orchestrator
	Sink         storage.EventSink // Redis-backed event sink (recent signals)
	Flags        *flags.Store      // Redis-backed feature flags store
	AI           *ai.Agent         // AI agent for natural language queries
	AIBaseConfig ai.AgentConfig    // Base configuration for AI agents
	DevMode      bool              // Enable detailed error responses in development
	Logger       *logrus.Logger    // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// engineErr maps engine sentinel errors onto HTTP status codes.
func (h *Handlers) engineErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, engine.ErrOnlyInvestor),
		errors.Is(err, engine.ErrOnlyBotOrAdmin),
		errors.Is(err, engine.ErrOnlyAdmin),
		errors.Is(err, engine.ErrUnauthorized):
		return h.err(c, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, storage.ErrVaultNotFound),
		errors.Is(err, engine.ErrVaultNotInitialized),
		errors.Is(err, engine.ErrGlobalConfigNotInitialized):
		return h.err(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, storage.ErrVaultExists),
		errors.Is(err, engine.ErrGlobalConfigExists),
		errors.Is(err, engine.ErrSameBotAddress),
		errors.Is(err, engine.ErrSameAdminAddress):
		return h.err(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, engine.ErrInsufficientBalance),
		errors.Is(err, vault.ErrReentrantCall):
		return h.err(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrInvalidTokenPair),
		errors.Is(err, engine.ErrInvalidTokenAddress),
		errors.Is(err, engine.ErrInvalidSlippage),
		errors.Is(err, engine.ErrInvalidBotAddress),
		errors.Is(err, engine.ErrInvalidAdminAddress),
		errors.Is(err, dex.ErrInvalidPoolType),
		errors.Is(err, dex.ErrInsufficientAccounts):
		return h.err(c, http.StatusBadRequest, err.Error(), nil)
	default:
		h.Logger.WithError(err).Error("request failed")
		return h.err(c, http.StatusInternalServerError, "internal error", map[string]any{"err": err.Error()})
	}
}

func parseKey(s string) (solana.PublicKey, error) {
	return solana.PublicKeyFromBase58(strings.TrimSpace(s))
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// CreateVault initializes a balance manager for an investor
func (h *Handlers) CreateVault(c echo.Context) error {
	var req CreateVaultRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	investor, err := parseKey(req.Investor)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid investor", map[string]any{"investor": "must be base58"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	v, err := h.Engine.CreateBalanceManager(ctx, investor)
	if err != nil {
		return h.engineErr(c, err)
	}

	addr, _, err := vault.DeriveVaultAddress(investor)
	if err != nil {
		return h.engineErr(c, err)
	}
	return c.JSON(http.StatusCreated, CreateVaultResponse{
		Investor: investor.String(),
		Vault:    addr.String(),
		Bump:     v.Bump,
	})
}

// Vault returns the full ledger for an investor
func (h *Handlers) Vault(c echo.Context) error {
	investor, err := parseKey(c.Param("investor"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid investor", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Engine.Vault(ctx, investor)
	if err != nil {
		return h.engineErr(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// Balance returns one ledger entry for an investor
func (h *Handlers) Balance(c echo.Context) error {
	investor, err := parseKey(c.Param("investor"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid investor", nil)
	}
	token, err := parseKey(c.Param("token"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid token", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	amount, err := h.Engine.Balance(ctx, investor, token)
	if err != nil {
		return h.engineErr(c, err)
	}
	return c.JSON(http.StatusOK, BalanceResponse{
		Investor: investor.String(),
		Token:    token.String(),
		Amount:   amount,
	})
}

// Deposit credits tokens to an investor's ledger
func (h *Handlers) Deposit(c echo.Context) error {
	return h.transfer(c, h.Engine.Deposit)
}

// Withdraw debits tokens from an investor's ledger
func (h *Handlers) Withdraw(c echo.Context) error {
	return h.transfer(c, h.Engine.Withdraw)
}

func (h *Handlers) transfer(c echo.Context, op func(context.Context, solana.PublicKey, solana.PublicKey, solana.PublicKey, uint64) error) error {
	investor, err := parseKey(c.Param("investor"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid investor", nil)
	}

	var req TransferRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	caller, err := parseKey(req.Caller)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid caller", nil)
	}
	token, err := parseKey(req.Token)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid token", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	if err := op(ctx, caller, investor, token, req.Amount); err != nil {
		return h.engineErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// WrapSOL moves native SOL ledger balance into wrapped SOL
func (h *Handlers) WrapSOL(c echo.Context) error {
	investor, err := parseKey(c.Param("investor"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid investor", nil)
	}
	var req WrapRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	caller, err := parseKey(req.Caller)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid caller", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	if err := h.Engine.WrapSOL(ctx, caller, investor, req.Amount); err != nil {
		return h.engineErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UnwrapSOL returns the whole wrapped SOL balance to native SOL
func (h *Handlers) UnwrapSOL(c echo.Context) error {
	investor, err := parseKey(c.Param("investor"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid investor", nil)
	}
	var req UnwrapRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	caller, err := parseKey(req.Caller)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid caller", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	if err := h.Engine.UnwrapSOL(ctx, caller, investor); err != nil {
		return h.engineErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// TradeSignal executes a trade signal through the full pipeline and returns
// the emitted event
func (h *Handlers) TradeSignal(c echo.Context) error {
	var req TradeSignalRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	signal, err := buildSignal(req)
	if err != nil {
		return h.err(c, http.StatusBadRequest, err.Error(), nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 90*time.Second)
	defer cancel()

	if h.tradingPaused(ctx) {
		return h.err(c, http.StatusServiceUnavailable, "trading is paused", nil)
	}

	event, err := h.Engine.ExecuteTradeSignal(ctx, signal)
	if err != nil {
		return h.engineErr(c, err)
	}
	return c.JSON(http.StatusOK, event)
}

func buildSignal(req TradeSignalRequest) (engine.TradeSignal, error) {
	var signal engine.TradeSignal
	var err error

	if signal.Investor, err = parseKey(req.Investor); err != nil {
		return signal, errors.New("invalid investor")
	}
	if signal.Executor, err = parseKey(req.Executor); err != nil {
		return signal, errors.New("invalid executor")
	}
	if signal.TokenIn, err = parseKey(req.TokenIn); err != nil {
		return signal, errors.New("invalid token_in")
	}
	if signal.TokenOut, err = parseKey(req.TokenOut); err != nil {
		return signal, errors.New("invalid token_out")
	}
	signal.AmountIn = req.AmountIn
	signal.SlippageBps = req.SlippageBps
	signal.PoolType = dex.PoolType(req.PoolType)

	signal.Accounts = make([]dex.VenueAccount, len(req.Accounts))
	for i, a := range req.Accounts {
		pk, err := parseKey(a.Pubkey)
		if err != nil {
			return signal, errors.New("invalid account pubkey at index " + strconv.Itoa(i))
		}
		signal.Accounts[i] = dex.VenueAccount{
			Pubkey:     pk,
			IsSigner:   a.IsSigner,
			IsWritable: a.IsWritable,
		}
	}
	return signal, nil
}

// RecentSignals returns the most recent trade signals with optional limit parameter
// Accepts limit query parameter (default: 50, range: 1-100)
func (h *Handlers) RecentSignals(c echo.Context) error {
	limitStr := c.QueryParam("limit")
	limit := 50
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 100 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 100"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Sink.RecentTradeSignals(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get signals", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// tradingPaused reports whether the trading kill switch flag is set.
// A missing flag or an unreachable flag store never blocks trading.
func (h *Handlers) tradingPaused(ctx context.Context) bool {
	if h.Flags == nil {
		return false
	}
	on, err := h.Flags.Enabled(ctx, flags.TradingPaused)
	if err != nil {
		h.Logger.WithError(err).Warn("Failed to read trading pause flag")
		return false
	}
	return on
}

// FlagsUpsert creates or updates a feature flag with the given key and value
// Validates key format and returns the created/updated flag
func (h *Handlers) FlagsUpsert(c echo.Context) error {
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, req.Key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsUpdate updates an existing feature flag with the given key
// Validates key format and returns the updated flag
func (h *Handlers) FlagsUpdate(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}
	var req FlagUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsGet retrieves a feature flag by its key
// Returns 404 if flag doesn't exist
func (h *Handlers) FlagsGet(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "flag not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsList returns all feature flags in the system
func (h *Handlers) FlagsList(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsDelete removes a feature flag by its key
// Returns 204 No Content on successful deletion
func (h *Handlers) FlagsDelete(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetBot rotates the trading bot key. Admin only.
func (h *Handlers) SetBot(c echo.Context) error {
	return h.setRole(c, h.Engine.SetBot)
}

// SetAdmin hands over the admin role. Admin only.
func (h *Handlers) SetAdmin(c echo.Context) error {
	return h.setRole(c, h.Engine.SetAdmin)
}

func (h *Handlers) setRole(c echo.Context, op func(context.Context, solana.PublicKey, solana.PublicKey) error) error {
	var req SetRoleRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	caller, err := parseKey(req.Caller)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid caller", nil)
	}
	address, err := parseKey(req.Address)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid address", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := op(ctx, caller, address); err != nil {
		return h.engineErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AIAsk processes natural language questions about trade data using AI
// Supports optional model override for one-off requests
// Returns SQL query and answer with execution time
func (h *Handlers) AIAsk(c echo.Context) error {
	if h.AI == nil {
		return h.err(c, http.StatusBadRequest, "ai is not configured", nil)
	}

	var req AIAskRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return h.err(c, http.StatusBadRequest, "question is required", map[string]any{"question": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	start := time.Now()

	// Use default AI agent or create temporary one with custom model
	agent := h.AI
	var tmp *ai.Agent
	if m := strings.TrimSpace(req.Model); m != "" {
		cfg := h.AIBaseConfig
		cfg.Model = m
		a, err := ai.NewAgent(ctx, cfg)
		if err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to create ai agent", nil)
		}
		tmp = a
		agent = a
		defer func() {
			_ = tmp.Close() // Clean up temporary agent
		}()
	}

	res, err := agent.Ask(ctx, req.Question)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "ai ask failed", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, AIAskResponse{SQL: res.SQL, Answer: res.Answer, TookMs: time.Since(start).Milliseconds()})
}
