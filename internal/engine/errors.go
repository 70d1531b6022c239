package engine

import "errors"

var (
	// Authorization
	ErrOnlyInvestor   = errors.New("only the vault investor may perform this operation")
	ErrOnlyBotOrAdmin = errors.New("only the configured bot or admin may execute trades")
	ErrOnlyAdmin      = errors.New("only the configured admin may perform this operation")
	ErrUnauthorized   = errors.New("unauthorized")

	// Input validation
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidTokenPair    = errors.New("input and output tokens must differ")
	ErrInvalidTokenAddress = errors.New("invalid token address")
	ErrInvalidSlippage     = errors.New("slippage exceeds allowed maximum")
	ErrInvalidBotAddress   = errors.New("invalid bot address")
	ErrInvalidAdminAddress = errors.New("invalid admin address")
	ErrSameBotAddress      = errors.New("new bot address matches current bot")
	ErrSameAdminAddress    = errors.New("new admin address matches current admin")

	// State
	ErrVaultNotInitialized        = errors.New("vault not initialized")
	ErrGlobalConfigNotInitialized = errors.New("global config not initialized")
	ErrGlobalConfigExists         = errors.New("global config already initialized")

	// Ledger
	ErrInsufficientBalance      = errors.New("insufficient vault balance")
	ErrInsufficientOutputAmount = errors.New("swap output below minimum acceptable amount")
	ErrMathOverflow             = errors.New("arithmetic overflow")
)
