package server

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK bool `json:"ok"` // Service health status
}

// CreateVaultRequest asks for a new balance manager
type CreateVaultRequest struct {
	Investor string `json:"investor"` // Investor public key (base58)
}

// CreateVaultResponse reports the derived vault address
type CreateVaultResponse struct {
	Investor string `json:"investor"`
	Vault    string `json:"vault"` // Derived vault address (base58)
	Bump     uint8  `json:"bump"`
}

// TransferRequest covers deposits and withdrawals
type TransferRequest struct {
	Caller string `json:"caller"` // Authenticated caller public key (base58)
	Token  string `json:"token"`  // Token mint (base58)
	Amount uint64 `json:"amount"` // Raw token amount
}

// WrapRequest converts native SOL ledger balance to wrapped SOL
type WrapRequest struct {
	Caller string `json:"caller"`
	Amount uint64 `json:"amount"` // Lamports to wrap
}

// UnwrapRequest converts the whole wrapped SOL balance back to native
type UnwrapRequest struct {
	Caller string `json:"caller"`
}

// BalanceResponse reports one ledger entry
type BalanceResponse struct {
	Investor string `json:"investor"`
	Token    string `json:"token"`
	Amount   uint64 `json:"amount"`
}

// TradeSignalRequest submits one trade for execution
type TradeSignalRequest struct {
	Investor    string              `json:"investor"`
	Executor    string              `json:"executor"`
	TokenIn     string              `json:"token_in"`
	TokenOut    string              `json:"token_out"`
	AmountIn    uint64              `json:"amount_in"`
	SlippageBps uint16              `json:"slippage_bps"`
	PoolType    uint8               `json:"pool_type"` // 0 = Raydium AMM V4, 1 = Raydium CLMM
	Accounts    []VenueAccountParam `json:"accounts"`
}

// VenueAccountParam is one venue account reference on the wire
type VenueAccountParam struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"is_signer"`
	IsWritable bool   `json:"is_writable"`
}

// SetRoleRequest rotates the bot or admin key
type SetRoleRequest struct {
	Caller  string `json:"caller"`  // Current admin public key (base58)
	Address string `json:"address"` // New role holder (base58)
}

// FlagUpsertRequest represents a request to create or update a feature flag
type FlagUpsertRequest struct {
	Key   string `json:"key"`   // Flag key (must match regex pattern)
	Value bool   `json:"value"` // Flag value (true/false)
}

// FlagUpdateRequest represents a request to update an existing feature flag
type FlagUpdateRequest struct {
	Value bool `json:"value"` // New flag value
}

// AIAskRequest represents a natural language query request
type AIAskRequest struct {
	Question string `json:"question"` // Natural language question about trade data
	Model    string `json:"model"`    // Optional AI model override
}

// AIAskResponse represents the response from an AI query
type AIAskResponse struct {
	SQL    string `json:"sql"`     // Generated SQL query
	Answer string `json:"answer"`  // Natural language answer
	TookMs int64  `json:"took_ms"` // Execution time in milliseconds
}
