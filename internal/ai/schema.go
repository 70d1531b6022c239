package ai

// tradeSignalsSchemaDescription describes the ClickHouse schema used for NL→SQL prompting.
//
// Keeping it in sync with the actual table definition in cache.TradeSignalsSchema.
const tradeSignalsSchemaDescription = `
Database: vault
Table: trade_signals

Columns:
  - user                   String  -- Investor public key (base58)
  - executor               String  -- Bot or admin that executed the trade (base58)
  - token_in               String  -- Mint of the token sold (base58)
  - token_out              String  -- Mint of the token bought (base58)
  - amount_in              UInt64  -- Raw amount of token_in debited from the vault
  - amount_out_min         UInt64  -- Minimum acceptable output enforced on the venue
  - amount_out             UInt64  -- Realized output observed on-chain
  - slippage_bps           UInt16  -- Caller's slippage tolerance in basis points
  - fee_recipient          String  -- Where the protocol fee went (base58)
  - fee_amount             UInt64  -- Protocol fee taken from amount_out
  - timestamp              Int64   -- Unix seconds at execution
  - timestamp_microseconds UInt64  -- Same instant in microseconds

Notes:
  - Amounts are raw token units; decimals depend on the mint.
  - The user's credited amount is amount_out - fee_amount.
  - Time filters should use timestamp, e.g. timestamp >= toUnixTimestamp(now() - INTERVAL 24 HOUR).
`
