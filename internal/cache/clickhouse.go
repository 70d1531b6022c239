package cache

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/solvault/vault-engine/internal/events"
)

// TradeSignalsSchema creates the audit table. Applied by the subscriber on
// startup; idempotent.
const TradeSignalsSchema = `
CREATE TABLE IF NOT EXISTS trade_signals (
	user                   String,
	executor               String,
	token_in               String,
	token_out              String,
	amount_in              UInt64,
	amount_out_min         UInt64,
	amount_out             UInt64,
	slippage_bps           UInt16,
	fee_recipient          String,
	fee_amount             UInt64,
	timestamp              Int64,
	timestamp_microseconds UInt64
) ENGINE = MergeTree()
ORDER BY (user, timestamp)
`

// ClickHouseStore is the durable trade-signal audit log.
type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

func NewClickHouseStore(addr, database, username, password string, logger *logrus.Logger) (*ClickHouseStore, error) {
	if logger == nil {
		logger = logrus.New()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	logger.WithField("addr", addr).Info("connected to ClickHouse")

	return &ClickHouseStore{conn: conn, logger: logger}, nil
}

// EnsureSchema creates the trade_signals table if it does not exist.
func (c *ClickHouseStore) EnsureSchema(ctx context.Context) error {
	if err := c.conn.Exec(ctx, TradeSignalsSchema); err != nil {
		return fmt.Errorf("failed to create trade_signals table: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) InsertTradeSignal(ctx context.Context, event *events.TradeSignalEvent) error {
	query := `
		INSERT INTO trade_signals (
			user, executor, token_in, token_out,
			amount_in, amount_out_min, amount_out, slippage_bps,
			fee_recipient, fee_amount, timestamp, timestamp_microseconds
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		event.User.String(),
		event.Executor.String(),
		event.TokenIn.String(),
		event.TokenOut.String(),
		event.AmountIn,
		event.AmountOutMin,
		event.AmountOut,
		event.SlippageBps,
		event.FeeRecipient.String(),
		event.FeeAmount,
		event.Timestamp,
		event.TimestampMicros,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade signal: %w", err)
	}

	return nil
}

// RecentTradeSignals returns the newest signals, optionally filtered to one
// user. The zero key means no filter.
func (c *ClickHouseStore) RecentTradeSignals(ctx context.Context, user solana.PublicKey, limit int64) ([]*events.TradeSignalEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT user, executor, token_in, token_out,
		       amount_in, amount_out_min, amount_out, slippage_bps,
		       fee_recipient, fee_amount, timestamp, timestamp_microseconds
		FROM trade_signals
	`
	args := []any{}
	if !user.IsZero() {
		query += " WHERE user = ?"
		args = append(args, user.String())
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := c.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade signals: %w", err)
	}
	defer rows.Close()

	var out []*events.TradeSignalEvent
	for rows.Next() {
		var (
			e                                            events.TradeSignalEvent
			userStr, executor, tokenIn, tokenOut, feeRec string
		)
		if err := rows.Scan(
			&userStr, &executor, &tokenIn, &tokenOut,
			&e.AmountIn, &e.AmountOutMin, &e.AmountOut, &e.SlippageBps,
			&feeRec, &e.FeeAmount, &e.Timestamp, &e.TimestampMicros,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trade signal: %w", err)
		}

		e.User, err = solana.PublicKeyFromBase58(userStr)
		if err != nil {
			c.logger.WithError(err).Warn("skipping row with malformed user key")
			continue
		}
		e.Executor, _ = solana.PublicKeyFromBase58(executor)
		e.TokenIn, _ = solana.PublicKeyFromBase58(tokenIn)
		e.TokenOut, _ = solana.PublicKeyFromBase58(tokenOut)
		e.FeeRecipient, _ = solana.PublicKeyFromBase58(feeRec)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
