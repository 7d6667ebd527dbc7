package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"tracker/internal/trade"
)

// Execer is the narrow database surface the trade store needs. *DB
// satisfies it; tests substitute fakes.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// The composite primary key is the canonical trade's natural key:
// exchange + id + maker flag identify the fill, campaign and account
// columns keep attribution unambiguous. Re-committing a row with the same
// key overwrites it, which is what makes the at-least-once fetch loops
// safe.
const createTradesTable = `
CREATE TABLE IF NOT EXISTS trades (
	exchange_name  TEXT             NOT NULL,
	id             TEXT             NOT NULL,
	taker_or_maker TEXT             NOT NULL,
	campaign_id    BIGINT           NOT NULL,
	display_name   TEXT             NOT NULL,
	email_address  TEXT             NOT NULL,
	payout_address TEXT             NOT NULL,
	api_key        TEXT             NOT NULL,
	order_id       TEXT,
	datetime       TEXT,
	timestamp      BIGINT           NOT NULL,
	symbol         TEXT             NOT NULL,
	side           TEXT,
	price          DOUBLE PRECISION,
	amount         DOUBLE PRECISION,
	cost           DOUBLE PRECISION,
	fee_currency   TEXT,
	fee_cost       DOUBLE PRECISION,
	fee_rate       DOUBLE PRECISION,
	PRIMARY KEY (exchange_name, id, taker_or_maker, campaign_id,
	             display_name, email_address, payout_address, api_key)
)`

const upsertTrade = `
INSERT INTO trades (
	exchange_name, id, taker_or_maker, campaign_id,
	display_name, email_address, payout_address, api_key,
	order_id, datetime, timestamp, symbol, side,
	price, amount, cost, fee_currency, fee_cost, fee_rate
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
ON CONFLICT (exchange_name, id, taker_or_maker, campaign_id,
             display_name, email_address, payout_address, api_key)
DO UPDATE SET
	order_id     = EXCLUDED.order_id,
	datetime     = EXCLUDED.datetime,
	timestamp    = EXCLUDED.timestamp,
	symbol       = EXCLUDED.symbol,
	side         = EXCLUDED.side,
	price        = EXCLUDED.price,
	amount       = EXCLUDED.amount,
	cost         = EXCLUDED.cost,
	fee_currency = EXCLUDED.fee_currency,
	fee_cost     = EXCLUDED.fee_cost,
	fee_rate     = EXCLUDED.fee_rate`

// TradeStore persists canonical trades with merge semantics.
type TradeStore struct {
	db Execer
}

// NewTradeStore builds a store over db.
func NewTradeStore(db Execer) *TradeStore {
	return &TradeStore{db: db}
}

// EnsureSchema creates the trades table when absent.
func (s *TradeStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTradesTable); err != nil {
		return fmt.Errorf("create trades table: %w", err)
	}
	return nil
}

// CommitBatch upserts a batch of canonical trades in one transaction.
// An empty batch is a no-op. Rows sharing a natural key within the batch
// resolve last-write-wins, same as across batches.
func (s *TradeStore) CommitBatch(ctx context.Context, trades []*trade.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, upsertTrade)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare trade upsert: %w", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		if _, err := stmt.ExecContext(ctx,
			t.ExchangeName, t.ID, t.TakerOrMaker, t.CampaignID,
			t.DisplayName, t.EmailAddress, t.PayoutAddress, t.APIKey,
			t.OrderID, t.Datetime, t.Timestamp, t.Symbol, t.Side,
			t.Price, t.Amount, t.Cost, t.FeeCurrency, t.FeeCost, t.FeeRate,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert trade %s/%s: %w", t.ExchangeName, t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit trade batch: %w", err)
	}

	logrus.WithField("count", len(trades)).Debug("committed trade batch")
	return nil
}

// Query runs an arbitrary read query. Used by downstream reporting, not
// by the fetch engine.
func (s *TradeStore) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// LatestTimestamps returns the newest committed trade timestamp per
// display name, the aggregation downstream reporting keys on.
func (s *TradeStore) LatestTimestamps(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT display_name, MAX(timestamp) FROM trades GROUP BY display_name`)
	if err != nil {
		return nil, fmt.Errorf("query latest timestamps: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var name string
		var ts int64
		if err := rows.Scan(&name, &ts); err != nil {
			return nil, fmt.Errorf("scan latest timestamp: %w", err)
		}
		out[name] = ts
	}
	return out, rows.Err()
}
