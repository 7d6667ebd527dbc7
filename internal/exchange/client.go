// Package exchange wraps the unified exchange library behind the narrow
// client surface the fetch engine needs. All errors leaving this package
// are tagged with an errs.Class.
package exchange

import "context"

// Client is a per-account exchange handle. Implementations must be safe
// for use from a single fetch loop; distinct accounts get distinct
// clients.
type Client interface {
	// Name returns the exchange identifier, e.g. "binance".
	Name() string

	// FetchMyTrades returns the account's trades for symbol starting at
	// the since cursor (epoch milliseconds), at most limit records.
	// params carries strategy-specific cursor arguments such as
	// "endTime" or "after".
	FetchMyTrades(ctx context.Context, symbol string, since int64, limit int, params map[string]interface{}) ([]RawTrade, error)

	// LoadMarkets loads the exchange market table. Used as the
	// authentication probe during account validation.
	LoadMarkets(ctx context.Context) error

	// Close releases the underlying connections. Closing an already
	// closed client must not return an error.
	Close() error
}
