package exchange

import "time"

// Fee represents one fee entry attached to a raw trade.
type Fee struct {
	Currency string
	Cost     float64
	Rate     float64
}

// RawTrade is the exchange-native trade record as returned by the unified
// client, before normalization. It exists only in memory between fetch and
// normalization.
type RawTrade struct {
	ID           string
	Order        string
	Datetime     string
	Timestamp    int64 // epoch milliseconds
	Symbol       string
	Side         string
	TakerOrMaker string
	Price        float64
	Amount       float64
	Cost         float64
	Fee          *Fee
	// Fees is set when the exchange reports multiple fee entries for a
	// single fill. The normalizer refuses to decompose these.
	Fees []Fee
	// Info carries exchange-specific extension fields. Pagination
	// bookkeeping only; never persisted.
	Info map[string]interface{}
}

// Time returns the trade timestamp as a UTC time.
func (t *RawTrade) Time() time.Time {
	return time.UnixMilli(t.Timestamp).UTC()
}

// Credentials holds one account's API credential set for client
// construction.
type Credentials struct {
	Exchange   string
	APIKey     string
	APISecret  string
	Passphrase string
	// AccountType selects the market type, e.g. "spot" (default) or
	// "linear".
	AccountType string
	TestNet     bool
}
