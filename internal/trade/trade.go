// Package trade defines the canonical trade entity and the normalizer
// that produces it from raw exchange records.
package trade

// Trade is the normalized, storage-ready trade record.
//
// The natural key is (ExchangeName, ID, TakerOrMaker, CampaignID,
// DisplayName, EmailAddress, PayoutAddress, APIKey): exchange + id +
// maker flag identify a fill for duplicate/wash-trading detection, while
// the campaign and account columns keep attribution unambiguous when
// different users report the same trade id.
type Trade struct {
	ExchangeName string
	ID           string
	TakerOrMaker string
	CampaignID   int64

	DisplayName   string
	EmailAddress  string
	PayoutAddress string
	APIKey        string

	OrderID   string
	Datetime  string
	Timestamp int64
	Symbol    string
	Side      string
	Price     float64
	Amount    float64
	Cost      float64

	FeeCurrency string
	FeeCost     float64
	FeeRate     float64
}

// Identity carries the account fields stamped onto every canonical trade.
type Identity struct {
	ExchangeName  string
	DisplayName   string
	EmailAddress  string
	PayoutAddress string
	APIKey        string
}

// Window carries the campaign fields the normalizer needs: the id stamped
// onto each trade and the [Start, End] bounds (epoch ms, inclusive) that
// decide whether a trade belongs to the campaign at all.
type Window struct {
	CampaignID int64
	Start      int64
	End        int64
}

// Contains reports whether ts falls inside the window.
func (w Window) Contains(ts int64) bool {
	return ts >= w.Start && ts <= w.End
}
