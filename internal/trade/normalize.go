package trade

import (
	"github.com/sirupsen/logrus"

	"tracker/internal/exchange"
)

// Normalize converts one raw exchange record into a canonical trade.
// Records whose timestamp falls outside the campaign window are rejected;
// the second return value reports whether the trade was kept.
func Normalize(raw exchange.RawTrade, id Identity, w Window) (*Trade, bool) {
	if !w.Contains(raw.Timestamp) {
		return nil, false
	}

	t := &Trade{
		ExchangeName: id.ExchangeName,
		ID:           raw.ID,
		TakerOrMaker: raw.TakerOrMaker,
		CampaignID:   w.CampaignID,

		DisplayName:   id.DisplayName,
		EmailAddress:  id.EmailAddress,
		PayoutAddress: id.PayoutAddress,
		APIKey:        id.APIKey,

		OrderID:   raw.Order,
		Datetime:  raw.Datetime,
		Timestamp: raw.Timestamp,
		Symbol:    raw.Symbol,
		Side:      raw.Side,
		Price:     raw.Price,
		Amount:    raw.Amount,
		Cost:      raw.Cost,
	}

	switch {
	case raw.Fee != nil:
		t.FeeCurrency = raw.Fee.Currency
		t.FeeCost = raw.Fee.Cost
		t.FeeRate = raw.Fee.Rate
	case len(raw.Fees) == 1:
		t.FeeCurrency = raw.Fees[0].Currency
		t.FeeCost = raw.Fees[0].Cost
		t.FeeRate = raw.Fees[0].Rate
	case len(raw.Fees) > 1:
		// Splitting one fill into several canonical rows would break the
		// natural key, so multi-fee trades keep empty fee columns.
		logrus.WithFields(logrus.Fields{
			"exchange": id.ExchangeName,
			"trade_id": raw.ID,
			"fees":     len(raw.Fees),
		}).Warn("trade carries multiple fee entries, leaving fee columns empty")
	}

	return t, true
}

// NormalizeBatch maps a raw page through Normalize, dropping rejected
// records.
func NormalizeBatch(raws []exchange.RawTrade, id Identity, w Window) []*Trade {
	out := make([]*Trade, 0, len(raws))
	for _, raw := range raws {
		if t, ok := Normalize(raw, id, w); ok {
			out = append(out, t)
		}
	}
	return out
}
