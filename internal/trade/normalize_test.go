package trade

import (
	"testing"

	"tracker/internal/exchange"
	"tracker/internal/testutils"
)

var testIdentity = Identity{
	ExchangeName:  "binance",
	DisplayName:   "alice",
	EmailAddress:  "alice@example.com",
	PayoutAddress: "0xabc",
	APIKey:        "key-1",
}

func TestNormalizeWindowFiltering(t *testing.T) {
	testutils.Quiet(t)
	w := Window{CampaignID: 7, Start: 1000, End: 5000}

	raws := []exchange.RawTrade{
		{ID: "a", Timestamp: 900, Symbol: "X/USDT"},
		{ID: "b", Timestamp: 1200, Symbol: "X/USDT"},
		{ID: "c", Timestamp: 4800, Symbol: "X/USDT"},
		{ID: "d", Timestamp: 5200, Symbol: "X/USDT"},
	}

	got := NormalizeBatch(raws, testIdentity, w)
	if len(got) != 2 {
		t.Fatalf("kept %d trades, want 2", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "c" {
		t.Errorf("kept ids [%s %s], want [b c]", got[0].ID, got[1].ID)
	}
}

func TestNormalizeWindowBoundsInclusive(t *testing.T) {
	w := Window{CampaignID: 7, Start: 1000, End: 5000}

	for _, ts := range []int64{1000, 5000} {
		if _, ok := Normalize(exchange.RawTrade{ID: "x", Timestamp: ts}, testIdentity, w); !ok {
			t.Errorf("trade at boundary %d rejected, want kept", ts)
		}
	}
}

func TestNormalizeStampsIdentityAndCampaign(t *testing.T) {
	w := Window{CampaignID: 42, Start: 0, End: 10_000}
	raw := exchange.RawTrade{
		ID:           "t1",
		Order:        "o1",
		Timestamp:    5000,
		Symbol:       "BTC/USDT",
		Side:         "buy",
		TakerOrMaker: "maker",
		Price:        100.5,
		Amount:       2,
		Cost:         201,
	}

	got, ok := Normalize(raw, testIdentity, w)
	if !ok {
		t.Fatal("trade rejected, want kept")
	}
	if got.CampaignID != 42 {
		t.Errorf("campaign = %d, want 42", got.CampaignID)
	}
	if got.DisplayName != "alice" || got.APIKey != "key-1" || got.ExchangeName != "binance" {
		t.Errorf("identity not stamped: %+v", got)
	}
	if got.TakerOrMaker != "maker" || got.Side != "buy" || got.Cost != 201 {
		t.Errorf("trade fields not carried: %+v", got)
	}
}

func TestNormalizeFeeDecomposition(t *testing.T) {
	testutils.Quiet(t)
	w := Window{CampaignID: 1, Start: 0, End: 10_000}

	tests := []struct {
		name         string
		raw          exchange.RawTrade
		wantCurrency string
		wantCost     float64
		wantRate     float64
	}{
		{
			name: "nested fee object",
			raw: exchange.RawTrade{
				ID: "t1", Timestamp: 1,
				Fee: &exchange.Fee{Currency: "USDT", Cost: 0.25, Rate: 0.001},
			},
			wantCurrency: "USDT", wantCost: 0.25, wantRate: 0.001,
		},
		{
			name: "single entry fee list",
			raw: exchange.RawTrade{
				ID: "t2", Timestamp: 1,
				Fees: []exchange.Fee{{Currency: "BNB", Cost: 0.01, Rate: 0.00075}},
			},
			wantCurrency: "BNB", wantCost: 0.01, wantRate: 0.00075,
		},
		{
			name: "ambiguous multi entry list stays empty",
			raw: exchange.RawTrade{
				ID: "t3", Timestamp: 1,
				Fees: []exchange.Fee{{Currency: "USDT", Cost: 0.1}, {Currency: "BNB", Cost: 0.2}},
			},
		},
		{
			name: "no fee at all",
			raw:  exchange.RawTrade{ID: "t4", Timestamp: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw, testIdentity, w)
			if !ok {
				t.Fatal("trade rejected, want kept")
			}
			if got.FeeCurrency != tt.wantCurrency || got.FeeCost != tt.wantCost || got.FeeRate != tt.wantRate {
				t.Errorf("fee = (%s, %v, %v), want (%s, %v, %v)",
					got.FeeCurrency, got.FeeCost, got.FeeRate,
					tt.wantCurrency, tt.wantCost, tt.wantRate)
			}
		})
	}
}
