package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tracker/internal/account"
	"tracker/internal/config"
	"tracker/internal/exchange"
	"tracker/internal/fetcher"
	"tracker/internal/testutils"
)

type fakeHealth struct{ err error }

func (h *fakeHealth) HealthCheck(ctx context.Context) error { return h.err }

type stubClient struct{ name string }

func (c *stubClient) Name() string { return c.name }

func (c *stubClient) FetchMyTrades(ctx context.Context, symbol string, since int64, limit int, params map[string]interface{}) ([]exchange.RawTrade, error) {
	return nil, nil
}

func (c *stubClient) LoadMarkets(ctx context.Context) error { return nil }
func (c *stubClient) Close() error                          { return nil }

func newTestServer(t *testing.T, db HealthChecker) *Server {
	t.Helper()
	testutils.Quiet(t)

	source := func() ([]account.UserInfo, error) {
		return []account.UserInfo{{
			AccountName:  "main",
			DisplayName:  "alice",
			ExchangeName: "binance",
			APIKey:       "key-1",
		}}, nil
	}
	factory := func(creds exchange.Credentials) (exchange.Client, error) {
		return &stubClient{name: creds.Exchange}, nil
	}
	accounts := account.NewProvider(source, factory, false)
	if err := accounts.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh accounts: %v", err)
	}

	engine := fetcher.New(&config.ExchangeConfig{}, nil, nil, nil)
	return NewServer(":0", engine, accounts, db)
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.http.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthOK(t *testing.T) {
	s := newTestServer(t, &fakeHealth{})

	rec := get(s, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestHealthUnavailable(t *testing.T) {
	s := newTestServer(t, &fakeHealth{err: errors.New("connection refused")})

	rec := get(s, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET /health = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestStatusListsAccounts(t *testing.T) {
	s := newTestServer(t, &fakeHealth{})

	rec := get(s, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Loops    []fetcher.LoopStatus `json:"loops"`
		Accounts []struct {
			Account  string `json:"account"`
			Exchange string `json:"exchange"`
			Valid    bool   `json:"valid"`
		} `json:"accounts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Accounts) != 1 {
		t.Fatalf("accounts = %d entries, want 1", len(body.Accounts))
	}
	a := body.Accounts[0]
	if a.Account != "main" || a.Exchange != "binance" || !a.Valid {
		t.Errorf("account entry = %+v", a)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeHealth{})

	rec := get(s, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.Len() == 0 {
		t.Error("metrics body is empty")
	}
}
