package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/banbox/banexg"
	"github.com/banbox/banexg/bex"
	bexerrs "github.com/banbox/banexg/errs"

	"tracker/internal/errs"
)

// banexgClient adapts banexg.BanExchange to the Client interface.
type banexgClient struct {
	name string
	exg  banexg.BanExchange

	closeOnce sync.Once
	closeErr  error
}

// NewClient builds a banexg-backed client for one credential set.
func NewClient(creds Credentials) (Client, error) {
	options := map[string]interface{}{
		banexg.OptApiKey:    creds.APIKey,
		banexg.OptApiSecret: creds.APISecret,
	}
	if creds.Passphrase != "" {
		// okx-style exchanges require the API passphrase as well.
		options["password"] = creds.Passphrase
	}
	switch creds.AccountType {
	case "", "spot":
		options[banexg.OptMarketType] = banexg.MarketSpot
	default:
		options[banexg.OptMarketType] = banexg.MarketLinear
	}
	if creds.TestNet {
		options[banexg.OptEnv] = "test"
	}

	exg, err := bex.New(creds.Exchange, options)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", creds.Exchange, err)
	}

	return &banexgClient{name: creds.Exchange, exg: exg}, nil
}

func (c *banexgClient) Name() string {
	return c.name
}

func (c *banexgClient) FetchMyTrades(ctx context.Context, symbol string, since int64, limit int, params map[string]interface{}) ([]RawTrade, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trades, err := c.exg.FetchMyTrades(symbol, since, limit, params)
	if err != nil {
		return nil, classify("fetch_my_trades", err)
	}

	out := make([]RawTrade, 0, len(trades))
	for _, t := range trades {
		out = append(out, fromMyTrade(t))
	}
	return out, nil
}

func (c *banexgClient) LoadMarkets(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.exg.LoadMarkets(false, nil); err != nil {
		return classify("load_markets", err)
	}
	return nil
}

func (c *banexgClient) Close() error {
	c.closeOnce.Do(func() {
		if err := c.exg.Close(); err != nil {
			c.closeErr = classify("close", err)
		}
	})
	return c.closeErr
}

// fromMyTrade converts a banexg trade into the engine's raw shape.
func fromMyTrade(t *banexg.MyTrade) RawTrade {
	raw := RawTrade{
		ID:           t.ID,
		Order:        t.Order,
		Datetime:     time.UnixMilli(t.Timestamp).UTC().Format(time.RFC3339Nano),
		Timestamp:    t.Timestamp,
		Symbol:       t.Symbol,
		Side:         t.Side,
		TakerOrMaker: "taker",
		Price:        t.Price,
		Amount:       t.Amount,
		Cost:         t.Cost,
		Info:         t.Info,
	}
	if t.Maker {
		raw.TakerOrMaker = "maker"
	}
	if t.Fee != nil {
		raw.Fee = &Fee{
			Currency: t.Fee.Currency,
			Cost:     t.Fee.Cost,
			Rate:     t.Fee.Rate,
		}
	}
	return raw
}

// classify maps a banexg error into the engine's closed taxonomy.
// Context cancellation passes through untagged so callers can detect
// shutdown with errors.Is.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var be *bexerrs.Error
	if errors.As(err, &be) && be.Code == bexerrs.CodeNetFail {
		return errs.New(errs.ClassNetwork, op, err)
	}

	// banexg surfaces most exchange-side failures as opaque messages;
	// classify on the message the same way the exchanges phrase them.
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "rate limit", "too many requests", "request weight", "429", "418"):
		return errs.New(errs.ClassRateLimit, op, err)
	case containsAny(msg, "maintenance", "system upgrade", "temporarily unavailable", "exchange not available"):
		return errs.New(errs.ClassMaintenance, op, err)
	case containsAny(msg, "api-key", "api key", "signature", "unauthorized", "permission", "invalid key", "authentication"):
		return errs.New(errs.ClassAuth, op, err)
	case containsAny(msg, "nonce", "recvwindow", "timestamp for this request", "timeout", "timed out"):
		return errs.New(errs.ClassTransient, op, err)
	case containsAny(msg, "connection", "network", "eof", "reset by peer", "no such host", "broken pipe"):
		return errs.New(errs.ClassNetwork, op, err)
	default:
		return errs.New(errs.ClassUnknown, op, err)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
