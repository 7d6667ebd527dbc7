// Package pagination implements the cursor-advance algorithms used to walk
// an account's trade history over a campaign window. Three strategies exist
// because exchanges disagree on how trade history is paged: forward by
// trade timestamp, backward by a shrinking end-time boundary, or backward
// by an opaque record id. All strategies accumulate pages in cursor order
// and pause one second between successful page fetches on top of whatever
// rate limiting the exchange client already applies.
package pagination

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"tracker/internal/exchange"
	"tracker/internal/monitor"
)

// Strategy names as they appear in configuration.
const (
	MethodTimestamp  = "date_time"
	MethodEndTime    = "end_time"
	MethodEarliestID = "earliest_id"
)

// sentinelNoMore is the opaque cursor some exchanges return when there are
// no earlier records.
const sentinelNoMore = "-1"

// PageInterval is the self-imposed pause between successive page fetches
// within one pagination run. A variable so tests can shorten it.
var PageInterval = time.Second

// FetchFunc is the page fetch verb a strategy drives. since is an epoch
// millisecond cursor; params carries strategy-specific cursor arguments.
type FetchFunc func(ctx context.Context, symbol string, since int64, limit int, params map[string]interface{}) ([]exchange.RawTrade, error)

// Request describes one complete pagination run.
type Request struct {
	Symbol    string
	StartTime int64 // campaign window start, epoch ms
	EndTime   int64 // campaign window end, epoch ms
	Limit     int
	// Account is the owning account's display name, for log context only.
	Account string
}

// Strategy walks the full [StartTime, EndTime] range by repeatedly calling
// fetch and advancing a cursor.
type Strategy func(ctx context.Context, fetch FetchFunc, req Request) ([]exchange.RawTrade, error)

// ForMethod returns the strategy registered under name, defaulting to the
// by-timestamp strategy for unknown or empty names.
func ForMethod(name string) Strategy {
	switch name {
	case MethodEndTime:
		return ByEndTime
	case MethodEarliestID:
		return ByEarliestID
	default:
		return ByTimestamp
	}
}

// ByTimestamp pages forward: the cursor is the timestamp of the last
// record of each page. Terminates when the cursor crosses the end boundary
// or the exchange returns no further records.
func ByTimestamp(ctx context.Context, fetch FetchFunc, req Request) ([]exchange.RawTrade, error) {
	throttle := newThrottle()
	cursor := req.StartTime

	var all []exchange.RawTrade
	for cursor < req.EndTime {
		if err := throttle.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := fetchWithRetry(ctx, fetch, req.Symbol, cursor, req.Limit, nil)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		logPage(req, len(page))
		cursor = page[len(page)-1].Timestamp
		all = append(all, page...)
	}
	return all, nil
}

// ByEndTime pages backward behind a shrinking endTime boundary.
// Terminates on an empty page, when the boundary reaches the start
// boundary, or when a page makes no progress (its earliest timestamp
// equals the current boundary).
func ByEndTime(ctx context.Context, fetch FetchFunc, req Request) ([]exchange.RawTrade, error) {
	throttle := newThrottle()
	endTime := req.EndTime

	var all []exchange.RawTrade
	for endTime > req.StartTime {
		if err := throttle.Wait(ctx); err != nil {
			return nil, err
		}
		params := map[string]interface{}{"endTime": endTime}
		page, err := fetchWithRetry(ctx, fetch, req.Symbol, req.StartTime, req.Limit, params)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		logPage(req, len(page))
		if endTime == page[0].Timestamp {
			// The exchange keeps returning the same earliest record;
			// without this guard the boundary would never move.
			break
		}
		endTime = page[0].Timestamp
		all = append(all, page...)
	}
	return all, nil
}

// ByEarliestID pages backward with an opaque "after" cursor taken from the
// page's order references. The cursor is deliberately the SECOND record of
// the page: the first record may share an order id with the previous
// page's boundary, and the merge commit downstream absorbs the duplicates
// this produces. Terminates on an empty page, on the exchange's no-more
// sentinel, or when the page's earliest timestamp falls at or under the
// start boundary.
func ByEarliestID(ctx context.Context, fetch FetchFunc, req Request) ([]exchange.RawTrade, error) {
	throttle := newThrottle()
	endTime := req.EndTime
	after := ""

	var all []exchange.RawTrade
	for endTime > req.StartTime {
		if err := throttle.Wait(ctx); err != nil {
			return nil, err
		}
		params := map[string]interface{}{}
		if after != "" {
			params["after"] = after
		}
		page, err := fetchWithRetry(ctx, fetch, req.Symbol, req.StartTime, req.Limit, params)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		logPage(req, len(page))
		all = append(all, page...)
		after = page[0].Order
		if len(page) > 1 {
			after = page[1].Order
		}
		endTime = page[0].Timestamp
		if after == sentinelNoMore {
			break
		}
	}
	return all, nil
}

func newThrottle() *rate.Limiter {
	// Burst of one makes the first wait free; subsequent pages are spaced
	// PageInterval apart.
	return rate.NewLimiter(rate.Every(PageInterval), 1)
}

func logPage(req Request, n int) {
	monitor.PagesFetched.WithLabelValues(req.Account, req.Symbol).Inc()
	logrus.WithFields(logrus.Fields{
		"account": req.Account,
		"market":  req.Symbol,
		"count":   n,
	}).Info("fetched trade page")
}
