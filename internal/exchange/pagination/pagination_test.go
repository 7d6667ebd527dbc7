package pagination

import (
	"context"
	"errors"
	"testing"
	"time"

	"tracker/internal/errs"
	"tracker/internal/exchange"
	"tracker/internal/testutils"
)

func fastPagination(t *testing.T) {
	t.Helper()
	testutils.Quiet(t)
	prevEvery, prevWait := PageInterval, RetryWait
	PageInterval = time.Millisecond
	RetryWait = time.Millisecond
	t.Cleanup(func() {
		PageInterval = prevEvery
		RetryWait = prevWait
	})
}

func mkTrade(ts int64, id, order string) exchange.RawTrade {
	return exchange.RawTrade{ID: id, Order: order, Timestamp: ts, Symbol: "BTC/USDT"}
}

// scriptedFetch returns one scripted page per call and records the cursor
// arguments it saw.
type scriptedFetch struct {
	pages  [][]exchange.RawTrade
	calls  int
	sinces []int64
	params []map[string]interface{}
}

func (s *scriptedFetch) fetch(ctx context.Context, symbol string, since int64, limit int, params map[string]interface{}) ([]exchange.RawTrade, error) {
	s.calls++
	s.sinces = append(s.sinces, since)
	s.params = append(s.params, params)
	if len(s.pages) == 0 {
		return nil, nil
	}
	page := s.pages[0]
	s.pages = s.pages[1:]
	return page, nil
}

func TestByTimestampAdvancesAndTerminates(t *testing.T) {
	fastPagination(t)
	f := &scriptedFetch{pages: [][]exchange.RawTrade{
		{mkTrade(1500, "t1", "o1"), mkTrade(2000, "t2", "o2")},
		{mkTrade(4000, "t3", "o3"), mkTrade(6000, "t4", "o4")},
	}}

	got, err := ByTimestamp(context.Background(), f.fetch, Request{
		Symbol: "BTC/USDT", StartTime: 1000, EndTime: 5000, Limit: 100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d trades, want 4", len(got))
	}
	// Cursor advances to the last record of each page; a cursor past the
	// end boundary stops the walk without another fetch.
	if f.calls != 2 {
		t.Errorf("fetch called %d times, want 2", f.calls)
	}
	if f.sinces[0] != 1000 || f.sinces[1] != 2000 {
		t.Errorf("cursor sequence = %v, want [1000 2000]", f.sinces)
	}
}

func TestByTimestampStopsOnEmptyPage(t *testing.T) {
	fastPagination(t)
	f := &scriptedFetch{}

	got, err := ByTimestamp(context.Background(), f.fetch, Request{
		StartTime: 1000, EndTime: 5000, Limit: 100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d trades, want 0", len(got))
	}
	if f.calls != 1 {
		t.Errorf("fetch called %d times, want 1", f.calls)
	}
}

func TestByEndTimeShrinksBoundary(t *testing.T) {
	fastPagination(t)
	f := &scriptedFetch{pages: [][]exchange.RawTrade{
		{mkTrade(3000, "t1", "o1"), mkTrade(4500, "t2", "o2")},
		{mkTrade(2000, "t3", "o3")},
	}}

	got, err := ByEndTime(context.Background(), f.fetch, Request{
		StartTime: 1000, EndTime: 5000, Limit: 100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d trades, want 3", len(got))
	}
	if f.params[0]["endTime"] != int64(5000) {
		t.Errorf("first endTime = %v, want 5000", f.params[0]["endTime"])
	}
	if f.params[1]["endTime"] != int64(3000) {
		t.Errorf("second endTime = %v, want 3000", f.params[1]["endTime"])
	}
}

func TestByEndTimeStopsWithoutProgress(t *testing.T) {
	fastPagination(t)
	// The page's earliest timestamp equals the current boundary; without
	// the guard this would regress forever.
	f := &scriptedFetch{pages: [][]exchange.RawTrade{
		{mkTrade(5000, "t1", "o1")},
		{mkTrade(5000, "t1", "o1")},
	}}

	got, err := ByEndTime(context.Background(), f.fetch, Request{
		StartTime: 1000, EndTime: 5000, Limit: 100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.calls != 1 {
		t.Errorf("fetch called %d times, want 1", f.calls)
	}
	if len(got) != 0 {
		t.Errorf("got %d trades, want 0 on a no-progress page", len(got))
	}
}

func TestByEarliestIDSkipOneCursor(t *testing.T) {
	fastPagination(t)
	f := &scriptedFetch{pages: [][]exchange.RawTrade{
		{mkTrade(4000, "t1", "o1"), mkTrade(4100, "t2", "o2")},
	}}

	got, err := ByEarliestID(context.Background(), f.fetch, Request{
		StartTime: 1000, EndTime: 5000, Limit: 100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d trades, want 2", len(got))
	}
	if f.params[0] != nil && f.params[0]["after"] != nil {
		t.Error("first call must not carry an after cursor")
	}
	// The second record's order reference becomes the cursor, never the
	// first: the first may repeat the previous page's boundary id.
	if f.params[1]["after"] != "o2" {
		t.Errorf("after cursor = %v, want o2", f.params[1]["after"])
	}
}

func TestByEarliestIDSingleRecordPage(t *testing.T) {
	fastPagination(t)
	f := &scriptedFetch{pages: [][]exchange.RawTrade{
		{mkTrade(4000, "t1", "o1")},
	}}

	if _, err := ByEarliestID(context.Background(), f.fetch, Request{
		StartTime: 1000, EndTime: 5000, Limit: 100,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.params[1]["after"] != "o1" {
		t.Errorf("after cursor = %v, want o1", f.params[1]["after"])
	}
}

func TestByEarliestIDStopsOnSentinel(t *testing.T) {
	fastPagination(t)
	f := &scriptedFetch{pages: [][]exchange.RawTrade{
		{mkTrade(4000, "t1", "-1")},
	}}

	got, err := ByEarliestID(context.Background(), f.fetch, Request{
		StartTime: 1000, EndTime: 5000, Limit: 100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.calls != 1 {
		t.Errorf("fetch called %d times, want 1 after no-more sentinel", f.calls)
	}
	if len(got) != 1 {
		t.Errorf("got %d trades, want 1", len(got))
	}
}

func TestByEarliestIDStopsPastStartBoundary(t *testing.T) {
	fastPagination(t)
	f := &scriptedFetch{pages: [][]exchange.RawTrade{
		{mkTrade(900, "t1", "o1"), mkTrade(950, "t2", "o2")},
	}}

	if _, err := ByEarliestID(context.Background(), f.fetch, Request{
		StartTime: 1000, EndTime: 5000, Limit: 100,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.calls != 1 {
		t.Errorf("fetch called %d times, want 1 once the window start is crossed", f.calls)
	}
}

func TestFetchWithRetryRecoversFromNetworkErrors(t *testing.T) {
	fastPagination(t)
	calls := 0
	fetch := func(ctx context.Context, symbol string, since int64, limit int, params map[string]interface{}) ([]exchange.RawTrade, error) {
		calls++
		if calls < 3 {
			return nil, errs.New(errs.ClassNetwork, "fetch", errors.New("connection reset"))
		}
		return []exchange.RawTrade{mkTrade(2000, "t1", "o1")}, nil
	}

	got, err := fetchWithRetry(context.Background(), fetch, "BTC/USDT", 1000, 100, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || calls != 3 {
		t.Errorf("got %d trades after %d calls, want 1 after 3", len(got), calls)
	}
}

func TestFetchWithRetryExhaustsBudget(t *testing.T) {
	fastPagination(t)
	cause := errs.New(errs.ClassRateLimit, "fetch", errors.New("too many requests"))
	calls := 0
	fetch := func(ctx context.Context, symbol string, since int64, limit int, params map[string]interface{}) ([]exchange.RawTrade, error) {
		calls++
		return nil, cause
	}

	_, err := fetchWithRetry(context.Background(), fetch, "BTC/USDT", 1000, 100, nil)
	if err == nil {
		t.Fatal("expected error after retry exhaustion")
	}
	if calls != RetryAttempts {
		t.Errorf("fetch called %d times, want %d", calls, RetryAttempts)
	}
	// The original cause must surface so the loop can pick its backoff.
	if errs.ClassOf(err) != errs.ClassRateLimit {
		t.Errorf("class = %s, want rate_limit", errs.ClassOf(err))
	}
}

func TestFetchWithRetryStopsOnCancellation(t *testing.T) {
	fastPagination(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetch := func(ctx context.Context, symbol string, since int64, limit int, params map[string]interface{}) ([]exchange.RawTrade, error) {
		return nil, ctx.Err()
	}

	_, err := fetchWithRetry(ctx, fetch, "BTC/USDT", 1000, 100, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
