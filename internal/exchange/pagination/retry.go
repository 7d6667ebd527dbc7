package pagination

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"tracker/internal/errs"
	"tracker/internal/exchange"
)

// Page fetch retry budget. Every failure is retried to the budget and the
// original cause surfaces on exhaustion so the fetch loop can apply its
// class backoff. Variables so tests can shorten the pauses.
var (
	RetryAttempts = 3
	RetryWait     = time.Minute
)

// fetchWithRetry wraps one page fetch with the bounded retry shared by all
// strategies.
func fetchWithRetry(ctx context.Context, fetch FetchFunc, symbol string, since int64, limit int, params map[string]interface{}) ([]exchange.RawTrade, error) {
	var lastErr error
	for attempt := 1; attempt <= RetryAttempts; attempt++ {
		page, err := fetch(ctx, symbol, since, limit, params)
		if err == nil {
			return page, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		lastErr = err

		class := errs.ClassOf(err)
		logrus.WithFields(logrus.Fields{
			"symbol":  symbol,
			"attempt": attempt,
			"class":   class,
		}).WithError(err).Warn("page fetch failed")

		if attempt == RetryAttempts {
			break
		}
		if err := sleep(ctx, RetryWait); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// sleep blocks for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
