// Package fetcher runs the ingestion engine: one polling loop per
// (account, campaign) pair, each driving a pagination strategy through
// the account's exchange client and committing normalized batches to
// storage. Loops share nothing but the storage sink.
package fetcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tracker/internal/account"
	"tracker/internal/bounty"
	"tracker/internal/config"
	"tracker/internal/errs"
	"tracker/internal/exchange"
	"tracker/internal/exchange/pagination"
	"tracker/internal/monitor"
	"tracker/internal/trade"
)

// Store is the commit surface the engine writes through.
type Store interface {
	CommitBatch(ctx context.Context, trades []*trade.Trade) error
}

// pair is one (account, campaign) fetch loop assignment.
type pair struct {
	acct *account.Account
	b    bounty.Bounty
}

// Engine fans fetch loops out over all account/campaign pairs.
type Engine struct {
	cfg      *config.ExchangeConfig
	store    Store
	accounts []*account.Account
	pairs    []pair

	status *statusBoard

	// sleep is swapped out by tests; backoff pauses run minutes long.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds an engine over a startup snapshot of accounts and active
// campaigns. Accounts are paired with the campaigns of their own
// exchange; the lists are not re-read while the engine runs.
func New(cfg *config.ExchangeConfig, store Store, accounts []*account.Account, bounties []bounty.Bounty) *Engine {
	e := &Engine{
		cfg:      cfg,
		store:    store,
		accounts: accounts,
		status:   newStatusBoard(),
		sleep:    sleepCtx,
	}
	for _, acct := range accounts {
		for _, b := range bounties {
			if b.ExchangeName != acct.User.ExchangeName {
				continue
			}
			e.pairs = append(e.pairs, pair{acct: acct, b: b})
		}
	}
	return e
}

// Pairs returns the number of fetch loops the engine will run.
func (e *Engine) Pairs() int {
	return len(e.pairs)
}

// Status returns a snapshot of every loop's current state.
func (e *Engine) Status() []LoopStatus {
	return e.status.snapshot()
}

// Start spawns one loop per pair and blocks until all loops terminate.
// Loops only end on cancellation or on a fatal (unclassified) error; the
// first fatal error cancels every other loop, all distinct exchange
// connections are closed exactly once, and the error is returned.
func (e *Engine) Start(ctx context.Context) error {
	if len(e.pairs) == 0 {
		logrus.Warn("no account/campaign pairs to fetch")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		fatalErr error
	)
	for _, p := range e.pairs {
		wg.Add(1)
		go func(p pair) {
			defer wg.Done()
			monitor.ActiveLoops.Inc()
			defer monitor.ActiveLoops.Dec()

			err := e.loop(ctx, p)
			e.status.set(p, StateClosed, err)
			if err != nil && !errors.Is(err, context.Canceled) {
				once.Do(func() {
					fatalErr = err
					cancel()
				})
			}
		}(p)
	}
	wg.Wait()

	e.closeAll()
	return fatalErr
}

// loop is the per-pair state machine: fetching, committing, sleeping,
// repeated until cancellation or a fatal error.
func (e *Engine) loop(ctx context.Context, p pair) error {
	log := logrus.WithFields(logrus.Fields{
		"account":  p.acct.User.DisplayName,
		"exchange": p.acct.User.ExchangeName,
		"campaign": p.b.CampaignID,
		"market":   p.b.Market,
	})
	log.Info("fetch loop started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cycle := log.WithField("cycle_id", uuid.NewString()[:8])
		started := time.Now()

		e.status.set(p, StateFetching, nil)
		err := e.runCycle(ctx, p, cycle)
		if err == nil {
			monitor.CycleDuration.WithLabelValues(p.acct.User.ExchangeName).
				Observe(time.Since(started).Seconds())
			e.status.set(p, StateSleeping, nil)
			if err := e.sleep(ctx, e.cfg.PollInterval); err != nil {
				return err
			}
			continue
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		class := errs.ClassOf(err)
		policy := errs.Policy(class)
		if policy.Terminate {
			cycle.WithError(err).Error("unexpected error encountered, closing fetcher")
			return err
		}

		monitor.Backoffs.WithLabelValues(string(class)).Inc()
		cycle.WithError(err).WithFields(logrus.Fields{
			"class": class,
			"sleep": policy.Sleep,
		}).Warn("recoverable error, backing off")
		e.status.set(p, StateSleeping, err)
		if err := e.sleep(ctx, policy.Sleep); err != nil {
			return err
		}
	}
}

// runCycle performs one fetch-normalize-commit pass over the pair's full
// campaign window. The pagination cursor lives only inside this call, so
// a cycle that resumes after backoff re-walks the window from the start
// boundary; the merge commit makes the re-fetch harmless.
func (e *Engine) runCycle(ctx context.Context, p pair, log *logrus.Entry) error {
	raws, err := e.fetchWindow(ctx, p)
	if err != nil {
		return err
	}
	if len(raws) == 0 {
		return nil
	}
	monitor.TradesFetched.WithLabelValues(p.acct.User.ExchangeName, p.acct.User.DisplayName).
		Add(float64(len(raws)))

	e.status.set(p, StateCommitting, nil)
	batch := trade.NormalizeBatch(raws, p.acct.Identity(), p.b.Window())
	log.WithFields(logrus.Fields{
		"fetched": len(raws),
		"kept":    len(batch),
	}).Info("normalized trade batch")

	if err := e.store.CommitBatch(ctx, batch); err != nil {
		return err
	}
	monitor.TradesCommitted.WithLabelValues(p.acct.User.ExchangeName, p.acct.User.DisplayName).
		Add(float64(len(batch)))
	return nil
}

// fetchWindow runs the exchange's configured pagination strategy over the
// campaign window.
func (e *Engine) fetchWindow(ctx context.Context, p pair) ([]exchange.RawTrade, error) {
	strategy := pagination.ForMethod(e.cfg.PaginationMethod(p.acct.User.ExchangeName))
	req := pagination.Request{
		Symbol:    p.b.Market,
		StartTime: p.b.StartTimestamp,
		EndTime:   p.b.EndTimestamp,
		Limit:     e.cfg.PageLimit(p.acct.User.ExchangeName),
		Account:   p.acct.User.DisplayName,
	}
	return strategy(ctx, p.acct.Client.FetchMyTrades, req)
}

// closeAll closes each distinct account's exchange connection exactly
// once. Accounts recur across campaign loops, so dedupe on the client.
func (e *Engine) closeAll() {
	seen := make(map[exchange.Client]bool, len(e.accounts))
	for _, acct := range e.accounts {
		if seen[acct.Client] {
			continue
		}
		seen[acct.Client] = true
		logrus.WithField("exchange", acct.User.ExchangeName).Debug("closing exchange connection")
		if err := acct.Client.Close(); err != nil {
			logrus.WithField("account", acct.User.AccountName).
				WithError(err).Warn("closing exchange connection failed")
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
