package account

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"tracker/internal/errs"
	"tracker/internal/exchange"
)

// Factory builds an exchange client for one credential set. Split out so
// tests can substitute fakes for the banexg-backed constructor.
type Factory func(exchange.Credentials) (exchange.Client, error)

// markDuplicateKeys invalidates every user after the first that reuses an
// API key. Duplicate keys would double-attribute the same trades.
func markDuplicateKeys(users []UserInfo) {
	seen := make(map[string]string, len(users))
	for i := range users {
		u := &users[i]
		if u.APIKey == "" {
			continue
		}
		if first, dup := seen[u.APIKey]; dup {
			u.Valid = false
			u.Reason = ReasonDuplicateAPIKey
			logrus.WithFields(logrus.Fields{
				"account":  u.AccountName,
				"first":    first,
				"exchange": u.ExchangeName,
			}).Warn("duplicate api key, disabling account")
			continue
		}
		seen[u.APIKey] = u.AccountName
	}
}

// buildAccounts constructs a client per user that was not already marked
// invalid. Users whose exchange the client library does not know are
// disabled with a reason code.
func buildAccounts(users []UserInfo, factory Factory, testNet bool) []*Account {
	accounts := make([]*Account, 0, len(users))
	for i := range users {
		u := &users[i]
		if u.Reason != "" {
			continue
		}
		client, err := factory(u.Credentials(testNet))
		if err != nil {
			u.Valid = false
			u.Reason = ReasonUnknownExchange
			logrus.WithField("account", u.AccountName).WithError(err).Warn("skipping account")
			continue
		}
		accounts = append(accounts, &Account{User: *u, Client: client})
	}
	return accounts
}

// validateAccounts probes each account concurrently with a market load.
// An authentication rejection disables the account and closes its client;
// any other failure is logged but leaves the account usable, since
// disabling a payout account over a transient outage would be worse than
// one wasted fetch cycle.
func validateAccounts(ctx context.Context, accounts []*Account) []*Account {
	var wg sync.WaitGroup
	for _, acct := range accounts {
		wg.Add(1)
		go func(acct *Account) {
			defer wg.Done()
			err := acct.Client.LoadMarkets(ctx)
			switch {
			case err == nil:
				acct.User.Valid = true
			case errs.Is(err, errs.ClassAuth):
				acct.User.Valid = false
				acct.User.Reason = ReasonAuthFailed
				if cerr := acct.Client.Close(); cerr != nil {
					logrus.WithError(cerr).Debug("closing rejected account client")
				}
				logrus.WithFields(logrus.Fields{
					"account":  acct.User.AccountName,
					"exchange": acct.User.ExchangeName,
				}).WithError(err).Warn("account not able to be authenticated, skipping user")
			default:
				acct.User.Valid = true
				logrus.WithFields(logrus.Fields{
					"account": acct.User.AccountName,
					"class":   errs.ClassOf(err),
				}).WithError(err).Warn("validation probe failed, keeping account")
			}
		}(acct)
	}
	wg.Wait()

	valid := accounts[:0]
	for _, acct := range accounts {
		if acct.User.Valid {
			valid = append(valid, acct)
		}
	}
	return valid
}
