package account

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Source loads the raw user records. The production source is a YAML
// file standing in for the externally managed credential sheet.
type Source func() ([]UserInfo, error)

// FileSource reads user records from a YAML file.
func FileSource(path string) Source {
	return func() ([]UserInfo, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read accounts file: %w", err)
		}
		var doc struct {
			Accounts []UserInfo `yaml:"accounts"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse accounts file: %w", err)
		}
		return doc.Accounts, nil
	}
}

// Provider keeps the current validated account snapshot and refreshes it
// on a schedule. The engine takes one snapshot at startup; refreshes keep
// validity visible to the status surface without touching running loops.
type Provider struct {
	source  Source
	factory Factory
	testNet bool

	mu       sync.RWMutex
	accounts []*Account
	users    []UserInfo
}

// NewProvider builds a provider; call Refresh before the first use.
func NewProvider(source Source, factory Factory, testNet bool) *Provider {
	return &Provider{source: source, factory: factory, testNet: testNet}
}

// Refresh reloads and revalidates all accounts, then swaps the snapshot.
// Clients from the outgoing snapshot stay open: running fetch loops own
// them and close them at engine shutdown.
func (p *Provider) Refresh(ctx context.Context) error {
	users, err := p.source()
	if err != nil {
		return err
	}

	markDuplicateKeys(users)
	accounts := buildAccounts(users, p.factory, p.testNet)
	valid := validateAccounts(ctx, accounts)

	// Propagate probe results back into the user list for reporting.
	byKey := make(map[string]*Account, len(accounts))
	for _, acct := range accounts {
		byKey[acct.User.APIKey] = acct
	}
	for i := range users {
		if acct, ok := byKey[users[i].APIKey]; ok && users[i].Reason == "" {
			users[i].Valid = acct.User.Valid
			users[i].Reason = acct.User.Reason
		}
	}

	p.mu.Lock()
	p.accounts = valid
	p.users = users
	p.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"total": len(users),
		"valid": len(valid),
	}).Info("account snapshot refreshed")
	return nil
}

// Accounts returns the current valid account snapshot.
func (p *Provider) Accounts() []*Account {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Account, len(p.accounts))
	copy(out, p.accounts)
	return out
}

// Users returns all loaded user records with their validity flags.
func (p *Provider) Users() []UserInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]UserInfo, len(p.users))
	copy(out, p.users)
	return out
}

// ScheduleRefresh registers the periodic revalidation on c.
func (p *Provider) ScheduleRefresh(c *cron.Cron, spec string) error {
	_, err := c.AddFunc(spec, func() {
		if err := p.Refresh(context.Background()); err != nil {
			logrus.WithError(err).Error("account refresh failed")
		}
	})
	return err
}
