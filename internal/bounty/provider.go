package bounty

import (
	"fmt"
	"os"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Source loads the raw campaign records. The production source is a YAML
// file standing in for the externally managed campaign sheet.
type Source func() ([]Bounty, error)

// FileSource reads campaign records from a YAML file.
func FileSource(path string) Source {
	return func() ([]Bounty, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read campaigns file: %w", err)
		}
		var doc struct {
			Campaigns []Bounty `yaml:"campaigns"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse campaigns file: %w", err)
		}
		return doc.Campaigns, nil
	}
}

// Provider keeps the current active-campaign snapshot and refreshes it on
// a schedule. Snapshots are immutable during a fetch cycle.
type Provider struct {
	source Source

	mu     sync.RWMutex
	active []Bounty
}

// NewProvider builds a provider; call Refresh before the first use.
func NewProvider(source Source) *Provider {
	return &Provider{source: source}
}

// Refresh reloads the campaign list and keeps only active entries.
func (p *Provider) Refresh() error {
	all, err := p.source()
	if err != nil {
		return err
	}

	active := make([]Bounty, 0, len(all))
	for _, b := range all {
		if b.Active {
			active = append(active, b)
		}
	}

	p.mu.Lock()
	p.active = active
	p.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"total":  len(all),
		"active": len(active),
	}).Info("campaign snapshot refreshed")
	return nil
}

// Active returns the current active-campaign snapshot.
func (p *Provider) Active() []Bounty {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Bounty, len(p.active))
	copy(out, p.active)
	return out
}

// ScheduleRefresh registers the periodic reload on c.
func (p *Provider) ScheduleRefresh(c *cron.Cron, spec string) error {
	_, err := c.AddFunc(spec, func() {
		if err := p.Refresh(); err != nil {
			logrus.WithError(err).Error("campaign refresh failed")
		}
	})
	return err
}
