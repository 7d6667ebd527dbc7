package fetcher

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// State names for one fetch loop.
const (
	StateFetching   = "fetching"
	StateCommitting = "committing"
	StateSleeping   = "sleeping"
	StateClosed     = "closed"
)

// LoopStatus is the externally visible state of one (account, campaign)
// loop, served by the status API.
type LoopStatus struct {
	Account   string    `json:"account"`
	Exchange  string    `json:"exchange"`
	Campaign  int64     `json:"campaign"`
	Market    string    `json:"market"`
	State     string    `json:"state"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// statusBoard tracks loop states under a lock; loops update it, the API
// reads it.
type statusBoard struct {
	mu    sync.RWMutex
	loops map[string]*LoopStatus
}

func newStatusBoard() *statusBoard {
	return &statusBoard{loops: make(map[string]*LoopStatus)}
}

func (b *statusBoard) set(p pair, state string, err error) {
	key := fmt.Sprintf("%s/%d", p.acct.User.AccountName, p.b.CampaignID)

	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.loops[key]
	if !ok {
		st = &LoopStatus{
			Account:  p.acct.User.DisplayName,
			Exchange: p.acct.User.ExchangeName,
			Campaign: p.b.CampaignID,
			Market:   p.b.Market,
		}
		b.loops[key] = st
	}
	st.State = state
	st.UpdatedAt = time.Now()
	st.LastError = ""
	if err != nil {
		st.LastError = err.Error()
	}
}

func (b *statusBoard) snapshot() []LoopStatus {
	b.mu.RLock()
	out := make([]LoopStatus, 0, len(b.loops))
	for _, st := range b.loops {
		out = append(out, *st)
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Account != out[j].Account {
			return out[i].Account < out[j].Account
		}
		return out[i].Campaign < out[j].Campaign
	})
	return out
}
