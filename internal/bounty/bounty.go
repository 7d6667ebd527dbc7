// Package bounty owns the campaign definitions trades are attributed to.
package bounty

import "tracker/internal/trade"

// Bounty is one reward window tied to an exchange and market.
type Bounty struct {
	ExchangeName   string  `yaml:"exchange_name"`
	Market         string  `yaml:"market"`
	StartDate      string  `yaml:"start_date"`
	EndDate        string  `yaml:"end_date"`
	TotalReward    float64 `yaml:"total_reward"`
	RewardCurrency string  `yaml:"reward_currency"`
	CampaignID     int64   `yaml:"campaign_id"`
	StartTimestamp int64   `yaml:"start_timestamp"`
	EndTimestamp   int64   `yaml:"end_timestamp"`
	Active         bool    `yaml:"active"`
}

// Window returns the normalizer's view of this campaign.
func (b Bounty) Window() trade.Window {
	return trade.Window{
		CampaignID: b.CampaignID,
		Start:      b.StartTimestamp,
		End:        b.EndTimestamp,
	}
}
