// Package monitor exposes the engine's Prometheus metrics.
package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched counts successful pagination page fetches.
	PagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_pages_fetched_total",
		Help: "Trade history pages fetched, by account and market.",
	}, []string{"account", "market"})

	// TradesFetched counts raw trades returned by the exchanges.
	TradesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_trades_fetched_total",
		Help: "Raw trades fetched, by exchange and account.",
	}, []string{"exchange", "account"})

	// TradesCommitted counts canonical trades upserted to storage.
	TradesCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_trades_committed_total",
		Help: "Canonical trades committed, by exchange and account.",
	}, []string{"exchange", "account"})

	// Backoffs counts loop backoff decisions by error class.
	Backoffs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_backoffs_total",
		Help: "Fetch loop backoffs, by error class.",
	}, []string{"class"})

	// CycleDuration observes full fetch-normalize-commit cycle times.
	CycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracker_fetch_cycle_duration_seconds",
		Help:    "Duration of one fetch cycle, by exchange.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"exchange"})

	// ActiveLoops tracks the number of live (account, campaign) loops.
	ActiveLoops = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_active_loops",
		Help: "Currently running fetch loops.",
	})
)
