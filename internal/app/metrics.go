package app

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_refreshes_total",
			Help: "Market data refreshes by result",
		},
		[]string{"result"}, // success|failure
	)

	mtxRefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tracker_refresh_duration_seconds",
			Help:    "Time spent fetching market data",
			Buckets: prometheus.DefBuckets,
		},
	)

	mtxPollCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_poll_cycles_total",
			Help: "Refreshes triggered by the polling loop",
		},
	)

	mtxCoins = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_coins",
			Help: "Coins in the latest market list",
		},
	)

	mtxPortfolioValue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_portfolio_value_usd",
			Help: "Total portfolio value in USD",
		},
	)

	mtxPortfolioItems = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_portfolio_items",
			Help: "Holdings in the portfolio",
		},
	)

	mtxLogins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_logins_total",
			Help: "Login attempts by result",
		},
		[]string{"result"}, // ok|rejected
	)

	mtxStorageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_storage_errors_total",
			Help: "Absorbed key/value store failures",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(mtxRefreshes, mtxRefreshDuration, mtxPollCycles, mtxCoins)
	prometheus.MustRegister(mtxPortfolioValue, mtxPortfolioItems)
	prometheus.MustRegister(mtxLogins, mtxStorageErrors)
}
