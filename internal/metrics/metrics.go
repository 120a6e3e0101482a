// Package metrics exposes Prometheus metrics of the backtest and live bots.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/shopspring/decimal"
)

// Session results.
const (
	ResultCompleted = "completed"
	ResultExhausted = "exhausted"
	ResultNoData    = "no_data"
	ResultFailed    = "failed"
)

// BacktestSessions counts replay sessions by outcome.
var BacktestSessions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "autotrader",
		Subsystem: "backtest",
		Name:      "sessions_total",
		Help:      "Backtest sessions by result",
	},
	[]string{"result"},
)

// BacktestSessionSeconds is the wall time of one replay session.
var BacktestSessionSeconds = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "autotrader",
		Subsystem: "backtest",
		Name:      "session_seconds",
		Help:      "Wall time of a backtest session in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	},
)

// Trades counts journaled opens and exits.
var Trades = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "autotrader",
		Name:      "trades_total",
		Help:      "Journaled trades by mode and action",
	},
	[]string{"mode", "action"},
)

// OpenPositions is the number of open positions per mode.
var OpenPositions = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "autotrader",
		Name:      "open_positions",
		Help:      "Current number of open positions",
	},
	[]string{"mode"},
)

// RealizedPnL is the realized P&L of the running book per mode.
var RealizedPnL = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "autotrader",
		Name:      "realized_pnl",
		Help:      "Realized P&L of closed positions",
	},
	[]string{"mode"},
)

// RecordSession records the outcome and duration of a replay session.
func RecordSession(result string, elapsed time.Duration) {
	BacktestSessions.WithLabelValues(result).Inc()
	BacktestSessionSeconds.Observe(elapsed.Seconds())
}

// RecordTrade counts one journaled event.
func RecordTrade(mode types.Mode, action types.Action) {
	Trades.WithLabelValues(string(mode), string(action)).Inc()
}

// UpdateBook publishes the open count and realized P&L of a book.
func UpdateBook(mode types.Mode, open int, realized decimal.Decimal) {
	OpenPositions.WithLabelValues(string(mode)).Set(float64(open))
	RealizedPnL.WithLabelValues(string(mode)).Set(realized.InexactFloat64())
}
