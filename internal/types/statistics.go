package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionStats is the snapshot stored with each completed backtest session.
type SessionStats struct {
	Symbol    string          `json:"symbol"`
	Strategy  string          `json:"strategy"`
	StartDate time.Time       `json:"start_date"`
	EndDate   time.Time       `json:"end_date"`
	Trades    int             `json:"trades"`
	PnL       decimal.Decimal `json:"pnl"`
}

// JournalStats aggregates a trade journal.
type JournalStats struct {
	TotalTrades   int             `json:"total_trades"`
	TotalPnL      decimal.Decimal `json:"total_pnl"`
	WinRate       decimal.Decimal `json:"win_rate"`
	WinningTrades int             `json:"winning_trades"`
	LosingTrades  int             `json:"losing_trades"`
}

// NewJournalStats folds events into JournalStats. Only exits carry P&L, so
// wins and losses are counted over exits while TotalTrades counts every row.
func NewJournalStats(events []TradeEvent) JournalStats {
	pnl := decimal.Zero
	exits, wins := 0, 0

	for _, e := range events {
		pnl = pnl.Add(e.PnL)

		if !e.IsExit() {
			continue
		}

		exits++

		if e.PnL.IsPositive() {
			wins++
		}
	}

	return JournalStatsFromCounts(len(events), exits, wins, pnl)
}

// JournalStatsFromCounts builds JournalStats from pre-aggregated counts.
// Breakeven exits count as losing.
func JournalStatsFromCounts(total int, exits int, wins int, pnl decimal.Decimal) JournalStats {
	stats := JournalStats{
		TotalTrades:   total,
		TotalPnL:      pnl,
		WinRate:       decimal.Zero,
		WinningTrades: wins,
		LosingTrades:  exits - wins,
	}

	if exits > 0 {
		stats.WinRate = decimal.NewFromInt(int64(wins)).
			Div(decimal.NewFromInt(int64(exits))).
			Mul(decimal.NewFromInt(100))
	}

	return stats
}
