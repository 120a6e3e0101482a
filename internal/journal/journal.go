package journal

import (
	"context"
	"strconv"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
)

// Journal is an append-only trade record. The engines only call Log; Recent
// and Stats serve the CLIs and the control surface.
type Journal interface {
	Log(ctx context.Context, event types.TradeEvent) error
	// Recent returns at most limit events, oldest first.
	Recent(ctx context.Context, limit int) ([]types.TradeEvent, error)
	Stats(ctx context.Context) (types.JournalStats, error)
	Close() error
}

// Headers are the CSV columns of a journal file.
var Headers = []string{
	"timestamp", "date", "time", "symbol", "segment",
	"strategy", "action", "order_type", "quantity",
	"price", "broker", "mode", "order_id",
	"status", "pnl", "capital", "remarks",
}

// toRow flattens an event into the Headers column order.
func toRow(e types.TradeEvent) []string {
	return []string{
		e.Timestamp.Format(time.RFC3339Nano),
		e.Timestamp.Format(time.DateOnly),
		e.Timestamp.Format(time.TimeOnly),
		e.Symbol,
		e.Segment,
		e.Strategy,
		string(e.Action),
		string(e.OrderType),
		strconv.Itoa(e.Quantity),
		e.Price.String(),
		e.Broker,
		string(e.Mode),
		e.OrderID,
		string(e.Status),
		e.PnL.String(),
		e.Capital.String(),
		e.Remarks,
	}
}

// fromRow parses a row written by toRow. index maps header names to columns
// so files with reordered columns still parse.
func fromRow(row []string, index map[string]int) (types.TradeEvent, error) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}

		return row[i]
	}

	at, err := time.Parse(time.RFC3339Nano, field("timestamp"))
	if err != nil {
		return types.TradeEvent{}, errors.Wrap(errors.ErrCodeJournalReadFailed, "invalid timestamp", err)
	}

	quantity, err := strconv.Atoi(orZero(field("quantity")))
	if err != nil {
		return types.TradeEvent{}, errors.Wrap(errors.ErrCodeJournalReadFailed, "invalid quantity", err)
	}

	price, err := decimal.NewFromString(orZero(field("price")))
	if err != nil {
		return types.TradeEvent{}, errors.Wrap(errors.ErrCodeJournalReadFailed, "invalid price", err)
	}

	pnl, err := decimal.NewFromString(orZero(field("pnl")))
	if err != nil {
		return types.TradeEvent{}, errors.Wrap(errors.ErrCodeJournalReadFailed, "invalid pnl", err)
	}

	capital, err := decimal.NewFromString(orZero(field("capital")))
	if err != nil {
		return types.TradeEvent{}, errors.Wrap(errors.ErrCodeJournalReadFailed, "invalid capital", err)
	}

	return types.TradeEvent{
		Timestamp: at,
		Symbol:    field("symbol"),
		Segment:   field("segment"),
		Strategy:  field("strategy"),
		Action:    types.Action(field("action")),
		OrderType: types.OrderType(field("order_type")),
		Quantity:  quantity,
		Price:     price,
		Broker:    field("broker"),
		Mode:      types.Mode(field("mode")),
		OrderID:   field("order_id"),
		Status:    types.TradeStatus(field("status")),
		PnL:       pnl,
		Capital:   capital,
		Remarks:   field("remarks"),
	}, nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}

	return s
}

// tail returns the last limit elements. A non-positive limit returns nothing.
func tail[T any](items []T, limit int) []T {
	if limit <= 0 {
		return []T{}
	}

	if len(items) > limit {
		return items[len(items)-limit:]
	}

	return items
}
