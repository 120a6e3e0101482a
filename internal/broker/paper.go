package broker

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/rxtech-lab/argo-autotrader/internal/datasource"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaperOrderPrefix marks order ids that never left the process.
const PaperOrderPrefix = "PAPER-"

// ltpLookback bounds how far back GetLTP searches for the latest bar.
const ltpLookback = 5 * 24 * time.Hour

// Paper simulates a broker from stored history. Prices come from the
// datasource and orders are acknowledged locally.
type Paper struct {
	source   datasource.HistoricalSource
	segment  string
	now      func() time.Time
	logger   *logger.Logger
	validate *validator.Validate
}

// NewPaper creates a paper broker reading the segment's history from source.
func NewPaper(source datasource.HistoricalSource, segment string, logger *logger.Logger) *Paper {
	return NewPaperWithClock(source, segment, time.Now, logger)
}

// NewPaperWithClock is NewPaper with an injected clock.
func NewPaperWithClock(source datasource.HistoricalSource, segment string, now func() time.Time, logger *logger.Logger) *Paper {
	return &Paper{
		source:   source,
		segment:  segment,
		now:      now,
		logger:   logger,
		validate: validator.New(),
	}
}

// GetLTP implements Broker. The last close at or before now is the LTP.
func (p *Paper) GetLTP(ctx context.Context, symbol string, exchange string) (decimal.Decimal, error) {
	now := p.now()

	bars, err := p.source.GetRange(ctx, p.segment, symbol, now.Add(-ltpLookback), now)
	if err != nil {
		return decimal.Zero, errors.Wrapf(errors.ErrCodeLTPUnavailable, err, "no price for %s:%s", exchange, symbol)
	}

	return bars[len(bars)-1].ClosePrice(), nil
}

// GetHistoricalData implements Broker. Bars are returned at the stored
// resolution; interval is only logged.
func (p *Paper) GetHistoricalData(ctx context.Context, symbol string, exchange string, from time.Time, to time.Time, interval string) ([]types.Bar, error) {
	if to.Before(from) {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "range end %s before start %s", to, from)
	}

	bars, err := p.source.GetRange(ctx, p.segment, symbol, from, to)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeHistoricalDataFailed, err, "historical data for %s:%s", exchange, symbol)
	}

	p.logger.Debug("Paper historical data",
		zap.String("symbol", symbol),
		zap.String("exchange", exchange),
		zap.String("interval", interval),
		zap.Int("bars", len(bars)))

	return bars, nil
}

// PlaceOrder implements Broker. Orders are acknowledged with a time-ordered
// PAPER- id and never routed.
func (p *Paper) PlaceOrder(_ context.Context, req OrderRequest) (string, error) {
	if err := p.validate.Struct(req); err != nil {
		return "", errors.Wrap(errors.ErrCodeOrderFailed, "invalid order", err)
	}

	id := PaperOrderPrefix + ulid.Make().String()

	p.logger.Info("Paper order",
		zap.String("order_id", id),
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.Int("quantity", req.Quantity),
		zap.String("price", req.Price.String()))

	return id, nil
}
