package broker

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/shopspring/decimal"
)

// OrderRequest is a market or limit order for one instrument.
type OrderRequest struct {
	Symbol    string          `validate:"required"`
	Exchange  string          `validate:"required"`
	Side      types.Side      `validate:"required,oneof=BUY SELL"`
	Quantity  int             `validate:"gt=0"`
	OrderType types.OrderType `validate:"required,oneof=MARKET LIMIT"`
	Price     decimal.Decimal
}

// Broker is the price feed and order endpoint the engines consume.
// Implementations must be safe for concurrent use.
type Broker interface {
	// GetLTP returns the last traded price of the instrument.
	GetLTP(ctx context.Context, symbol string, exchange string) (decimal.Decimal, error)
	// GetHistoricalData returns the bars between from and to, oldest first.
	GetHistoricalData(ctx context.Context, symbol string, exchange string, from time.Time, to time.Time, interval string) ([]types.Bar, error)
	// PlaceOrder submits an order and returns the broker's order id.
	PlaceOrder(ctx context.Context, req OrderRequest) (string, error)
}
