package broker

import (
	"context"
	"time"

	"sigflow/internal/model"

	"github.com/shopspring/decimal"
)

type Fill struct {
	Price decimal.Decimal
	At    time.Time
}

type Close struct {
	Price  decimal.Decimal
	Reason string
	At     time.Time
}

// BrokerError is a simulated venue failure. Orders hitting one are rejected,
// not retried.
type BrokerError struct {
	Code   string
	Reason string
}

func (e *BrokerError) Error() string {
	return "broker: " + e.Code + ": " + e.Reason
}

// Adapter is the narrow execution seam the engine depends on.
type Adapter interface {
	// Execute fills a pending order and returns the fill price.
	Execute(ctx context.Context, o model.Order) (Fill, error)
	// SimulateClose returns a close when the current price has crossed the
	// order's SL or TP, nil otherwise.
	SimulateClose(ctx context.Context, o model.Order) (*Close, error)
}

// QuoteSource supplies simulated market prices to an adapter.
type QuoteSource interface {
	Quote(instrument string) (decimal.Decimal, error)
	Spread(instrument string) decimal.Decimal
	Known(instrument string) bool
}
