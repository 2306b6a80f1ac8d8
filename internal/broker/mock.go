package broker

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"sigflow/internal/model"
	"sigflow/internal/types"

	"github.com/shopspring/decimal"
)

var _ Adapter = (*Mock)(nil)

// Mock simulates a venue: limit entries fill at the requested price plus a
// small random slippage inside the spread, market entries fill at the current
// simulated quote.
type Mock struct {
	quotes QuoteSource

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMock(quotes QuoteSource, seed int64) *Mock {
	return &Mock{quotes: quotes, rng: rand.New(rand.NewSource(seed))}
}

func (m *Mock) Execute(_ context.Context, o model.Order) (Fill, error) {
	sig := o.Signal
	if !m.quotes.Known(sig.Instrument) {
		return Fill{}, &BrokerError{Code: "instrument_unavailable", Reason: "no venue for " + sig.Instrument}
	}
	if sig.EntryPrice == nil {
		price, err := m.quotes.Quote(sig.Instrument)
		if err != nil {
			return Fill{}, &BrokerError{Code: "no_quote", Reason: err.Error()}
		}
		return Fill{Price: price, At: time.Now().UTC()}, nil
	}
	spread := m.quotes.Spread(sig.Instrument)
	m.mu.Lock()
	factor := m.rng.Float64()*2 - 1
	m.mu.Unlock()
	slippage := spread.Mul(decimal.NewFromFloat(factor))
	fill := sig.EntryPrice.Add(slippage)
	// Slippage must not push the fill through a protective level, or the
	// close evaluator would close the order at a price it never traded at.
	low, high := sig.StopLoss, sig.TakeProfit
	if low.GreaterThan(high) {
		low, high = high, low
	}
	if !fill.GreaterThan(low) || !fill.LessThan(high) {
		fill = *sig.EntryPrice
	}
	return Fill{Price: fill, At: time.Now().UTC()}, nil
}

func (m *Mock) SimulateClose(_ context.Context, o model.Order) (*Close, error) {
	sig := o.Signal
	price, err := m.quotes.Quote(sig.Instrument)
	if err != nil {
		return nil, &BrokerError{Code: "no_quote", Reason: err.Error()}
	}
	now := time.Now().UTC()
	switch sig.Side {
	case types.SideBuy:
		if price.LessThanOrEqual(sig.StopLoss) {
			return &Close{Price: sig.StopLoss, Reason: types.CloseReasonStopLoss, At: now}, nil
		}
		if price.GreaterThanOrEqual(sig.TakeProfit) {
			return &Close{Price: sig.TakeProfit, Reason: types.CloseReasonTakeProfit, At: now}, nil
		}
	case types.SideSell:
		if price.GreaterThanOrEqual(sig.StopLoss) {
			return &Close{Price: sig.StopLoss, Reason: types.CloseReasonStopLoss, At: now}, nil
		}
		if price.LessThanOrEqual(sig.TakeProfit) {
			return &Close{Price: sig.TakeProfit, Reason: types.CloseReasonTakeProfit, At: now}, nil
		}
	}
	return nil, nil
}
