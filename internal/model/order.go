package model

import (
	"time"

	"sigflow/internal/types"

	"github.com/shopspring/decimal"
)

// Signal is the structured form of one webhook message. EntryPrice nil means
// market entry.
type Signal struct {
	Side       types.Side       `json:"side"`
	Instrument string           `json:"instrument"`
	EntryPrice *decimal.Decimal `json:"entry_price"`
	StopLoss   decimal.Decimal  `json:"stop_loss"`
	TakeProfit decimal.Decimal  `json:"take_profit"`
	RawText    string           `json:"raw_text"`
}

type Order struct {
	ID           string            `json:"id"`
	SignalID     string            `json:"signal_id"`
	Signal       Signal            `json:"signal"`
	Status       types.OrderStatus `json:"status"`
	FillPrice    *decimal.Decimal  `json:"fill_price"`
	ClosedPrice  *decimal.Decimal  `json:"closed_price"`
	RejectReason string            `json:"reject_reason,omitempty"`
	Version      int64             `json:"version"`
	CreatedAt    time.Time         `json:"created_at"`
	ExecutedAt   *time.Time        `json:"executed_at"`
	ClosedAt     *time.Time        `json:"closed_at"`
}

type OrderHistory struct {
	ID        string            `json:"id"`
	OrderID   string            `json:"order_id"`
	Status    types.OrderStatus `json:"status"`
	Detail    string            `json:"detail"`
	CreatedAt time.Time         `json:"created_at"`
}
