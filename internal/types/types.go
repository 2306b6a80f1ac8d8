package types

type Side string

type OrderStatus string

type SignalStatus string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusExecuted OrderStatus = "executed"
	OrderStatusClosed   OrderStatus = "closed"
	OrderStatusRejected OrderStatus = "rejected"
)

const (
	SignalStatusReceived   SignalStatus = "received"
	SignalStatusProcessing SignalStatus = "processing"
	SignalStatusProcessed  SignalStatus = "processed"
	SignalStatusFailed     SignalStatus = "failed"
)

const (
	CloseReasonStopLoss   = "sl"
	CloseReasonTakeProfit = "tp"
	CloseReasonManual     = "manual"
)
