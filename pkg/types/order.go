package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the engine's abstract representation of an order. Quantity is
// the unsigned order size; direction is carried by Side, and the sign of
// Quantity is not used for direction. Mutated only to attach exchange order id(s)
// on placement, per spec.md §3 — no reflection-based mutation, a builder
// sets fields explicitly.
type Order struct {
	EngineOrderID string
	Instrument    Instrument
	Side          Side
	Quantity      decimal.Decimal
	Type          OrderType
	LimitPrice    decimal.Decimal
	TIF           TimeInForce
	CreatedAt     time.Time

	ClientOrderID   string // minted on placement (uuid-derived)
	ExchangeOrderID string // attached only after a successful sCode=0 response
}

// WithExchangeID returns a copy of the order with the exchange order id
// attached. Orders are otherwise immutable once submitted.
func (o Order) WithExchangeID(id string) Order {
	o.ExchangeOrderID = id
	return o
}

// ExecutionEvent reports a status transition or fill for one order.
type ExecutionEvent struct {
	EngineOrderID     string
	ExchangeOrderID   string
	Status            OrderStatus
	FilledQtyCum      decimal.Decimal
	LastFillPrice     decimal.Decimal
	LastFillQty       decimal.Decimal
	Fee               decimal.Decimal
	FeeCurrency       string
	Timestamp         time.Time
	Message           *BrokerageMessage
}

// IsFill reports whether this event carries a non-zero last fill.
func (e ExecutionEvent) IsFill() bool {
	return !e.LastFillQty.IsZero()
}
