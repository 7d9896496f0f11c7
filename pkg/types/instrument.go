package types

import "github.com/shopspring/decimal"

// Instrument is the immutable identity and tick/lot configuration for one
// tradeable symbol. Resolved once from the CSV database (internal/instrument)
// or registered dynamically from the exchange's instrument list.
type Instrument struct {
	Symbol     string // exchange symbol, e.g. "BTC-USDT" or "BTC-USDT-SWAP"
	BaseCcy    string
	QuoteCcy   string
	Type       SecurityType
	MinSize    decimal.Decimal // minimum order size in base units
	LotSize    decimal.Decimal // size increment
	TickSize   decimal.Decimal // price increment
	Multiplier decimal.Decimal // contract multiplier (1 for spot)
}

// RoundSize truncates a size down to the instrument's lot step.
func (i Instrument) RoundSize(size decimal.Decimal) decimal.Decimal {
	return truncateToStep(size, i.LotSize)
}

// RoundPrice truncates a price down to the instrument's tick step.
func (i Instrument) RoundPrice(price decimal.Decimal) decimal.Decimal {
	return truncateToStep(price, i.TickSize)
}

func truncateToStep(v, step decimal.Decimal) decimal.Decimal {
	if step.IsZero() {
		return v
	}
	return v.Div(step).Truncate(0).Mul(step)
}
