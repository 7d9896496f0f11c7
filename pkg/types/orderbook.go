package types

import "github.com/shopspring/decimal"

// RawLevel is a single bid or ask level exactly as received from the
// exchange: the lexical string form is preserved alongside the parsed
// decimal, because the CRC32 checksum protocol (spec.md §4.1.1) hashes the
// exchange's own formatting — trailing zeros and decimal placement must
// not be re-formatted away.
type RawLevel struct {
	PriceStr string
	SizeStr  string
	Price    decimal.Decimal
	Size     decimal.Decimal
}

// OrderBookUpdateFrame is one WebSocket order-book push: a snapshot (first
// frame after (re)subscription) or an incremental delta. A level with
// Size = 0 means "remove this price"; otherwise "set this level to this
// size" (spec.md §3).
type OrderBookUpdateFrame struct {
	InstID     string
	Bids       []RawLevel
	Asks       []RawLevel
	Timestamp  int64 // unix millis
	Checksum   *int32
	SeqID      int64
	IsSnapshot bool
}

// DepthLevel is one level of an immutable depth view.
type DepthLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// DepthView is an immutable, best-first snapshot of a ladder, safe to share
// across goroutines without further locking (copy-on-read).
type DepthView struct {
	InstID    string
	Bids      []DepthLevel // best-first, descending
	Asks      []DepthLevel // best-first, ascending
	Mid       decimal.Decimal
	Spread    decimal.Decimal
	Levels    int
	Suspect   bool // true when the book is not Live (awaiting a baseline, resyncing or failed)
	Timestamp int64
}

// PriceLimitState is the per-instrument exchange-enforced price band.
type PriceLimitState struct {
	InstID  string
	BuyLmt  decimal.Decimal
	SellLmt decimal.Decimal
	Enabled bool
}
