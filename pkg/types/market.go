package types

import "github.com/shopspring/decimal"

// TickerUpdate is a best-bid/best-ask snapshot pushed on the "tickers"
// channel — the Tick+Quote case of the subscription request table
// (spec.md §4.7).
type TickerUpdate struct {
	InstID    string
	BestBid   decimal.Decimal
	BestAsk   decimal.Decimal
	Last      decimal.Decimal
	Timestamp int64 // unix millis
}

// TradeUpdate is one executed trade pushed on the "trades" channel — the
// Tick+Trade case of the subscription request table.
type TradeUpdate struct {
	InstID    string
	TradeID   string
	Price     decimal.Decimal
	Size      decimal.Decimal
	Side      Side
	Timestamp int64 // unix millis
}

// Candle is one OHLCV bar, returned both by live candle-channel pushes and
// by the history fetcher's paginated REST retrieval.
type Candle struct {
	InstID    string
	Timestamp int64 // unix millis, bar open time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// HistoryRequest describes a candle backfill: the resolution must be a bar
// at or above 1 minute (spec.md §6 — sub-minute bars and quote ticks have
// no history endpoint and the façade returns nil for them).
type HistoryRequest struct {
	InstID     string
	Resolution string // e.g. "1m", "1H", "1D"
	Start      int64  // unix millis, inclusive lower bound
	End        int64  // unix millis, exclusive upper bound; 0 means "now"
	Limit      int    // max candles to return; 0 means "as many as Start requires"
}
