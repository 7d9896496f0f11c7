package codec

import (
	"encoding/json"
	"fmt"

	"github.com/okx-bridge/okx/pkg/types"
)

// wireTicker is one row of the "tickers" channel push.
type wireTicker struct {
	InstID  string `json:"instId"`
	Last    Number `json:"last"`
	BidPx   Number `json:"bidPx"`
	AskPx   Number `json:"askPx"`
	Ts      Number `json:"ts"`
}

// DecodeTickerFrame turns one raw "tickers" push into a TickerUpdate.
func DecodeTickerFrame(f PushFrame) (types.TickerUpdate, error) {
	var rows []wireTicker
	if err := json.Unmarshal(f.Data, &rows); err != nil {
		return types.TickerUpdate{}, fmt.Errorf("codec: decode ticker frame: %w", err)
	}
	if len(rows) == 0 {
		return types.TickerUpdate{}, fmt.Errorf("codec: ticker frame carries no data rows")
	}
	row := rows[0]
	return types.TickerUpdate{
		InstID:    row.InstID,
		BestBid:   row.BidPx.Decimal,
		BestAsk:   row.AskPx.Decimal,
		Last:      row.Last.Decimal,
		Timestamp: row.Ts.IntPart(),
	}, nil
}

// wireTrade is one row of the "trades" channel push.
type wireTrade struct {
	InstID  string `json:"instId"`
	TradeID string `json:"tradeId"`
	Px      Number `json:"px"`
	Sz      Number `json:"sz"`
	Side    string `json:"side"`
	Ts      Number `json:"ts"`
}

// DecodeTradeFrames turns one raw "trades" push into zero or more
// TradeUpdates (a single push can batch several prints).
func DecodeTradeFrames(f PushFrame) ([]types.TradeUpdate, error) {
	var rows []wireTrade
	if err := json.Unmarshal(f.Data, &rows); err != nil {
		return nil, fmt.Errorf("codec: decode trade frame: %w", err)
	}
	out := make([]types.TradeUpdate, 0, len(rows))
	for _, row := range rows {
		side := types.Buy
		if row.Side == "sell" {
			side = types.Sell
		}
		out = append(out, types.TradeUpdate{
			InstID:    row.InstID,
			TradeID:   row.TradeID,
			Price:     row.Px.Decimal,
			Size:      row.Sz.Decimal,
			Side:      side,
			Timestamp: row.Ts.IntPart(),
		})
	}
	return out, nil
}

// CandleRow is OKX's candle shape: a 9-element tuple
// [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm], shared by both the
// candle-channel push and the history-candles REST response.
type CandleRow [9]string

// DecodeCandleRows converts raw candle tuples (from either a WS push or a
// REST response's data array) into Candles for instID.
func DecodeCandleRows(instID string, raw []CandleRow) ([]types.Candle, error) {
	out := make([]types.Candle, 0, len(raw))
	for _, row := range raw {
		c, err := decodeCandleRow(instID, row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// DecodeCandleFrame turns one raw candle-channel push into Candles.
func DecodeCandleFrame(instID string, f PushFrame) ([]types.Candle, error) {
	var rows []CandleRow
	if err := json.Unmarshal(f.Data, &rows); err != nil {
		return nil, fmt.Errorf("codec: decode candle frame: %w", err)
	}
	return DecodeCandleRows(instID, rows)
}

func decodeCandleRow(instID string, row CandleRow) (types.Candle, error) {
	var n [5]Number
	for i := 0; i < 5; i++ {
		if err := n[i].UnmarshalJSON([]byte(`"` + row[i] + `"`)); err != nil {
			return types.Candle{}, fmt.Errorf("codec: decode candle field %d: %w", i, err)
		}
	}
	var vol Number
	if err := vol.UnmarshalJSON([]byte(`"` + row[5] + `"`)); err != nil {
		return types.Candle{}, fmt.Errorf("codec: decode candle volume: %w", err)
	}
	return types.Candle{
		InstID:    instID,
		Timestamp: n[0].IntPart(),
		Open:      n[1].Decimal,
		High:      n[2].Decimal,
		Low:       n[3].Decimal,
		Close:     n[4].Decimal,
		Volume:    vol.Decimal,
	}, nil
}
