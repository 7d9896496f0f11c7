package codec

import (
	"encoding/json"
	"fmt"

	"github.com/okx-bridge/okx/pkg/types"
	"github.com/shopspring/decimal"
)

// wireBookData is the raw per-snapshot/per-update payload of the "books"
// family of channels (books, books5, books-l2-tbt, bbo-tbt). Bids/asks are
// [price, size, liquidated-orders-count, order-count] tuples, always
// strings on the wire.
type wireBookData struct {
	Asks      [][4]string `json:"asks"`
	Bids      [][4]string `json:"bids"`
	Ts        string      `json:"ts"`
	Checksum  *int32      `json:"checksum"`
	SeqID     int64       `json:"seqId"`
	PrevSeqID int64       `json:"prevSeqId"`
}

// DecodeBookFrame turns one raw "books" push into a typed update frame. The
// lexical price/size strings are preserved on each level for the checksum
// protocol; IsSnapshot is taken from the frame's action field ("snapshot")
// or, for channels with no action field, the seqId continuity.
func DecodeBookFrame(f PushFrame) (types.OrderBookUpdateFrame, error) {
	var rows []wireBookData
	if err := json.Unmarshal(f.Data, &rows); err != nil {
		return types.OrderBookUpdateFrame{}, fmt.Errorf("codec: decode book frame: %w", err)
	}
	if len(rows) == 0 {
		return types.OrderBookUpdateFrame{}, fmt.Errorf("codec: book frame carries no data rows")
	}
	row := rows[0]

	out := types.OrderBookUpdateFrame{
		InstID:     f.Arg.InstID,
		Checksum:   row.Checksum,
		SeqID:      row.SeqID,
		IsSnapshot: f.Action == "snapshot" || row.PrevSeqID == -1,
	}

	var err error
	if out.Bids, err = decodeLevels(row.Bids); err != nil {
		return types.OrderBookUpdateFrame{}, err
	}
	if out.Asks, err = decodeLevels(row.Asks); err != nil {
		return types.OrderBookUpdateFrame{}, err
	}
	if row.Ts != "" {
		var ts Number
		if err := json.Unmarshal([]byte(`"`+row.Ts+`"`), &ts); err == nil {
			out.Timestamp = ts.IntPart()
		}
	}
	return out, nil
}

func decodeLevels(raw [][4]string) ([]types.RawLevel, error) {
	levels := make([]types.RawLevel, 0, len(raw))
	for _, r := range raw {
		price, err := decimal.NewFromString(r[0])
		if err != nil {
			continue // malformed row, dropped per spec.md §4.1
		}
		size, err := decimal.NewFromString(r[1])
		if err != nil {
			continue
		}
		levels = append(levels, types.RawLevel{
			PriceStr: r[0],
			SizeStr:  r[1],
			Price:    price,
			Size:     size,
		})
	}
	return levels, nil
}
