package codec

import (
	"encoding/json"
	"fmt"

	"github.com/okx-bridge/okx/pkg/types"
)

// wirePriceLimit is one row of the "price-limit" channel push, or of the
// REST /api/v5/public/price-limit response — both share the same shape.
// OKX reports an empty buyLmt/sellLmt string when the exchange isn't
// currently enforcing a band for the instrument; that normalizes to
// Enabled=false rather than a spurious zero-price band.
type wirePriceLimit struct {
	InstID  string `json:"instId"`
	BuyLmt  Number `json:"buyLmt"`
	SellLmt Number `json:"sellLmt"`
}

// DecodePriceLimitRows converts raw price-limit rows (from either a WS
// push or a REST response) into PriceLimitStates.
func DecodePriceLimitRows(raw []wirePriceLimit) []types.PriceLimitState {
	out := make([]types.PriceLimitState, 0, len(raw))
	for _, row := range raw {
		out = append(out, types.PriceLimitState{
			InstID:  row.InstID,
			BuyLmt:  row.BuyLmt.Decimal,
			SellLmt: row.SellLmt.Decimal,
			Enabled: !row.BuyLmt.Decimal.IsZero() || !row.SellLmt.Decimal.IsZero(),
		})
	}
	return out
}

// DecodePriceLimitFrame turns one raw "price-limit" push into a
// PriceLimitState. The channel always carries exactly one row per instId.
func DecodePriceLimitFrame(f PushFrame) (types.PriceLimitState, error) {
	var rows []wirePriceLimit
	if err := json.Unmarshal(f.Data, &rows); err != nil {
		return types.PriceLimitState{}, fmt.Errorf("codec: decode price-limit frame: %w", err)
	}
	states := DecodePriceLimitRows(rows)
	if len(states) == 0 {
		return types.PriceLimitState{}, fmt.Errorf("codec: price-limit frame carries no data rows")
	}
	return states[0], nil
}

// DecodePriceLimitREST converts a raw REST /api/v5/public/price-limit
// response body (already unmarshalled into rows by the envelope decoder)
// into a single PriceLimitState for instID.
func DecodePriceLimitREST(rows []wirePriceLimit) (types.PriceLimitState, error) {
	states := DecodePriceLimitRows(rows)
	if len(states) == 0 {
		return types.PriceLimitState{}, fmt.Errorf("codec: price-limit response carries no rows")
	}
	return states[0], nil
}

// WirePriceLimitRow is the exported alias transport callers decode the
// REST envelope's data array into before handing it to
// DecodePriceLimitREST.
type WirePriceLimitRow = wirePriceLimit
