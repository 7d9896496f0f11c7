package facade

import (
	"context"

	"github.com/okx-bridge/okx/internal/codec"
	"github.com/okx-bridge/okx/internal/transport"
	"github.com/okx-bridge/okx/pkg/types"
)

// fetchPriceLimit reads the REST baseline for one instrument's
// price-limit band.
func fetchPriceLimit(ctx context.Context, client *transport.Client, instID string) (types.PriceLimitState, error) {
	rows, err := transport.Get[[]codec.WirePriceLimitRow](ctx, client, transport.BucketPublic, "/api/v5/public/price-limit", map[string]string{"instId": instID})
	if err != nil {
		return types.PriceLimitState{}, err
	}
	return codec.DecodePriceLimitREST(rows)
}
