package pipeline

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/okx-bridge/okx/pkg/types"
)

// ErrNoLiquidity is returned by resolveMarketBuy when the ask ladder is
// empty; callers translate this into a NoLiquidity brokerage message.
var ErrNoLiquidity = errors.New("pipeline: empty ask ladder")

// resolveMarketBuy converts a spot market-buy of quantity q base units into
// a FOK limit price, per the walk-the-asks transformation: OKX interprets
// a raw market-buy size field differently for spot markets, so the bridge
// always submits spot buys as FOK limits at a computed price.
//
// asks must be ascending by price. limit is the live price-limit state;
// when enabled and its buyLmt undercuts the walked price, the walked price
// is truncated down to buyLmt.
func resolveMarketBuy(asks []types.DepthLevel, q decimal.Decimal, limit types.PriceLimitState) (decimal.Decimal, error) {
	if len(asks) == 0 {
		return decimal.Decimal{}, ErrNoLiquidity
	}

	cumulative := decimal.Zero
	price := asks[len(asks)-1].Price // best-effort ceiling if depth is insufficient
	for _, lvl := range asks {
		cumulative = cumulative.Add(lvl.Size)
		if cumulative.GreaterThanOrEqual(q) {
			price = lvl.Price
			break
		}
	}

	if limit.Enabled && limit.BuyLmt.LessThan(price) {
		price = limit.BuyLmt
	}
	return price, nil
}
