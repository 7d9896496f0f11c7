package facade

import (
	"context"
	"time"

	"github.com/okx-bridge/okx/internal/codec"
	"github.com/okx-bridge/okx/internal/transport"
	"github.com/okx-bridge/okx/pkg/types"
)

type wireOpenOrder struct {
	InstID  string       `json:"instId"`
	OrdID   string       `json:"ordId"`
	ClOrdID string       `json:"clOrdId"`
	Side    string       `json:"side"`
	OrdType string       `json:"ordType"`
	Px      codec.Number `json:"px"`
	Sz      codec.Number `json:"sz"`
	CTime   codec.Number `json:"cTime"`
}

// GetOpenOrders lists every order currently resting on the book.
func (f *Facade) GetOpenOrders(ctx context.Context) ([]types.Order, error) {
	rows, err := transport.Get[[]wireOpenOrder](ctx, f.client, transport.BucketAccount, "/api/v5/trade/orders-pending", nil)
	if err != nil {
		return nil, err
	}

	out := make([]types.Order, 0, len(rows))
	for _, row := range rows {
		side := types.Buy
		if row.Side == "sell" {
			side = types.Sell
		}
		inst, _ := f.instruments.Resolve(row.InstID)
		out = append(out, types.Order{
			Instrument:      inst,
			Side:            side,
			Quantity:        row.Sz.Decimal,
			Type:            orderTypeFromWire(row.OrdType),
			LimitPrice:      row.Px.Decimal,
			CreatedAt:       time.UnixMilli(row.CTime.IntPart()),
			ClientOrderID:   row.ClOrdID,
			ExchangeOrderID: row.OrdID,
		})
	}
	return out, nil
}

func orderTypeFromWire(ordType string) types.OrderType {
	if ordType == "market" {
		return types.Market
	}
	return types.Limit
}

type wirePosition struct {
	InstID   string       `json:"instId"`
	PosSide  string       `json:"posSide"`
	Pos      codec.Number `json:"pos"`
	AvgPx    codec.Number `json:"avgPx"`
	Upl      codec.Number `json:"upl"`
}

// GetAccountHoldings lists every open position reported by
// /api/v5/account/positions. Spot currency balances are not included; see
// GetCashBalance.
func (f *Facade) GetAccountHoldings(ctx context.Context) ([]types.AccountHolding, error) {
	rows, err := transport.Get[[]wirePosition](ctx, f.client, transport.BucketAccount, "/api/v5/account/positions", nil)
	if err != nil {
		return nil, err
	}

	out := make([]types.AccountHolding, 0, len(rows))
	for _, row := range rows {
		side := types.Buy
		if row.PosSide == "short" {
			side = types.Sell
		}
		out = append(out, types.AccountHolding{
			InstID:        row.InstID,
			Side:          side,
			Quantity:      row.Pos.Decimal,
			AvgPrice:      row.AvgPx.Decimal,
			UnrealizedPnL: row.Upl.Decimal,
		})
	}
	return out, nil
}

type wireBalanceDetail struct {
	Ccy       string       `json:"ccy"`
	AvailBal  codec.Number `json:"availBal"`
	CashBal   codec.Number `json:"cashBal"`
}

type wireBalance struct {
	Details []wireBalanceDetail `json:"details"`
}

// GetCashBalance lists available and total balance per currency.
func (f *Facade) GetCashBalance(ctx context.Context) ([]types.CashBalance, error) {
	rows, err := transport.Get[[]wireBalance](ctx, f.client, transport.BucketAccount, "/api/v5/account/balance", nil)
	if err != nil {
		return nil, err
	}

	var out []types.CashBalance
	for _, row := range rows {
		for _, d := range row.Details {
			out = append(out, types.CashBalance{
				Currency:  d.Ccy,
				Available: d.AvailBal.Decimal,
				Total:     d.CashBal.Decimal,
			})
		}
	}
	return out, nil
}
