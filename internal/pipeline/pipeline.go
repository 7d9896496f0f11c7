// Package pipeline implements order placement, amendment, and
// cancellation against the OKX trade endpoints. Every call follows the
// "always-true return, events carry truth" convention: the bool result
// never reports the outcome. Local rejections and the Submitted event after
// an accepted place are emitted through the EventSink; fills and later
// status changes arrive as ExecutionEvents from internal/reconciler.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/okx-bridge/okx/internal/metrics"
	"github.com/okx-bridge/okx/internal/transport"
	"github.com/okx-bridge/okx/pkg/types"
)

// Books supplies the live ask ladder and price-limit state a market-buy
// transformation needs; the façade's marketData (internal/facade)
// satisfies this.
type Books interface {
	AsksSnapshot(instID string) []types.DepthLevel
	PriceLimit(instID string) types.PriceLimitState
}

// EventSink receives execution events as they're produced locally (e.g.
// an immediate rejection) ahead of anything the reconciler later reports
// from the exchange's own order channel.
type EventSink interface {
	Emit(types.ExecutionEvent)
}

// Pipeline places, amends, and cancels orders.
type Pipeline struct {
	client  *transport.Client
	books   Books
	sink    EventSink
	mode    types.UnifiedAccountMode
	logger  *slog.Logger
}

// New builds a Pipeline.
func New(client *transport.Client, books Books, sink EventSink, mode types.UnifiedAccountMode, logger *slog.Logger) *Pipeline {
	return &Pipeline{client: client, books: books, sink: sink, mode: mode, logger: logger.With("component", "pipeline")}
}

type placeOrderReq struct {
	InstID  string `json:"instId"`
	TdMode  string `json:"tdMode"`
	Side    string `json:"side"`
	OrdType string `json:"ordType"`
	Sz      string `json:"sz"`
	Px      string `json:"px,omitempty"`
	ClOrdID string `json:"clOrdId"`
}

type placeOrderResult struct {
	OrdID   string `json:"ordId"`
	ClOrdID string `json:"clOrdId"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
}

// Place submits an order. It always returns true; the order's ultimate
// fate arrives as an ExecutionEvent.
func (p *Pipeline) Place(ctx context.Context, order types.Order) bool {
	if order.Type == types.StopMarket {
		p.reject(order, types.CodeOrderPlaceError, "stop_market orders are not supported")
		return true
	}

	clOrdID := "okxb" + uuid.New().String()[:28]
	order.ClientOrderID = clOrdID

	ordType, px, sz, err := p.resolveRequestShape(order)
	if err != nil {
		code := types.CodeOrderPlaceError
		if err == ErrNoLiquidity {
			code = types.CodeNoLiquidity
		}
		p.reject(order, code, err.Error())
		return true
	}

	req := placeOrderReq{
		InstID:  order.Instrument.Symbol,
		TdMode:  string(p.mode.TradeMode()),
		Side:    string(order.Side),
		OrdType: ordType,
		Sz:      sz,
		Px:      px,
		ClOrdID: clOrdID,
	}

	results, err := transport.Post[[]placeOrderResult](ctx, p.client, transport.BucketOrder, "/api/v5/trade/order", req)
	if err != nil {
		metrics.IncOrder("place", "error")
		p.reject(order, types.CodeOrderPlaceError, err.Error())
		return true
	}
	if len(results) == 0 {
		metrics.IncOrder("place", "error")
		p.reject(order, types.CodeOrderPlaceError, "empty result set")
		return true
	}

	res := results[0]
	if res.SCode != "0" {
		metrics.IncOrder("place", "rejected")
		p.reject(order, types.CodeOrderPlaceError, res.SMsg)
		return true
	}

	metrics.IncOrder("place", "ok")
	p.sink.Emit(types.ExecutionEvent{
		EngineOrderID:   order.EngineOrderID,
		ExchangeOrderID: res.OrdID,
		Status:          types.StatusSubmitted,
	})
	return true
}

// resolveRequestShape picks the OKX ordType/px/sz triplet for order,
// applying the spot market-buy-as-FOK transformation when applicable.
func (p *Pipeline) resolveRequestShape(order types.Order) (ordType, px, sz string, err error) {
	isSpotMarketBuy := order.Type == types.Market && order.Side == types.Buy && order.Instrument.Type == types.Spot
	if !isSpotMarketBuy {
		ordType = okxOrdType(order.Type, order.TIF)
		sz = order.Instrument.RoundSize(order.Quantity).String()
		if order.Type != types.Market {
			px = order.Instrument.RoundPrice(order.LimitPrice).String()
		}
		return ordType, px, sz, nil
	}

	asks := p.books.AsksSnapshot(order.Instrument.Symbol)
	limit := p.books.PriceLimit(order.Instrument.Symbol)
	price, err := resolveMarketBuy(asks, order.Quantity, limit)
	if err != nil {
		return "", "", "", err
	}
	return "fok", order.Instrument.RoundPrice(price).String(), order.Instrument.RoundSize(order.Quantity).String(), nil
}

func okxOrdType(t types.OrderType, tif types.TimeInForce) string {
	switch {
	case t == types.Market:
		return "market"
	case tif == types.FOK:
		return "fok"
	case tif == types.IOC:
		return "ioc"
	case tif == types.PostOnly:
		return "post_only"
	default:
		return "limit"
	}
}

func (p *Pipeline) reject(order types.Order, code, msg string) {
	p.sink.Emit(types.ExecutionEvent{
		EngineOrderID: order.EngineOrderID,
		Status:        types.StatusInvalid,
		Message: &types.BrokerageMessage{
			Code:    code,
			Message: msg,
		},
	})
}

type amendOrderReq struct {
	InstID  string `json:"instId"`
	OrdID   string `json:"ordId,omitempty"`
	ClOrdID string `json:"clOrdId,omitempty"`
	NewSz   string `json:"newSz,omitempty"`
	NewPx   string `json:"newPx,omitempty"`
}

// Amend changes an existing order's price and/or size. Always returns true.
func (p *Pipeline) Amend(ctx context.Context, order types.Order, newSize, newPrice decimal.Decimal) bool {
	if order.ExchangeOrderID == "" {
		p.reject(order, types.CodeOrderUpdateError, "missing exchange order id")
		return true
	}

	req := amendOrderReq{InstID: order.Instrument.Symbol, OrdID: order.ExchangeOrderID}
	if !newSize.IsZero() {
		req.NewSz = order.Instrument.RoundSize(newSize).String()
	}
	if !newPrice.IsZero() {
		req.NewPx = order.Instrument.RoundPrice(newPrice).String()
	}

	results, err := transport.Post[[]placeOrderResult](ctx, p.client, transport.BucketOrder, "/api/v5/trade/amend-order", req)
	if err != nil {
		metrics.IncOrder("amend", "error")
		p.reject(order, types.CodeOrderUpdateError, err.Error())
		return true
	}
	if len(results) == 0 || results[0].SCode != "0" {
		metrics.IncOrder("amend", "rejected")
		msg := "empty result set"
		if len(results) > 0 {
			msg = results[0].SMsg
		}
		p.reject(order, types.CodeOrderUpdateError, msg)
		return true
	}
	metrics.IncOrder("amend", "ok")
	return true
}

type cancelOrderReq struct {
	InstID string `json:"instId"`
	OrdID  string `json:"ordId"`
}

// Cancel cancels an existing order. Always returns true.
func (p *Pipeline) Cancel(ctx context.Context, order types.Order) bool {
	if order.ExchangeOrderID == "" {
		p.reject(order, types.CodeOrderCancelError, "missing exchange order id")
		return true
	}

	results, err := transport.Post[[]placeOrderResult](ctx, p.client, transport.BucketOrder, "/api/v5/trade/cancel-order",
		cancelOrderReq{InstID: order.Instrument.Symbol, OrdID: order.ExchangeOrderID})
	if err != nil {
		metrics.IncOrder("cancel", "error")
		p.reject(order, types.CodeOrderCancelError, err.Error())
		return true
	}
	if len(results) == 0 || results[0].SCode != "0" {
		metrics.IncOrder("cancel", "rejected")
		msg := "empty result set"
		if len(results) > 0 {
			msg = results[0].SMsg
		}
		p.reject(order, types.CodeOrderCancelError, msg)
		return true
	}
	metrics.IncOrder("cancel", "ok")
	return true
}
