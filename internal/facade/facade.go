// Package facade binds the bridge's order pipeline, reconciler, market data
// cache, subscription pools, and history fetcher into the single
// engine-facing surface described by spec.md §6: place/update/cancel an
// order (always dispatched, true returned, outcome arriving as an event),
// read-only account and history queries, and a subscribe/unsubscribe pair
// over live market data.
//
// Grounded on the teacher's Engine (internal/engine/engine.go): one struct,
// one New, an explicit Start/Stop pair, goroutines tracked with a
// sync.WaitGroup and torn down via context cancellation — but reshaped
// around a synchronous-call-plus-event-stream contract instead of an
// autonomous trading loop.
package facade

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/okx-bridge/okx/internal/codec"
	"github.com/okx-bridge/okx/internal/config"
	"github.com/okx-bridge/okx/internal/history"
	"github.com/okx-bridge/okx/internal/instrument"
	"github.com/okx-bridge/okx/internal/metrics"
	"github.com/okx-bridge/okx/internal/pipeline"
	"github.com/okx-bridge/okx/internal/reconciler"
	"github.com/okx-bridge/okx/internal/subscription"
	"github.com/okx-bridge/okx/internal/transport"
	"github.com/okx-bridge/okx/internal/wsclient"
	"github.com/okx-bridge/okx/pkg/types"
	"github.com/shopspring/decimal"
)

// DataPoint is one item out of a live subscription: exactly one field is
// populated, matching whichever channel the subscription resolved to.
type DataPoint struct {
	InstID string
	Depth  *types.DepthView
	Ticker *types.TickerUpdate
	Trade  *types.TradeUpdate
	Candle *types.Candle
}

// Subscription is the live handle returned by Facade.Subscribe. Consume it
// until Facade.Unsubscribe closes the underlying channel.
type Subscription struct {
	InstID string
	ch     chan DataPoint
}

// Events returns the subscription's receive channel.
func (s *Subscription) Events() <-chan DataPoint { return s.ch }

// Facade is the bridge's engine-facing entry point.
type Facade struct {
	cfg         *config.Config
	logger      *slog.Logger
	instruments *instrument.Database
	client      *transport.Client
	signer      *transport.Signer

	market *marketData

	wsPrivate    *wsclient.Session
	publicPool   *subscription.Pool
	businessPool *subscription.Pool

	pipeline   *pipeline.Pipeline
	reconciler *reconciler.Reconciler
	history    *history.Fetcher

	regMu    sync.RWMutex
	registry map[string]string // exchange order id -> engine order id

	consumersMu sync.RWMutex
	consumers   map[string][]*Subscription // "channel:instId" -> subscribers

	events   chan types.ExecutionEvent
	messages chan types.BrokerageMessage

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Facade from cfg but starts nothing; call Start to bring up
// its WebSocket sessions and background loops.
func New(cfg *config.Config, logger *slog.Logger) (*Facade, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logger.With("component", "facade")

	instruments := instrument.NewDatabase()
	if cfg.Instrument.DatabasePath != "" {
		if err := instruments.LoadCSV(cfg.Instrument.DatabasePath); err != nil {
			return nil, fmt.Errorf("facade: load instrument database: %w", err)
		}
	}

	client := transport.NewClient(cfg, logger)

	f := &Facade{
		cfg:         cfg,
		logger:      logger,
		instruments: instruments,
		client:      client,
		signer:      transport.NewSigner(cfg.API.ApiKey, cfg.API.Secret, cfg.API.Passphrase),
		market:      newMarketData(client, cfg.WS, logger),
		registry:    make(map[string]string),
		consumers:   make(map[string][]*Subscription),
		events:      make(chan types.ExecutionEvent, cfg.WS.EventBufferSize),
		messages:    make(chan types.BrokerageMessage, cfg.WS.EventBufferSize),
		history:     history.New(client, logger),
	}

	f.reconciler = reconciler.New(f, cfg.WS.OrphanGraceWindow)
	f.pipeline = pipeline.New(client, f.market, f, cfg.Account.UnifiedMode, logger)

	f.publicPool = subscription.NewPool(cfg.WS.MaxSubsPerConn, f.newPublicSession)
	f.businessPool = subscription.NewPool(cfg.WS.MaxSubsPerConn, f.newBusinessSession)

	f.wsPrivate = wsclient.New(wsclient.Private, cfg.API.WSPrivateURL, f.signer, cfg.WS, logger)
	f.wsPrivate.Handle("orders", f.onOrdersFrame)

	return f, nil
}

// Start connects the private WebSocket session and arms the periodic
// clock-skew check. Public and business connections are opened lazily, the
// first time Subscribe needs one.
func (f *Facade) Start(ctx context.Context) error {
	f.ctx, f.cancel = context.WithCancel(ctx)
	f.runSession(f.wsPrivate)
	f.wg.Add(1)
	go f.clockSkewLoop()
	f.logger.Info("facade started")
	return nil
}

// Stop cancels every background goroutine and waits for them to exit,
// closing all WebSocket connections along the way.
func (f *Facade) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	f.wg.Wait()
	f.wsPrivate.Close()
	f.publicPool.CloseAll()
	f.businessPool.CloseAll()
	f.logger.Info("facade stopped")
}

func (f *Facade) runSession(s *wsclient.Session) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		if err := s.Run(f.ctx); err != nil && f.ctx.Err() == nil {
			f.logger.Error("websocket session exited", "error", err)
		}
	}()
}

func (f *Facade) newPublicSession() *wsclient.Session {
	s := wsclient.New(wsclient.Public, f.cfg.API.WSPublicURL, nil, f.cfg.WS, f.logger)
	s.Handle("books", f.onBookFrame)
	s.Handle("tickers", f.onTickerFrame)
	s.Handle("trades", f.onTradeFrame)
	s.Handle("price-limit", f.onPriceLimitFrame)
	f.runSession(s)
	return s
}

func (f *Facade) newBusinessSession() *wsclient.Session {
	s := wsclient.New(wsclient.Business, f.cfg.API.WSBusinessURL, f.signer, f.cfg.WS, f.logger)
	for _, channel := range subscription.CandleChannels() {
		s.Handle(channel, f.onCandleFrame)
	}
	f.runSession(s)
	return s
}

func (f *Facade) clockSkewLoop() {
	defer f.wg.Done()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-f.ctx.Done():
			return
		case <-ticker.C:
			if err := f.client.CheckClockSkew(f.ctx, f.cfg.Transport.ClockSkewLimit); err != nil {
				f.logger.Warn("clock skew check failed", "error", err)
				f.publishMessage(types.BrokerageMessage{
					Code:        types.CodeInsufficientData,
					Message:     err.Error(),
					Timestamp:   time.Now(),
					Recoverable: true,
				})
			}
		}
	}
}

// ————————————————————————————————————————————————————————————————————————
// Order management
// ————————————————————————————————————————————————————————————————————————

// PlaceOrder submits order. Always returns true; watch Events for the
// outcome.
func (f *Facade) PlaceOrder(ctx context.Context, order types.Order) bool {
	return f.pipeline.Place(ctx, order)
}

// UpdateOrder amends order's size and/or price. Always returns true.
func (f *Facade) UpdateOrder(ctx context.Context, order types.Order, newSize, newPrice decimal.Decimal) bool {
	return f.pipeline.Amend(ctx, order, newSize, newPrice)
}

// CancelOrder cancels order. Always returns true.
func (f *Facade) CancelOrder(ctx context.Context, order types.Order) bool {
	return f.pipeline.Cancel(ctx, order)
}

// Events streams order-status transitions and fills.
func (f *Facade) Events() <-chan types.ExecutionEvent { return f.events }

// Messages streams recoverable and non-recoverable brokerage warnings that
// don't belong to a single order. Clock-skew warnings are published here;
// exhausted order-book resyncs are logged and mark the book Failed, but are
// not published on this channel.
func (f *Facade) Messages() <-chan types.BrokerageMessage { return f.messages }

// EngineOrderID implements reconciler.Registry.
func (f *Facade) EngineOrderID(exchangeOrderID string) (string, bool) {
	f.regMu.RLock()
	defer f.regMu.RUnlock()
	id, ok := f.registry[exchangeOrderID]
	return id, ok
}

// Emit implements pipeline.EventSink. It records the exchange→engine order
// id mapping the reconciler needs, releases any fill that arrived before
// the mapping did, then republishes evt.
func (f *Facade) Emit(evt types.ExecutionEvent) {
	if evt.ExchangeOrderID != "" && evt.EngineOrderID != "" {
		f.regMu.Lock()
		f.registry[evt.ExchangeOrderID] = evt.EngineOrderID
		f.regMu.Unlock()

		if released, ok := f.reconciler.ReleaseOrphan(evt.ExchangeOrderID, evt.EngineOrderID); ok {
			f.publishEvent(released)
		}
	}
	f.publishEvent(evt)
}

func (f *Facade) publishEvent(evt types.ExecutionEvent) {
	select {
	case f.events <- evt:
	default:
		metrics.IncDropped("execution-events")
	}
}

func (f *Facade) publishMessage(msg types.BrokerageMessage) {
	select {
	case f.messages <- msg:
	default:
		metrics.IncDropped("brokerage-messages")
	}
}

func (f *Facade) onOrdersFrame(frame codec.PushFrame) {
	for _, evt := range f.reconciler.Handle(frame) {
		f.publishEvent(evt)
	}
}

// ————————————————————————————————————————————————————————————————————————
// Market data subscriptions
// ————————————————————————————————————————————————————————————————————————

func consumerKey(arg codec.ChannelArg) string { return arg.Channel + ":" + arg.InstID }

func (f *Facade) poolFor(channel string) *subscription.Pool {
	if strings.HasPrefix(channel, "candle") {
		return f.businessPool
	}
	return f.publicPool
}

// Subscribe arms req's channel (opening a pool connection if needed) and
// returns a Subscription whose Events channel receives every DataPoint
// until Unsubscribe is called with an equal Request.
func (f *Facade) Subscribe(req subscription.Request) (*Subscription, error) {
	arg, err := subscription.ChannelFor(req)
	if err != nil {
		return nil, err
	}

	if _, err := f.poolFor(arg.Channel).Subscribe(arg); err != nil {
		return nil, fmt.Errorf("facade: subscribe %s: %w", arg.Channel, err)
	}

	if arg.Channel == "books" {
		f.market.EnsureBook(req.InstID)
		f.market.EnsurePriceLimit(context.Background(), req.InstID)
		if _, err := f.publicPool.Subscribe(codec.ChannelArg{Channel: "price-limit", InstID: req.InstID}); err != nil {
			f.logger.Warn("price-limit subscribe failed", "instId", req.InstID, "error", err)
		}
	}

	sub := &Subscription{InstID: req.InstID, ch: make(chan DataPoint, f.cfg.WS.EventBufferSize)}
	f.addConsumer(consumerKey(arg), sub)
	return sub, nil
}

// Unsubscribe tears down every consumer registered for req and removes the
// channel subscription from its pool.
func (f *Facade) Unsubscribe(req subscription.Request) {
	arg, err := subscription.ChannelFor(req)
	if err != nil {
		return
	}
	key := consumerKey(arg)

	f.consumersMu.Lock()
	subs := f.consumers[key]
	delete(f.consumers, key)
	f.consumersMu.Unlock()
	for _, s := range subs {
		close(s.ch)
	}

	if err := f.poolFor(arg.Channel).Unsubscribe(arg); err != nil {
		f.logger.Warn("unsubscribe failed", "channel", arg.Channel, "instId", req.InstID, "error", err)
	}

	if arg.Channel == "books" {
		f.market.ReleaseBook(req.InstID)
		_ = f.publicPool.Unsubscribe(codec.ChannelArg{Channel: "price-limit", InstID: req.InstID})
	}
}

func (f *Facade) addConsumer(key string, sub *Subscription) {
	f.consumersMu.Lock()
	defer f.consumersMu.Unlock()
	f.consumers[key] = append(f.consumers[key], sub)
}

func (f *Facade) dispatch(key string, dp DataPoint) {
	f.consumersMu.RLock()
	subs := f.consumers[key]
	f.consumersMu.RUnlock()
	for _, s := range subs {
		select {
		case s.ch <- dp:
		default:
			metrics.IncDropped(key)
		}
	}
}

func (f *Facade) onBookFrame(frame codec.PushFrame) {
	bf, err := codec.DecodeBookFrame(frame)
	if err != nil {
		f.logger.Debug("decode book frame failed", "error", err)
		return
	}
	f.market.HandleBookFrame(bf)
	view := f.market.DepthView(bf.InstID, 0)
	f.dispatch("books:"+bf.InstID, DataPoint{InstID: bf.InstID, Depth: &view})
}

func (f *Facade) onTickerFrame(frame codec.PushFrame) {
	t, err := codec.DecodeTickerFrame(frame)
	if err != nil {
		f.logger.Debug("decode ticker frame failed", "error", err)
		return
	}
	f.dispatch("tickers:"+t.InstID, DataPoint{InstID: t.InstID, Ticker: &t})
}

func (f *Facade) onTradeFrame(frame codec.PushFrame) {
	trades, err := codec.DecodeTradeFrames(frame)
	if err != nil {
		f.logger.Debug("decode trade frame failed", "error", err)
		return
	}
	for _, t := range trades {
		t := t
		f.dispatch("trades:"+t.InstID, DataPoint{InstID: t.InstID, Trade: &t})
	}
}

func (f *Facade) onCandleFrame(frame codec.PushFrame) {
	instID := frame.Arg.InstID
	candles, err := codec.DecodeCandleFrame(instID, frame)
	if err != nil {
		f.logger.Debug("decode candle frame failed", "error", err)
		return
	}
	for _, c := range candles {
		c := c
		f.dispatch(frame.Arg.Channel+":"+instID, DataPoint{InstID: instID, Candle: &c})
	}
}

func (f *Facade) onPriceLimitFrame(frame codec.PushFrame) {
	state, err := codec.DecodePriceLimitFrame(frame)
	if err != nil {
		f.logger.Debug("decode price-limit frame failed", "error", err)
		return
	}
	f.market.HandlePriceLimitFrame(state)
}

// ————————————————————————————————————————————————————————————————————————
// Read-only queries
// ————————————————————————————————————————————————————————————————————————

// GetHistory fetches historical candles, or nil for an unsupported
// resolution.
func (f *Facade) GetHistory(ctx context.Context, req types.HistoryRequest) ([]types.Candle, error) {
	return f.history.Get(ctx, req)
}
