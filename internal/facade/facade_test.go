package facade

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okx-bridge/okx/internal/codec"
	"github.com/okx-bridge/okx/internal/config"
	"github.com/okx-bridge/okx/internal/subscription"
	"github.com/okx-bridge/okx/internal/sync2"
	"github.com/okx-bridge/okx/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Environment: "demo",
		API: config.APIConfig{
			ApiKey: "k", Secret: "s", Passphrase: "p",
			RESTBaseURL:   baseURL,
			WSPublicURL:   "ws://127.0.0.1:1",
			WSPrivateURL:  "ws://127.0.0.1:1",
			WSBusinessURL: "ws://127.0.0.1:1",
		},
		Account: config.AccountConfig{UnifiedMode: types.AccountModeSpot},
		Transport: config.TransportConfig{
			RequestTimeout:        2 * time.Second,
			OrderBucketCapacity:   10, OrderBucketRate: 10,
			AccountBucketCapacity: 10, AccountBucketRate: 10,
			PublicBucketCapacity: 10, PublicBucketRate: 10,
			ClockSkewLimit: 5 * time.Second,
		},
		WS: config.WSConfig{
			MaxSubsPerConn:    5,
			EventBufferSize:   16,
			MaxResyncFailures: 3,
			ResyncWindow:      time.Minute,
			OrphanGraceWindow: time.Second,
		},
	}
}

func newTestFacade(t *testing.T, baseURL string) *Facade {
	t.Helper()
	f, err := New(testConfig(baseURL), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func TestGetOpenOrdersDecodesWireShape(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"code": "0", "msg": "",
			"data": []map[string]string{{
				"instId": "BTC-USDT", "ordId": "o1", "clOrdId": "c1",
				"side": "buy", "ordType": "limit", "px": "100", "sz": "1", "cTime": "1700000000000",
			}},
		})
	}))
	defer srv.Close()

	f := newTestFacade(t, srv.URL)
	orders, err := f.GetOpenOrders(context.Background())
	if err != nil {
		t.Fatalf("GetOpenOrders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(orders))
	}
	o := orders[0]
	if o.ExchangeOrderID != "o1" || o.Side != types.Buy || o.Type != types.Limit {
		t.Errorf("unexpected order: %+v", o)
	}
	if !o.LimitPrice.Equal(decimal.RequireFromString("100")) {
		t.Errorf("LimitPrice not decoded")
	}
}

func TestGetAccountHoldingsMapsShortSide(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"code": "0", "msg": "",
			"data": []map[string]string{{
				"instId": "BTC-USDT-SWAP", "posSide": "short", "pos": "2", "avgPx": "50000", "upl": "-10",
			}},
		})
	}))
	defer srv.Close()

	f := newTestFacade(t, srv.URL)
	holdings, err := f.GetAccountHoldings(context.Background())
	if err != nil {
		t.Fatalf("GetAccountHoldings: %v", err)
	}
	if len(holdings) != 1 || holdings[0].Side != types.Sell {
		t.Fatalf("unexpected holdings: %+v", holdings)
	}
}

func TestGetCashBalanceFlattensDetails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"code": "0", "msg": "",
			"data": []map[string]any{{
				"details": []map[string]string{
					{"ccy": "USDT", "availBal": "100", "cashBal": "150"},
					{"ccy": "BTC", "availBal": "1", "cashBal": "1"},
				},
			}},
		})
	}))
	defer srv.Close()

	f := newTestFacade(t, srv.URL)
	balances, err := f.GetCashBalance(context.Background())
	if err != nil {
		t.Fatalf("GetCashBalance: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("got %d balances, want 2", len(balances))
	}
}

func TestEmitReleasesOrphanOnceRegistered(t *testing.T) {
	t.Parallel()

	f := newTestFacade(t, "http://127.0.0.1:1")

	raw, _ := json.Marshal([]map[string]string{{
		"instId": "BTC-USDT", "ordId": "ex1", "state": "filled", "tradeId": "t1",
		"fillPx": "100", "fillSz": "1", "accFillSz": "1",
	}})
	events := f.reconciler.Handle(codec.PushFrame{Data: raw})
	if len(events) != 0 {
		t.Fatalf("expected the fill to be held as an orphan, got %d events", len(events))
	}

	f.Emit(types.ExecutionEvent{EngineOrderID: "eng1", ExchangeOrderID: "ex1", Status: types.StatusSubmitted})

	select {
	case evt := <-f.Events():
		if evt.EngineOrderID != "eng1" {
			t.Errorf("first event EngineOrderID = %q, want eng1", evt.EngineOrderID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for submitted event")
	}

	select {
	case evt := <-f.Events():
		if evt.EngineOrderID != "eng1" || !evt.IsFill() {
			t.Errorf("released orphan = %+v, want a fill tagged eng1", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for released orphan fill")
	}
}

func TestDispatchFansOutToAllConsumers(t *testing.T) {
	t.Parallel()

	f := newTestFacade(t, "http://127.0.0.1:1")
	key := "tickers:BTC-USDT"
	sub1 := &Subscription{InstID: "BTC-USDT", ch: make(chan DataPoint, 1)}
	sub2 := &Subscription{InstID: "BTC-USDT", ch: make(chan DataPoint, 1)}
	f.addConsumer(key, sub1)
	f.addConsumer(key, sub2)

	f.dispatch(key, DataPoint{InstID: "BTC-USDT"})

	for _, s := range []*Subscription{sub1, sub2} {
		select {
		case <-s.Events():
		default:
			t.Error("expected subscriber to receive dispatched DataPoint")
		}
	}
}

func TestOnBookFrameDecodesAndDispatches(t *testing.T) {
	t.Parallel()

	f := newTestFacade(t, "http://127.0.0.1:1")
	f.market.EnsureBook("BTC-USDT")

	key := "books:BTC-USDT"
	sub := &Subscription{InstID: "BTC-USDT", ch: make(chan DataPoint, 1)}
	f.addConsumer(key, sub)

	raw, _ := json.Marshal([]map[string]any{{
		"asks": [][]string{{"100", "1", "0", "1"}},
		"bids": [][]string{{"99", "1", "0", "1"}},
		"ts":   "1700000000000",
		"seqId": 1,
		"prevSeqId": -1,
	}})
	f.onBookFrame(codec.PushFrame{Arg: codec.ChannelArg{Channel: "books", InstID: "BTC-USDT"}, Action: "snapshot", Data: raw})

	select {
	case dp := <-sub.Events():
		if dp.Depth == nil || len(dp.Depth.Asks) != 1 {
			t.Fatalf("unexpected data point: %+v", dp)
		}
	default:
		t.Fatal("expected a dispatched depth view after a snapshot frame")
	}
}

func TestSequenceGapDiscardsLadderSnapshot(t *testing.T) {
	t.Parallel()

	f := newTestFacade(t, "http://127.0.0.1:1")
	f.market.EnsureBook("BTC-USDT")

	snapshot, _ := json.Marshal([]map[string]any{{
		"asks": [][]string{{"100", "1", "0", "1"}},
		"bids": [][]string{{"99", "1", "0", "1"}},
		"ts":   "1700000000000",
		"seqId": 1, "prevSeqId": -1,
	}})
	f.onBookFrame(codec.PushFrame{Arg: codec.ChannelArg{Channel: "books", InstID: "BTC-USDT"}, Action: "snapshot", Data: snapshot})

	if _, ok := f.market.books.Snapshot("BTC-USDT"); !ok {
		t.Fatal("expected a ladder snapshot after the initial snapshot frame")
	}

	gap, _ := json.Marshal([]map[string]any{{
		"asks": [][]string{{"101", "2", "0", "1"}},
		"bids": [][]string{},
		"ts":   "1700000001000",
		"seqId": 3, "prevSeqId": 1,
	}})
	f.onBookFrame(codec.PushFrame{Arg: codec.ChannelArg{Channel: "books", InstID: "BTC-USDT"}, Action: "update", Data: gap})

	if got := f.market.books.GetState("BTC-USDT"); got != sync2.Resyncing {
		t.Fatalf("state after gap = %v, want Resyncing", got)
	}
	if ladder, _ := f.market.books.Snapshot("BTC-USDT"); ladder != nil {
		t.Fatalf("expected the stale ladder snapshot to be discarded on resync, got %+v", ladder)
	}
}

func TestUnsubscribeClosesConsumerChannels(t *testing.T) {
	t.Parallel()

	f := newTestFacade(t, "http://127.0.0.1:1")
	req := subscription.Request{InstID: "BTC-USDT", Resolution: "tick", TickType: subscription.TickQuote}
	arg, err := subscription.ChannelFor(req)
	if err != nil {
		t.Fatalf("ChannelFor: %v", err)
	}
	sub := &Subscription{InstID: "BTC-USDT", ch: make(chan DataPoint, 1)}
	f.addConsumer(consumerKey(arg), sub)

	f.Unsubscribe(req)

	if _, open := <-sub.ch; open {
		t.Error("expected consumer channel to be closed after Unsubscribe")
	}
}
