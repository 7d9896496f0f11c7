package subscription

import (
	"log/slog"
	"os"
	"testing"

	"github.com/okx-bridge/okx/internal/codec"
	"github.com/okx-bridge/okx/internal/config"
	"github.com/okx-bridge/okx/internal/wsclient"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestSession() *wsclient.Session {
	return wsclient.New(wsclient.Public, "ws://127.0.0.1:1", nil, config.WSConfig{}, testLogger())
}

func TestChannelForTickQuote(t *testing.T) {
	t.Parallel()
	arg, err := ChannelFor(Request{InstID: "BTC-USDT", Resolution: "tick", TickType: TickQuote})
	if err != nil {
		t.Fatalf("ChannelFor: %v", err)
	}
	if arg.Channel != "tickers" || arg.InstID != "BTC-USDT" {
		t.Errorf("got %+v", arg)
	}
}

func TestChannelForTickTrade(t *testing.T) {
	t.Parallel()
	arg, err := ChannelFor(Request{InstID: "BTC-USDT", Resolution: "tick", TickType: TickTrade})
	if err != nil {
		t.Fatalf("ChannelFor: %v", err)
	}
	if arg.Channel != "trades" {
		t.Errorf("got %+v", arg)
	}
}

func TestChannelForDepth(t *testing.T) {
	t.Parallel()
	arg, err := ChannelFor(Request{InstID: "BTC-USDT", Resolution: "depth"})
	if err != nil {
		t.Fatalf("ChannelFor: %v", err)
	}
	if arg.Channel != "books" {
		t.Errorf("got %+v", arg)
	}
}

func TestChannelForCandleBar(t *testing.T) {
	t.Parallel()
	arg, err := ChannelFor(Request{InstID: "BTC-USDT", Resolution: "1H"})
	if err != nil {
		t.Fatalf("ChannelFor: %v", err)
	}
	if arg.Channel != "candle1H" {
		t.Errorf("got %+v", arg)
	}
}

func TestChannelForUnsupportedResolution(t *testing.T) {
	t.Parallel()
	_, err := ChannelFor(Request{InstID: "BTC-USDT", Resolution: "9x"})
	if err == nil {
		t.Fatal("expected error for unsupported resolution")
	}
}

func TestPoolOpensNewConnectionWhenSaturated(t *testing.T) {
	t.Parallel()

	var built int
	pool := NewPool(2, func() *wsclient.Session {
		built++
		return newTestSession()
	})

	subs := []codec.ChannelArg{
		{Channel: "tickers", InstID: "A"},
		{Channel: "tickers", InstID: "B"},
		{Channel: "tickers", InstID: "C"},
	}
	for _, arg := range subs {
		if _, err := pool.Subscribe(arg); err != nil {
			t.Fatalf("Subscribe(%+v): %v", arg, err)
		}
	}

	if pool.ConnectionCount() != 2 {
		t.Fatalf("ConnectionCount = %d, want 2 (2 subs on first conn, 1 on second)", pool.ConnectionCount())
	}
	if built != 2 {
		t.Fatalf("built %d sessions, want 2", built)
	}
}

func TestPoolSubscribeIsIdempotentForSameChannel(t *testing.T) {
	t.Parallel()

	pool := NewPool(50, func() *wsclient.Session {
		return newTestSession()
	})

	arg := codec.ChannelArg{Channel: "books", InstID: "BTC-USDT"}
	if _, err := pool.Subscribe(arg); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := pool.Subscribe(arg); err != nil {
		t.Fatalf("Subscribe (second): %v", err)
	}
	if pool.ConnectionCount() != 1 {
		t.Fatalf("ConnectionCount = %d, want 1 (re-subscribe must not open a new connection)", pool.ConnectionCount())
	}
}

func TestPoolUnsubscribeFreesCapacity(t *testing.T) {
	t.Parallel()

	pool := NewPool(1, func() *wsclient.Session {
		return newTestSession()
	})

	a := codec.ChannelArg{Channel: "tickers", InstID: "A"}
	b := codec.ChannelArg{Channel: "tickers", InstID: "B"}

	if _, err := pool.Subscribe(a); err != nil {
		t.Fatalf("Subscribe(a): %v", err)
	}
	if err := pool.Unsubscribe(a); err != nil {
		t.Fatalf("Unsubscribe(a): %v", err)
	}
	if _, err := pool.Subscribe(b); err != nil {
		t.Fatalf("Subscribe(b): %v", err)
	}

	if pool.ConnectionCount() != 1 {
		t.Fatalf("ConnectionCount = %d, want 1 (freed slot reused)", pool.ConnectionCount())
	}
}
