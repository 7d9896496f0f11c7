package sync2

import (
	"context"
	"testing"
	"time"
)

func TestSetStateNotifiesAwaiter(t *testing.T) {
	t.Parallel()

	s := New[string, int](10, nil)
	done := make(chan error, 1)
	go func() {
		done <- s.AwaitState(context.Background(), "BTC-USDT", Live, time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	s.SetState("BTC-USDT", AwaitingBaseline, 0)
	s.SetState("BTC-USDT", Live, 1)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("AwaitState returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for AwaitState")
	}
	if got := s.GetState("BTC-USDT"); got != Live {
		t.Errorf("GetState = %v, want Live", got)
	}
}

func TestAwaitStateTimesOut(t *testing.T) {
	t.Parallel()

	s := New[string, int](10, nil)
	err := s.AwaitState(context.Background(), "ETH-USDT", Live, 30*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestAwaitStateRespectsContextCancel(t *testing.T) {
	t.Parallel()

	s := New[string, int](10, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.AwaitState(ctx, "ETH-USDT", Live, time.Second)
	if err == nil {
		t.Fatal("expected context-cancelled error")
	}
}

func TestBufferDropsPastCapacityAndCountsMetric(t *testing.T) {
	t.Parallel()

	var lastDroppedKey string
	s := New[string, int](2, func(k string) string {
		lastDroppedKey = k
		return k
	})

	s.Buffer("BTC-USDT", "a")
	s.Buffer("BTC-USDT", "b")
	s.Buffer("BTC-USDT", "c") // dropped

	got := s.DrainBuffer("BTC-USDT")
	if len(got) != 2 {
		t.Fatalf("got %d buffered events, want 2", len(got))
	}
	if lastDroppedKey != "BTC-USDT" {
		t.Errorf("expected dropped-event metric callback invoked with key BTC-USDT")
	}

	// buffer drained
	if got := s.DrainBuffer("BTC-USDT"); len(got) != 0 {
		t.Errorf("expected empty buffer after drain, got %d", len(got))
	}
}

func TestSetStateSilentDoesNotNotify(t *testing.T) {
	t.Parallel()

	s := New[string, int](10, nil)
	s.SetStateSilent("BTC-USDT", Resyncing)
	if got := s.GetState("BTC-USDT"); got != Resyncing {
		t.Errorf("GetState = %v, want Resyncing", got)
	}
}
