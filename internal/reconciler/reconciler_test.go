package reconciler

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okx-bridge/okx/internal/codec"
	"github.com/okx-bridge/okx/pkg/types"
)

type fakeRegistry struct {
	known map[string]string
}

func (f fakeRegistry) EngineOrderID(exchangeOrderID string) (string, bool) {
	id, ok := f.known[exchangeOrderID]
	return id, ok
}

func pushFrame(t *testing.T, rows any) codec.PushFrame {
	t.Helper()
	data, err := json.Marshal(rows)
	if err != nil {
		t.Fatalf("marshal rows: %v", err)
	}
	return codec.PushFrame{Arg: codec.ChannelArg{Channel: "orders"}, Data: data}
}

func TestHandleFirstSightingIsSubmitted(t *testing.T) {
	t.Parallel()

	reg := fakeRegistry{known: map[string]string{"ord1": "engine1"}}
	r := New(reg, time.Second)

	frame := pushFrame(t, []map[string]string{{"ordId": "ord1", "state": "live"}})
	events := r.Handle(frame)
	if len(events) != 1 || events[0].Status != types.StatusSubmitted {
		t.Fatalf("got %+v, want one Submitted event", events)
	}
}

func TestHandleSecondSightingIsPartialFill(t *testing.T) {
	t.Parallel()

	reg := fakeRegistry{known: map[string]string{"ord1": "engine1"}}
	r := New(reg, time.Second)

	r.Handle(pushFrame(t, []map[string]string{{"ordId": "ord1", "state": "live"}}))
	events := r.Handle(pushFrame(t, []map[string]string{{"ordId": "ord1", "state": "partially_filled", "tradeId": "t1", "fillPx": "100", "fillSz": "1"}}))

	if len(events) != 1 || events[0].Status != types.StatusPartialFill {
		t.Fatalf("got %+v, want one PartialFill event", events)
	}
	if !events[0].IsFill() {
		t.Error("expected IsFill() true when tradeId present")
	}
}

func TestHandleDedupesOnOrderAndTradeID(t *testing.T) {
	t.Parallel()

	reg := fakeRegistry{known: map[string]string{"ord1": "engine1"}}
	r := New(reg, time.Second)

	frame := pushFrame(t, []map[string]string{{"ordId": "ord1", "state": "filled", "tradeId": "t1"}})
	first := r.Handle(frame)
	second := r.Handle(frame)

	if len(first) != 1 {
		t.Fatalf("expected 1 event on first delivery, got %d", len(first))
	}
	if len(second) != 0 {
		t.Fatalf("expected 0 events on duplicate delivery, got %d", len(second))
	}
}

func TestHandleCanceledAfterLiveIsNotDedupedAway(t *testing.T) {
	t.Parallel()

	reg := fakeRegistry{known: map[string]string{"ord1": "engine1"}}
	r := New(reg, time.Second)

	live := r.Handle(pushFrame(t, []map[string]string{{"ordId": "ord1", "state": "live"}}))
	if len(live) != 1 || live[0].Status != types.StatusSubmitted {
		t.Fatalf("got %+v, want one Submitted event", live)
	}

	canceled := r.Handle(pushFrame(t, []map[string]string{{"ordId": "ord1", "state": "canceled"}}))
	if len(canceled) != 1 || canceled[0].Status != types.StatusCanceled {
		t.Fatalf("got %+v, want one Canceled event (must not be deduped against the earlier live frame)", canceled)
	}
}

func TestHandleOrphanFillHeldThenReleased(t *testing.T) {
	t.Parallel()

	reg := fakeRegistry{known: map[string]string{}}
	r := New(reg, time.Minute)

	frame := pushFrame(t, []map[string]string{{"ordId": "ord-unknown", "state": "filled", "tradeId": "t1"}})
	events := r.Handle(frame)
	if len(events) != 0 {
		t.Fatalf("expected orphan fill held, got %d events", len(events))
	}

	evt, ok := r.ReleaseOrphan("ord-unknown", "engine-later")
	if !ok {
		t.Fatal("expected orphan to be released")
	}
	if evt.EngineOrderID != "engine-later" || evt.Status != types.StatusFilled {
		t.Errorf("got %+v", evt)
	}
}

func TestReleaseOrphanExpiresPastGraceWindow(t *testing.T) {
	t.Parallel()

	reg := fakeRegistry{known: map[string]string{}}
	r := New(reg, time.Nanosecond)

	r.Handle(pushFrame(t, []map[string]string{{"ordId": "ord-unknown", "state": "filled", "tradeId": "t1"}}))
	time.Sleep(5 * time.Millisecond)

	if _, ok := r.ReleaseOrphan("ord-unknown", "engine-later"); ok {
		t.Error("expected orphan to have expired past grace window")
	}
}
