// Package reconciler consumes the private order channel and turns each
// frame into an ExecutionEvent, deduplicating on (orderId, tradeId) and
// holding orphan fills — frames for an order the reconciler hasn't yet
// learned about from the place response — for a grace window in case the
// two race. The orphan map holds one pending event per exchange order id
// (the latest frame wins) and has no size cap; entries past the grace
// window are dropped only when ReleaseOrphan is called for that order.
package reconciler

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/okx-bridge/okx/internal/codec"
	"github.com/okx-bridge/okx/pkg/types"
)

// orderFrame is the shape of one push on the "orders" private channel.
type orderFrame struct {
	InstID      string        `json:"instId"`
	OrdID       string        `json:"ordId"`
	ClOrdID     string        `json:"clOrdId"`
	State       string        `json:"state"`
	TradeID     string        `json:"tradeId"`
	FillPx      codec.Number  `json:"fillPx"`
	FillSz      codec.Number  `json:"fillSz"`
	AccFillSz   codec.Number  `json:"accFillSz"`
	Fee         codec.Number  `json:"fee"`
	FeeCcy      string        `json:"feeCcy"`
	UTime       codec.Number  `json:"uTime"`
	Code        string        `json:"code"`
	Msg         string        `json:"msg"`
}

// Registry maps an exchange order id back to the bridge's engine order id,
// populated by internal/pipeline right after a successful place response.
type Registry interface {
	EngineOrderID(exchangeOrderID string) (string, bool)
}

type orphan struct {
	event    types.ExecutionEvent
	arrived  time.Time
}

// Reconciler turns raw private "orders" pushes into ExecutionEvents.
type Reconciler struct {
	registry    Registry
	graceWindow time.Duration

	mu       sync.Mutex
	seen     map[string]struct{} // dedup key: orderId|tradeId, or orderId|state:<state> for frames without a tradeId
	seenOrd  map[string]bool     // orders already Submitted at least once
	orphans  map[string]orphan   // keyed by exchange order id
}

// New builds a Reconciler. graceWindow bounds how long an orphan fill is
// retained while waiting for the order to be registered.
func New(registry Registry, graceWindow time.Duration) *Reconciler {
	return &Reconciler{
		registry:    registry,
		graceWindow: graceWindow,
		seen:        make(map[string]struct{}),
		seenOrd:     make(map[string]bool),
		orphans:     make(map[string]orphan),
	}
}

// Handle decodes one push frame from the "orders" channel and returns the
// resulting execution events (zero, one, or more if the frame carried
// multiple rows), dropping duplicates.
func (r *Reconciler) Handle(frame codec.PushFrame) []types.ExecutionEvent {
	var rows []orderFrame
	if err := json.Unmarshal(frame.Data, &rows); err != nil {
		return nil
	}

	var out []types.ExecutionEvent
	for _, row := range rows {
		if evt, ok := r.handleRow(row); ok {
			out = append(out, evt)
		}
	}
	return out
}

func (r *Reconciler) handleRow(row orderFrame) (types.ExecutionEvent, bool) {
	// Fills dedup on (orderId, tradeId); status-only frames (no tradeId)
	// dedup on (orderId, state) instead, so a "canceled" frame is never
	// collapsed with an earlier "live" frame that shares the empty tradeId.
	dedupKey := row.OrdID + "|" + row.TradeID
	if row.TradeID == "" {
		dedupKey = row.OrdID + "|state:" + row.State
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.seen[dedupKey]; dup {
		return types.ExecutionEvent{}, false
	}
	r.seen[dedupKey] = struct{}{}

	status := statusFor(row, r.seenOrd[row.OrdID])
	r.seenOrd[row.OrdID] = true

	evt := types.ExecutionEvent{
		ExchangeOrderID: row.OrdID,
		Status:          status,
		FilledQtyCum:    row.AccFillSz.Decimal,
		Fee:             row.Fee.Decimal,
		FeeCurrency:     row.FeeCcy,
		Timestamp:       time.UnixMilli(row.UTime.IntPart()),
	}
	if row.TradeID != "" {
		evt.LastFillPrice = row.FillPx.Decimal
		evt.LastFillQty = row.FillSz.Decimal
	}

	engineID, ok := r.registry.EngineOrderID(row.OrdID)
	if !ok {
		r.orphans[row.OrdID] = orphan{event: evt, arrived: time.Now()}
		return types.ExecutionEvent{}, false
	}
	evt.EngineOrderID = engineID
	return evt, true
}

// ReleaseOrphan resolves an orphaned fill once the order becomes known,
// returning the event it was holding (if any, and if still within the
// grace window).
func (r *Reconciler) ReleaseOrphan(exchangeOrderID, engineOrderID string) (types.ExecutionEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orphans[exchangeOrderID]
	if !ok {
		return types.ExecutionEvent{}, false
	}
	delete(r.orphans, exchangeOrderID)
	if time.Since(o.arrived) > r.graceWindow {
		return types.ExecutionEvent{}, false
	}
	o.event.EngineOrderID = engineOrderID
	return o.event, true
}

func statusFor(row orderFrame, alreadySeen bool) types.OrderStatus {
	switch row.State {
	case "live", "partially_filled":
		if !alreadySeen {
			return types.StatusSubmitted
		}
		return types.StatusPartialFill
	case "filled":
		return types.StatusFilled
	case "canceled":
		return types.StatusCanceled
	default:
		return types.StatusInvalid
	}
}

