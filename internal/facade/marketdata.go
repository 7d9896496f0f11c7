package facade

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/okx-bridge/okx/internal/config"
	"github.com/okx-bridge/okx/internal/metrics"
	"github.com/okx-bridge/okx/internal/orderbook"
	"github.com/okx-bridge/okx/internal/sync2"
	"github.com/okx-bridge/okx/internal/transport"
	"github.com/okx-bridge/okx/pkg/types"
)

// marketData instantiates the generic C5 synchronizer (internal/sync2)
// twice — once keyed by instID over *orderbook.Ladder, once over
// types.PriceLimitState — implementing the state machine of spec.md §4.2
// for both of this bridge's live-state consumers.
//
// The order book's baseline is the first snapshot-tagged WS "books" frame
// after (re)subscription (spec.md §3's "first frame after (re)subscription
// ... fully replaces the ladder"), not a separate REST round trip — OKX's
// books channel always opens with one. The price-limit baseline is a true
// REST fetch, since price-limit has no snapshot/delta distinction: every
// push (and the baseline read) is a full replacement of (buyLmt, sellLmt,
// enabled).
type marketData struct {
	client      *transport.Client
	books       *sync2.Synchronizer[string, *orderbook.Ladder]
	priceLimits *sync2.Synchronizer[string, types.PriceLimitState]

	mu          sync.Mutex
	resync      map[string]*resyncTracker
	maxFailures int
	window      time.Duration

	logger *slog.Logger
}

type resyncTracker struct {
	count       int
	windowStart time.Time
}

func newMarketData(client *transport.Client, cfg config.WSConfig, logger *slog.Logger) *marketData {
	logger = logger.With("component", "marketdata")
	return &marketData{
		client:      client,
		books:       sync2.New[string, *orderbook.Ladder](cfg.EventBufferSize, func(k string) string { return "book:" + k }),
		priceLimits: sync2.New[string, types.PriceLimitState](cfg.EventBufferSize, func(k string) string { return "pricelimit:" + k }),
		resync:      make(map[string]*resyncTracker),
		maxFailures: max(cfg.MaxResyncFailures, 1),
		window:      cfg.ResyncWindow,
		logger:      logger,
	}
}

// EnsureBook arms the synchronizer for instID so incoming WS frames are
// buffered (rather than dropped as belonging to no one) while we await the
// first snapshot.
func (m *marketData) EnsureBook(instID string) {
	if m.books.GetState(instID) != sync2.Uninitialized {
		return
	}
	m.books.SetStateSilent(instID, sync2.AwaitingBaseline)
}

// ReleaseBook tears down a ladder on unsubscribe.
func (m *marketData) ReleaseBook(instID string) {
	m.books.SetState(instID, sync2.Uninitialized, nil)
	m.books.DrainBuffer(instID)
}

// HandleBookFrame applies one decoded "books" push to instID's ladder,
// driving the AwaitingBaseline/Resyncing → Live transitions and detecting
// sequence gaps and checksum mismatches that force a resync.
func (m *marketData) HandleBookFrame(frame types.OrderBookUpdateFrame) {
	instID := frame.InstID
	switch m.books.GetState(instID) {
	case sync2.Uninitialized:
		return
	case sync2.AwaitingBaseline, sync2.Resyncing:
		if !frame.IsSnapshot {
			m.books.Buffer(instID, frame)
			return
		}
		ladder := orderbook.NewLadder(instID)
		ladder.ApplySnapshot(frame)
		for _, raw := range m.books.DrainBuffer(instID) {
			if bf, ok := raw.(types.OrderBookUpdateFrame); ok && bf.SeqID > frame.SeqID {
				m.applyDelta(instID, ladder, bf)
			}
		}
		m.resetResync(instID)
		m.books.SetState(instID, sync2.Live, ladder)
	case sync2.Live:
		ladder, ok := m.books.Snapshot(instID)
		if !ok {
			return
		}
		if frame.IsSnapshot {
			ladder.ApplySnapshot(frame)
			return
		}
		m.applyDelta(instID, ladder, frame)
	}
}

// applyDelta applies frame to ladder in sequence, or triggers a resync on
// a detected gap or checksum mismatch (spec.md §4.2, §4.1.1).
func (m *marketData) applyDelta(instID string, ladder *orderbook.Ladder, frame types.OrderBookUpdateFrame) {
	last := ladder.LastSeq()
	if frame.SeqID <= last {
		return // stale duplicate
	}
	if frame.SeqID > last+1 {
		m.triggerResync(instID)
		return
	}
	ladder.ApplyDelta(frame)
	if frame.Checksum != nil && *frame.Checksum != 0 && !ladder.VerifyChecksum(*frame.Checksum) {
		metrics.IncChecksumMismatch(instID)
		m.triggerResync(instID)
	}
}

func (m *marketData) triggerResync(instID string) {
	m.mu.Lock()
	tr, ok := m.resync[instID]
	now := time.Now()
	if !ok || now.Sub(tr.windowStart) > m.window {
		tr = &resyncTracker{windowStart: now}
		m.resync[instID] = tr
	}
	tr.count++
	failed := tr.count > m.maxFailures
	m.mu.Unlock()

	metrics.IncResync(instID)
	if failed {
		m.books.SetState(instID, sync2.Failed, nil)
		m.logger.Error("order book resync failures exhausted", "instId", instID)
		return
	}
	// Discard the current ladder (spec.md §4.2: gap/checksum-mismatch
	// "discard current state") rather than leaving the stale snapshot
	// reachable; the AwaitingBaseline/Resyncing state gate already hides
	// it from readers, but a new baseline should never be built on top
	// of the superseded one.
	m.books.SetState(instID, sync2.Resyncing, nil)
}

func (m *marketData) resetResync(instID string) {
	m.mu.Lock()
	delete(m.resync, instID)
	m.mu.Unlock()
}

// AsksSnapshot implements pipeline.Books: the live ask ladder in ascending
// price order, or nil if the book isn't Live.
func (m *marketData) AsksSnapshot(instID string) []types.DepthLevel {
	if m.books.GetState(instID) != sync2.Live {
		return nil
	}
	ladder, ok := m.books.Snapshot(instID)
	if !ok {
		return nil
	}
	return ladder.ToDepthView(0).Asks
}

// DepthView returns a full immutable snapshot of instID's ladder, or a
// zero-value view (Suspect marked) if the book isn't Live.
func (m *marketData) DepthView(instID string, n int) types.DepthView {
	if m.books.GetState(instID) != sync2.Live {
		return types.DepthView{InstID: instID, Suspect: true}
	}
	ladder, ok := m.books.Snapshot(instID)
	if !ok {
		return types.DepthView{InstID: instID, Suspect: true}
	}
	return ladder.ToDepthView(n)
}

// EnsurePriceLimit fetches the REST baseline once and arms the key for
// live WS replacement pushes.
func (m *marketData) EnsurePriceLimit(ctx context.Context, instID string) {
	if m.priceLimits.GetState(instID) != sync2.Uninitialized {
		return
	}
	m.priceLimits.SetStateSilent(instID, sync2.AwaitingBaseline)
	go m.fetchPriceLimitBaseline(ctx, instID)
}

func (m *marketData) fetchPriceLimitBaseline(ctx context.Context, instID string) {
	state, err := fetchPriceLimit(ctx, m.client, instID)
	if err != nil {
		m.logger.Warn("price-limit baseline fetch failed", "instId", instID, "error", err)
		m.priceLimits.SetStateSilent(instID, sync2.Resyncing)
		return
	}
	m.priceLimits.SetState(instID, sync2.Live, state)
}

// HandlePriceLimitFrame replaces instID's price-limit state from a live
// "price-limit" push; the channel carries no sequence id, so every push is
// simply the new authoritative value.
func (m *marketData) HandlePriceLimitFrame(state types.PriceLimitState) {
	if m.priceLimits.GetState(state.InstID) == sync2.Uninitialized {
		return
	}
	m.priceLimits.SetState(state.InstID, sync2.Live, state)
}

// PriceLimit implements pipeline.Books.
func (m *marketData) PriceLimit(instID string) types.PriceLimitState {
	state, ok := m.priceLimits.Snapshot(instID)
	if !ok {
		return types.PriceLimitState{InstID: instID}
	}
	return state
}

