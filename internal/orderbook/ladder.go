package orderbook

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okx-bridge/okx/pkg/types"
)

// level is one price level: the parsed size plus the exact lexical strings
// OKX sent, since the checksum protocol hashes the exchange's own
// formatting rather than a re-serialized decimal.
type level struct {
	Price    decimal.Decimal
	Size     decimal.Decimal
	PriceStr string
	SizeStr  string
}

// Ladder is a full order book for one instrument: two red-black trees of
// price levels, bids descending and asks ascending; each tree caches its
// best node, so the best price is read without a walk.
type Ladder struct {
	mu       sync.RWMutex
	instID   string
	bids     *rbTree
	asks     *rbTree
	lastSeq  int64
	baseline bool // true once a snapshot has been applied
}

// NewLadder creates an empty ladder for instID.
func NewLadder(instID string) *Ladder {
	return &Ladder{
		instID: instID,
		bids:   newRBTree(true),
		asks:   newRBTree(false),
	}
}

// ApplySnapshot replaces the entire ladder with the frame's levels.
func (l *Ladder) ApplySnapshot(frame types.OrderBookUpdateFrame) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.bids = newRBTree(true)
	l.asks = newRBTree(false)
	for _, row := range frame.Bids {
		l.bids.Upsert(toLevel(row))
	}
	for _, row := range frame.Asks {
		l.asks.Upsert(toLevel(row))
	}
	l.lastSeq = frame.SeqID
	l.baseline = true
}

// ApplyDelta merges an incremental update into the ladder. A level whose
// Size is zero removes that price; malformed rows were already dropped by
// the codec layer. Returns whether the best bid or ask changed.
func (l *Ladder) ApplyDelta(frame types.OrderBookUpdateFrame) (bestChanged bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prevBid, prevAsk := l.bids.Best(), l.asks.Best()

	for _, row := range frame.Bids {
		applyRow(l.bids, row)
	}
	for _, row := range frame.Asks {
		applyRow(l.asks, row)
	}
	l.lastSeq = frame.SeqID

	newBid, newAsk := l.bids.Best(), l.asks.Best()
	return !samePrice(prevBid, newBid) || !samePrice(prevAsk, newAsk)
}

func applyRow(tree *rbTree, row types.RawLevel) {
	if row.Size.IsZero() {
		tree.Delete(row.Price)
		return
	}
	tree.Upsert(toLevel(row))
}

func toLevel(row types.RawLevel) *level {
	return &level{Price: row.Price, Size: row.Size, PriceStr: row.PriceStr, SizeStr: row.SizeStr}
}

func samePrice(a, b *level) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Price.Equal(b.Price)
}

// HasBaseline reports whether a snapshot has been applied.
func (l *Ladder) HasBaseline() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.baseline
}

// LastSeq returns the sequence id of the most recently applied frame.
func (l *Ladder) LastSeq() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastSeq
}

// BestBid returns the current best bid, or nil if the book has no bids.
func (l *Ladder) BestBid() *types.DepthLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return toDepthLevel(l.bids.Best())
}

// BestAsk returns the current best ask, or nil if the book has no asks.
func (l *Ladder) BestAsk() *types.DepthLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return toDepthLevel(l.asks.Best())
}

func toDepthLevel(lvl *level) *types.DepthLevel {
	if lvl == nil {
		return nil
	}
	return &types.DepthLevel{Price: lvl.Price, Size: lvl.Size}
}

// ToDepthView returns an immutable, copy-on-read snapshot with up to n
// levels per side, mid and spread computed from the top of book.
func (l *Ladder) ToDepthView(n int) types.DepthView {
	l.mu.RLock()
	defer l.mu.RUnlock()

	bids := topN(l.bids, n)
	asks := topN(l.asks, n)

	view := types.DepthView{
		InstID:    l.instID,
		Bids:      bids,
		Asks:      asks,
		Levels:    maxInt(len(bids), len(asks)),
		Timestamp: time.Now().UnixMilli(),
	}
	if len(bids) > 0 && len(asks) > 0 {
		mid := bids[0].Price.Add(asks[0].Price).Div(decimal.NewFromInt(2))
		view.Mid = mid
		view.Spread = asks[0].Price.Sub(bids[0].Price)
	}
	return view
}

// topN collects up to n levels from tree, best-first. n <= 0 means no
// limit — callers pass 0 when they need the whole ladder (e.g. walking
// every ask to resolve a market buy).
func topN(tree *rbTree, n int) []types.DepthLevel {
	out := make([]types.DepthLevel, 0, maxInt(n, 0))
	tree.ForEach(func(lvl *level) bool {
		out = append(out, types.DepthLevel{Price: lvl.Price, Size: lvl.Size})
		return n <= 0 || len(out) < n
	})
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// topRawBids returns the top n bid levels in their original lexical form,
// needed only by the checksum computation.
func (l *Ladder) topRawBids(n int) []level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return topRaw(l.bids, n)
}

func (l *Ladder) topRawAsks(n int) []level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return topRaw(l.asks, n)
}

func topRaw(tree *rbTree, n int) []level {
	out := make([]level, 0, n)
	tree.ForEach(func(lvl *level) bool {
		out = append(out, *lvl)
		return len(out) < n
	})
	return out
}
