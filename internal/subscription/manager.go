// Package subscription maps an engine data request (instrument,
// resolution, tick-type) to the OKX WebSocket channel that serves it, and
// pools connections so each carries at most M subscriptions before a new
// one is opened.
package subscription

import (
	"fmt"
	"sync"

	"github.com/okx-bridge/okx/internal/codec"
	"github.com/okx-bridge/okx/internal/wsclient"
)

// TickType distinguishes what a tick-resolution request wants.
type TickType int

const (
	TickQuote TickType = iota
	TickTrade
)

// Request is one engine data subscription request.
type Request struct {
	InstID     string
	Resolution string // "tick", "depth", or a bar size like "1m", "1H", "1D"
	TickType   TickType
}

// ChannelFor resolves a Request to the OKX channel argument it maps to,
// per the request→channel table: tick+quote → tickers, tick+trade →
// trades, depth → books, any bar ≥ 1 minute → its matching candle stream.
func ChannelFor(req Request) (codec.ChannelArg, error) {
	switch req.Resolution {
	case "tick":
		if req.TickType == TickTrade {
			return codec.ChannelArg{Channel: "trades", InstID: req.InstID}, nil
		}
		return codec.ChannelArg{Channel: "tickers", InstID: req.InstID}, nil
	case "depth":
		return codec.ChannelArg{Channel: "books", InstID: req.InstID}, nil
	default:
		channel, ok := candleChannel(req.Resolution)
		if !ok {
			return codec.ChannelArg{}, fmt.Errorf("subscription: unsupported resolution %q", req.Resolution)
		}
		return codec.ChannelArg{Channel: channel, InstID: req.InstID}, nil
	}
}

var barToChannel = map[string]string{
	"1m": "candle1m", "3m": "candle3m", "5m": "candle5m", "15m": "candle15m", "30m": "candle30m",
	"1H": "candle1H", "2H": "candle2H", "4H": "candle4H",
	"6H": "candle6H", "12H": "candle12H",
	"1D": "candle1D", "1W": "candle1W", "1M": "candle1M",
}

func candleChannel(resolution string) (string, bool) {
	channel, ok := barToChannel[resolution]
	return channel, ok
}

// ValidBar reports whether resolution is a recognized bar size (≥ 1
// minute). internal/history uses this to reject sub-minute and tick
// resolutions before ever building a request, per the façade's "nil for
// unsupported requests" contract (spec.md §6).
func ValidBar(resolution string) bool {
	_, ok := barToChannel[resolution]
	return ok
}

// Pool manages a set of wsclient.Sessions, placing each subscription on the
// first session with spare capacity and opening a new one only when every
// session has reached its configured subscription limit.
type Pool struct {
	mu          sync.Mutex
	maxPerConn  int
	newSession  func() *wsclient.Session
	sessions    []*wsclient.Session
	countByConn []int
	byKey       map[string]int // subscription key -> session index
}

func subKey(arg codec.ChannelArg) string {
	return arg.Channel + ":" + arg.InstID
}

// NewPool builds a Pool. newSession constructs and starts a fresh Session;
// Pool never calls Run itself, so starting the session is newSession's job.
func NewPool(maxPerConn int, newSession func() *wsclient.Session) *Pool {
	return &Pool{maxPerConn: maxPerConn, newSession: newSession, byKey: make(map[string]int)}
}

// Subscribe adds arg to the pool, reusing capacity on an existing
// connection or opening a new one when all tracked connections are full.
// Returns the session the subscription was placed on.
func (p *Pool) Subscribe(arg codec.ChannelArg) (*wsclient.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := subKey(arg)
	if idx, ok := p.byKey[key]; ok {
		return p.sessions[idx], nil
	}

	idx := -1
	for i, count := range p.countByConn {
		if count < p.maxPerConn {
			idx = i
			break
		}
	}
	if idx == -1 {
		p.sessions = append(p.sessions, p.newSession())
		p.countByConn = append(p.countByConn, 0)
		idx = len(p.sessions) - 1
	}

	sess := p.sessions[idx]
	if err := sess.Subscribe(arg); err != nil {
		return nil, err
	}
	p.countByConn[idx]++
	p.byKey[key] = idx
	return sess, nil
}

// Unsubscribe removes arg from whichever connection carries it.
func (p *Pool) Unsubscribe(arg codec.ChannelArg) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := subKey(arg)
	idx, ok := p.byKey[key]
	if !ok {
		return nil
	}
	delete(p.byKey, key)
	p.countByConn[idx]--
	return p.sessions[idx].Unsubscribe(arg)
}

// ConnectionCount reports how many sessions the pool currently manages.
func (p *Pool) ConnectionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// CloseAll closes every connection the pool manages, for use during
// shutdown.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.sessions {
		s.Close()
	}
}

// CandleChannels lists every candle channel name the bar table maps to,
// so a session can register one handler per channel up front regardless
// of which bar sizes end up subscribed.
func CandleChannels() []string {
	out := make([]string, 0, len(barToChannel))
	for _, channel := range barToChannel {
		out = append(out, channel)
	}
	return out
}
