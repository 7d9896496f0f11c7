// Package wsclient implements a reconnecting OKX v5 WebSocket session.
// One Session manages a single connection (public, private, or business);
// the private session additionally performs the login handshake before
// any subscription is sent. Incoming pushes are dispatched by arg.channel
// to handler funcs registered via Handle, rather than by a fixed set of
// typed channels — new channels can be wired in without touching Session.
package wsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okx-bridge/okx/internal/codec"
	"github.com/okx-bridge/okx/internal/config"
	"github.com/okx-bridge/okx/internal/metrics"
	"github.com/okx-bridge/okx/internal/transport"
)

// Kind distinguishes the three WS endpoint families.
type Kind string

const (
	Public   Kind = "public"
	Private  Kind = "private"
	Business Kind = "business"
)

// Handler processes one decoded push frame for a subscribed channel.
type Handler func(codec.PushFrame)

// Session manages a single WebSocket connection with auto-reconnect,
// re-subscription, and (for Private) login.
type Session struct {
	url    string
	kind   Kind
	signer *transport.Signer
	cfg    config.WSConfig

	conn   *websocket.Conn
	connMu sync.Mutex

	subsMu sync.RWMutex
	subs   map[string]codec.ChannelArg // keyed by "channel:instId"

	handlersMu sync.RWMutex
	handlers   map[string]Handler // keyed by channel name

	logger *slog.Logger
}

// New builds a Session for the given endpoint kind. signer is nil for
// Public sessions.
func New(kind Kind, url string, signer *transport.Signer, cfg config.WSConfig, logger *slog.Logger) *Session {
	return &Session{
		url:      url,
		kind:     kind,
		signer:   signer,
		cfg:      cfg,
		subs:     make(map[string]codec.ChannelArg),
		handlers: make(map[string]Handler),
		logger:   logger.With("component", "wsclient", "kind", string(kind)),
	}
}

// Handle registers the handler invoked for every push on the named channel.
func (s *Session) Handle(channel string, h Handler) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers[channel] = h
}

func subKey(arg codec.ChannelArg) string {
	return arg.Channel + ":" + arg.InstID + ":" + arg.InstType + ":" + arg.Uid
}

// Subscribe adds a channel subscription, sending it immediately if
// connected and re-sending it automatically on reconnect.
func (s *Session) Subscribe(arg codec.ChannelArg) error {
	s.subsMu.Lock()
	s.subs[subKey(arg)] = arg
	s.subsMu.Unlock()
	return s.sendOp("subscribe", []codec.ChannelArg{arg})
}

// Unsubscribe removes a channel subscription.
func (s *Session) Unsubscribe(arg codec.ChannelArg) error {
	s.subsMu.Lock()
	delete(s.subs, subKey(arg))
	s.subsMu.Unlock()
	return s.sendOp("unsubscribe", []codec.ChannelArg{arg})
}

// Run connects and maintains the connection with exponential backoff
// reconnection until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	backoff := s.cfg.ReconnectMinBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	for {
		err := s.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		metrics.IncWSReconnect(string(s.kind))
		s.logger.Warn("websocket disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if max := s.cfg.ReconnectMaxBackoff; max > 0 && backoff > max {
			backoff = max
		}
	}
}

// Close gracefully closes the connection.
func (s *Session) Close() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Session) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	defer func() {
		s.connMu.Lock()
		conn.Close()
		s.conn = nil
		s.connMu.Unlock()
	}()

	if s.kind == Private {
		if err := s.login(ctx); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	if err := s.resubscribeAll(); err != nil {
		return fmt.Errorf("resubscribe: %w", err)
	}

	s.logger.Info("websocket connected", "url", s.url)

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go s.pingLoop(pingCtx)

	readTimeout := s.cfg.PingInterval * time.Duration(max(s.cfg.PongGraceMissed, 1)+1)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if string(msg) == "pong" {
			continue
		}
		s.dispatch(msg)
	}
}

func (s *Session) login(ctx context.Context) error {
	apiKey, passphrase, ts, sign := s.signer.WSLoginArgs(time.Now())
	msg := map[string]any{
		"op": "login",
		"args": []map[string]string{{
			"apiKey":     apiKey,
			"passphrase": passphrase,
			"timestamp":  ts,
			"sign":       sign,
		}},
	}
	if err := s.writeJSON(msg); err != nil {
		return err
	}

	timeout := s.cfg.LoginTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	conn.SetReadDeadline(time.Now().Add(timeout))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read login ack: %w", err)
	}
	var ack codec.PushFrame
	if err := json.Unmarshal(raw, &ack); err != nil {
		return fmt.Errorf("decode login ack: %w", err)
	}
	if ack.Event != "login" || ack.Code != "0" {
		return fmt.Errorf("login rejected: event=%s code=%s msg=%s", ack.Event, ack.Code, ack.Msg)
	}
	return nil
}

func (s *Session) resubscribeAll() error {
	s.subsMu.RLock()
	args := make([]codec.ChannelArg, 0, len(s.subs))
	for _, arg := range s.subs {
		args = append(args, arg)
	}
	s.subsMu.RUnlock()
	if len(args) == 0 {
		return nil
	}
	return s.sendOp("subscribe", args)
}

func (s *Session) sendOp(op string, args []codec.ChannelArg) error {
	if len(args) == 0 {
		return nil
	}
	// While disconnected the op is not sent; resubscribeAll sends every
	// tracked subscription once the connection is (re)established.
	s.connMu.Lock()
	connected := s.conn != nil
	s.connMu.Unlock()
	if !connected {
		return nil
	}
	return s.writeJSON(map[string]any{"op": op, "args": args})
}

func (s *Session) dispatch(data []byte) {
	var frame codec.PushFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.logger.Debug("ignoring non-json ws message", "data", string(data))
		return
	}
	if frame.IsAck() {
		if frame.Event == "error" {
			s.logger.Warn("ws ack error", "code", frame.Code, "msg", frame.Msg)
		}
		return
	}
	if frame.Arg.Channel == "" {
		s.logger.Debug("push frame missing arg.channel")
		return
	}

	s.handlersMu.RLock()
	h, ok := s.handlers[frame.Arg.Channel]
	s.handlersMu.RUnlock()
	if !ok {
		s.logger.Debug("no handler registered for channel", "channel", frame.Arg.Channel)
		return
	}
	h(frame)
}

func (s *Session) pingLoop(ctx context.Context) {
	interval := s.cfg.PingInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.writeMessage(websocket.TextMessage, []byte("ping")); err != nil {
				s.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

func (s *Session) writeJSON(v any) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteJSON(v)
}

func (s *Session) writeMessage(msgType int, data []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteMessage(msgType, data)
}
