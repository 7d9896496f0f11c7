package codec

import "encoding/json"

// Envelope mirrors OKX's uniform REST response shape: {"code","msg","data"}.
// Code "0" means success; any other value carries an exchange-level error
// that internal/xerrors translates into a BrokerageMessage.
type Envelope[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data T      `json:"data"`
}

// OK reports whether the envelope's code indicates success.
func (e Envelope[T]) OK() bool {
	return e.Code == "0"
}

// OrderResult is the per-order outcome nested in place/amend/cancel-order
// array responses, where sCode/sMsg carry the per-item result distinct from
// the envelope-level code.
type OrderResult struct {
	OrdID   string `json:"ordId"`
	ClOrdID string `json:"clOrdId"`
	Tag     string `json:"tag"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
}

// Success reports whether this order-level result succeeded.
func (r OrderResult) Success() bool {
	return r.SCode == "0"
}

// ChannelArg identifies a WebSocket channel subscription, echoed back in
// every push frame so the dispatcher can route without per-message type
// assertions (spec.md §9's tagged-variant-over-class-hierarchy note).
type ChannelArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId,omitempty"`
	InstType string `json:"instType,omitempty"`
	Uid     string `json:"uid,omitempty"`
}

// PushFrame is the generic shape of every WebSocket push: an optional event
// (login/subscribe/error acks), the subscription arg, and a raw payload
// decoded on demand by the channel-specific handler once Arg.Channel is
// known.
type PushFrame struct {
	Event   string          `json:"event,omitempty"`
	Arg     ChannelArg      `json:"arg,omitempty"`
	Code    string          `json:"code,omitempty"`
	Msg     string          `json:"msg,omitempty"`
	Action  string          `json:"action,omitempty"` // "snapshot" | "update" (books channel)
	Data    json.RawMessage `json:"data,omitempty"`
	ConnID  string          `json:"connId,omitempty"`
}

// IsAck reports whether this frame is a subscribe/login/error event rather
// than a data push.
func (f PushFrame) IsAck() bool {
	return f.Event != ""
}
