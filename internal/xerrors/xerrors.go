// Package xerrors defines the bridge's error taxonomy: every error that
// crosses a package boundary is one of five kinds, so callers can
// errors.As into a structured BrokerageMessage instead of pattern-matching
// strings.
package xerrors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okx-bridge/okx/pkg/types"
)

// Kind classifies an error by where in the pipeline it originated.
type Kind int

const (
	// KindTransport covers connection failures, timeouts, and non-2xx HTTP
	// responses where the exchange's own envelope could not be parsed.
	KindTransport Kind = iota
	// KindProtocol covers a parseable exchange response that itself
	// reports failure (sCode != "0", envelope code != "0").
	KindProtocol
	// KindState covers violations of the bridge's own invariants: an
	// unresolved instrument, a synchronizer stuck in Failed, a checksum
	// mismatch exhausting resync attempts.
	KindState
	// KindUser covers caller misuse: malformed order parameters, an
	// unsupported history resolution.
	KindUser
	// KindRate covers rate-limit exhaustion where the caller's context
	// was cancelled while waiting for a token.
	KindRate
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindState:
		return "state"
	case KindUser:
		return "user"
	case KindRate:
		return "rate"
	default:
		return "unknown"
	}
}

// Error is the bridge's typed error. It wraps an underlying cause and
// carries enough to build a types.BrokerageMessage at the boundary where
// the engine consumes it.
type Error struct {
	Kind       Kind
	Op         string // package/function that originated the error, e.g. "transport.Send"
	Code       string // exchange-reported code, if any ("51008", "50113", ...)
	Recoverable bool
	Err        error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s [code=%s]: %v", e.Op, e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a non-recoverable Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf is New with a formatted message as the cause.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// WithCode attaches an exchange error code, returning the same *Error for
// chaining at the construction site.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithRecoverable marks whether retrying the same operation might succeed.
func (e *Error) WithRecoverable(r bool) *Error {
	e.Recoverable = r
	return e
}

// As reports whether err (or something it wraps) is an *Error, writing it
// into target. Thin wrapper so callers don't need to spell out errors.As
// with the package-qualified type at every call site.
func As(err error, target **Error) bool {
	return errors.As(err, target)
}

// messageCode maps a Kind to the brokerage-facing code family defined in
// pkg/types, so the engine sees a stable vocabulary regardless of which
// internal package raised the error.
func messageCode(kind Kind, op string) string {
	switch kind {
	case KindTransport, KindProtocol:
		if isCancelOp(op) {
			return types.CodeOrderCancelError
		}
		if isUpdateOp(op) {
			return types.CodeOrderUpdateError
		}
		return types.CodeOrderPlaceError
	case KindState:
		return types.CodeInsufficientData
	case KindRate:
		return types.CodeNoLiquidity
	default:
		return types.CodeOrderPlaceError
	}
}

func isCancelOp(op string) bool {
	return strings.Contains(strings.ToLower(op), "cancel")
}

func isUpdateOp(op string) bool {
	lower := strings.ToLower(op)
	return strings.Contains(lower, "amend") || strings.Contains(lower, "update")
}

// ToBrokerageMessage converts an *Error into the shape the engine consumes,
// filling in sensible defaults when details are absent.
func (e *Error) ToBrokerageMessage() types.BrokerageMessage {
	return types.BrokerageMessage{
		Code:          messageCode(e.Kind, e.Op),
		Message:       e.Error(),
		TransportCode: e.Code,
		TransportMsg:  errMsg(e.Err),
		Recoverable:   e.Recoverable,
	}
}

func errMsg(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
