package xerrors

import (
	"errors"
	"testing"

	"github.com/okx-bridge/okx/pkg/types"
)

func TestErrorUnwrapAndAs(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: timeout")
	err := New(KindTransport, "transport.Send", cause).WithRecoverable(true)

	var xe *Error
	if !As(err, &xe) {
		t.Fatal("expected As to match *Error")
	}
	if xe.Kind != KindTransport || !xe.Recoverable {
		t.Errorf("got kind=%v recoverable=%v", xe.Kind, xe.Recoverable)
	}
	if !errors.Is(err, err) {
		t.Error("expected error to equal itself under errors.Is")
	}
	if errors.Unwrap(err) != cause {
		t.Error("expected Unwrap to return the original cause")
	}
}

func TestToBrokerageMessageCodeMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		op   string
		kind Kind
		want string
	}{
		{"place error", "pipeline.Place", KindProtocol, types.CodeOrderPlaceError},
		{"amend error", "pipeline.Amend", KindProtocol, types.CodeOrderUpdateError},
		{"cancel error", "pipeline.Cancel", KindTransport, types.CodeOrderCancelError},
		{"state error", "sync2.AwaitState", KindState, types.CodeInsufficientData},
		{"rate error", "transport.Wait", KindRate, types.CodeNoLiquidity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := New(tt.kind, tt.op, errors.New("boom")).WithCode("51008")
			msg := e.ToBrokerageMessage()
			if msg.Code != tt.want {
				t.Errorf("Code = %q, want %q", msg.Code, tt.want)
			}
			if msg.TransportCode != "51008" {
				t.Errorf("TransportCode = %q, want 51008", msg.TransportCode)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()
	if KindTransport.String() != "transport" {
		t.Errorf("got %q", KindTransport.String())
	}
}
