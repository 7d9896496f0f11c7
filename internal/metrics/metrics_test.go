package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncChecksumMismatch(t *testing.T) {
	ChecksumMismatches.Reset()
	IncChecksumMismatch("BTC-USDT")
	IncChecksumMismatch("BTC-USDT")

	got := testutil.ToFloat64(ChecksumMismatches.WithLabelValues("BTC-USDT"))
	if got != 2 {
		t.Errorf("ChecksumMismatches = %v, want 2", got)
	}
}

func TestIncOrderLabelsByOpAndResult(t *testing.T) {
	OrdersTotal.Reset()
	IncOrder("place", "ok")
	IncOrder("place", "error")
	IncOrder("place", "ok")

	if got := testutil.ToFloat64(OrdersTotal.WithLabelValues("place", "ok")); got != 2 {
		t.Errorf("place/ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(OrdersTotal.WithLabelValues("place", "error")); got != 1 {
		t.Errorf("place/error = %v, want 1", got)
	}
}
