package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/okx-bridge/okx/internal/config"
	"github.com/okx-bridge/okx/internal/transport"
	"github.com/okx-bridge/okx/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		API: config.APIConfig{ApiKey: "k", Secret: "s", Passphrase: "p", RESTBaseURL: baseURL},
		Transport: config.TransportConfig{
			RequestTimeout:        2 * time.Second,
			OrderBucketCapacity:   10,
			OrderBucketRate:       10,
			AccountBucketCapacity: 10,
			AccountBucketRate:     10,
			PublicBucketCapacity:  10,
			PublicBucketRate:      10,
		},
	}
}

func TestSupportsRejectsSubMinuteAndTick(t *testing.T) {
	t.Parallel()

	if Supports(types.HistoryRequest{Resolution: "tick"}) {
		t.Error("tick resolution must be unsupported")
	}
	if Supports(types.HistoryRequest{Resolution: "30s"}) {
		t.Error("sub-minute resolution must be unsupported")
	}
	if !Supports(types.HistoryRequest{Resolution: "1m"}) {
		t.Error("1m must be supported")
	}
}

func TestGetReturnsNilForUnsupportedResolution(t *testing.T) {
	t.Parallel()

	f := New(transport.NewClient(testConfig("http://127.0.0.1:1"), testLogger()), testLogger())
	candles, err := f.Get(context.Background(), types.HistoryRequest{InstID: "BTC-USDT", Resolution: "tick"})
	if err != nil || candles != nil {
		t.Fatalf("Get(tick) = %v, %v; want nil, nil", candles, err)
	}
}

// row builds one OKX candle tuple; ts is a millisecond string.
func row(ts, o, h, l, c, vol string) [9]string {
	return [9]string{ts, o, h, l, c, vol, "0", "0", "1"}
}

func TestGetWalksBackwardAndDedupsBoundary(t *testing.T) {
	t.Parallel()

	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		after := r.URL.Query().Get("after")
		calls = append(calls, after)

		var data [][9]string
		switch after {
		case "":
			// first page: newest, ts 3000..1000 descending, overlapping boundary at 1000
			data = [][9]string{
				row("3000", "1", "1", "1", "1", "1"),
				row("2000", "1", "1", "1", "1", "1"),
				row("1000", "1", "1", "1", "1", "1"),
			}
		case "1000":
			// second page: boundary overlap at 1000, then older bars
			data = [][9]string{
				row("1000", "1", "1", "1", "1", "1"),
				row("500", "1", "1", "1", "1", "1"),
				row("0", "1", "1", "1", "1", "1"),
			}
		default:
			data = nil
		}
		json.NewEncoder(w).Encode(map[string]any{"code": "0", "msg": "", "data": data})
	}))
	defer srv.Close()

	f := New(transport.NewClient(testConfig(srv.URL), testLogger()), testLogger())
	candles, err := f.Get(context.Background(), types.HistoryRequest{InstID: "BTC-USDT", Resolution: "1m", Start: 0})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	seen := make(map[int64]int)
	for _, c := range candles {
		seen[c.Timestamp]++
	}
	for ts, n := range seen {
		if n != 1 {
			t.Errorf("timestamp %d appeared %d times, want 1", ts, n)
		}
	}
	if len(calls) < 2 {
		t.Fatalf("expected pagination across at least 2 calls, got %d", len(calls))
	}
}

func TestGetRespectsLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := [][9]string{
			row("3000", "1", "1", "1", "1", "1"),
			row("2000", "1", "1", "1", "1", "1"),
		}
		json.NewEncoder(w).Encode(map[string]any{"code": "0", "msg": "", "data": data})
	}))
	defer srv.Close()

	f := New(transport.NewClient(testConfig(srv.URL), testLogger()), testLogger())
	candles, err := f.Get(context.Background(), types.HistoryRequest{InstID: "BTC-USDT", Resolution: "1m", Limit: 1})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(candles) != 1 {
		t.Fatalf("len(candles) = %d, want 1", len(candles))
	}
}
