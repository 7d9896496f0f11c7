// Package history implements the paginated candle backfill C9 of spec.md
// §4.3 and §8: a backward-walking REST fetch over OKX's history-candles
// endpoint, deduplicating boundary-overlap timestamps, returning nil for
// resolutions the façade doesn't support (sub-minute bars, quote ticks).
package history

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/okx-bridge/okx/internal/codec"
	"github.com/okx-bridge/okx/internal/subscription"
	"github.com/okx-bridge/okx/internal/transport"
	"github.com/okx-bridge/okx/internal/xerrors"
	"github.com/okx-bridge/okx/pkg/types"
)

// pageSize is the largest page OKX's history-candles endpoint serves per
// call.
const pageSize = 100

// Fetcher retrieves historical candles with backward pagination.
type Fetcher struct {
	client *transport.Client
	logger *slog.Logger
}

// New builds a Fetcher.
func New(client *transport.Client, logger *slog.Logger) *Fetcher {
	return &Fetcher{client: client, logger: logger.With("component", "history")}
}

// Supports reports whether req's resolution has a history endpoint. The
// façade uses this to decide between calling Get and returning nil per the
// "none if the request is unsupported" contract (spec.md §6).
func Supports(req types.HistoryRequest) bool {
	return subscription.ValidBar(req.Resolution)
}

// Get walks backward from req.End (or now) in pageSize windows, using each
// page's oldest returned timestamp as the next upper bound, until either
// Limit candles have been gathered or the oldest candle is at or before
// req.Start. Boundary-overlap timestamps (the same bar returned by two
// consecutive pages) are deduplicated. Returns nil, nil for an unsupported
// resolution.
func (f *Fetcher) Get(ctx context.Context, req types.HistoryRequest) ([]types.Candle, error) {
	if !Supports(req) {
		return nil, nil
	}

	var out []types.Candle
	seen := make(map[int64]struct{})
	before := req.End

	for {
		page, err := f.fetchPage(ctx, req.InstID, req.Resolution, before)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		added := 0
		for _, c := range page {
			if req.Start > 0 && c.Timestamp < req.Start {
				continue
			}
			if _, dup := seen[c.Timestamp]; dup {
				continue
			}
			seen[c.Timestamp] = struct{}{}
			out = append(out, c)
			added++
		}

		oldest := page[len(page)-1].Timestamp
		if before == oldest {
			break // page made no progress; avoid looping forever
		}
		before = oldest

		if req.Limit > 0 && len(out) >= req.Limit {
			out = out[:req.Limit]
			break
		}
		if req.Start > 0 && oldest <= req.Start {
			break
		}
		if added == 0 {
			break
		}
	}

	return out, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, instID, bar string, before int64) ([]types.Candle, error) {
	query := map[string]string{
		"instId": instID,
		"bar":    bar,
		"limit":  strconv.Itoa(pageSize),
	}
	if before > 0 {
		query["after"] = strconv.FormatInt(before, 10) // OKX's "after" means "older than this ts"
	}

	rows, err := transport.Get[[]codec.CandleRow](ctx, f.client, transport.BucketPublic, "/api/v5/market/history-candles", query)
	if err != nil {
		return nil, xerrors.New(xerrors.KindTransport, "history.fetchPage", err)
	}
	return codec.DecodeCandleRows(instID, rows)
}
