// Package instrument loads and resolves instrument metadata: tick size,
// lot size, and contract multiplier per symbol. A local CSV seeds the
// database at startup so the bridge can round order prices/sizes before
// ever round-tripping to the exchange; RegisterFromExchange refreshes or
// adds entries from OKX's own /public/instruments response.
package instrument

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/okx-bridge/okx/internal/xerrors"
	"github.com/okx-bridge/okx/pkg/types"
)

// Database is a concurrency-safe symbol → Instrument lookup.
type Database struct {
	mu    sync.RWMutex
	byKey map[string]types.Instrument
}

// NewDatabase creates an empty database.
func NewDatabase() *Database {
	return &Database{byKey: make(map[string]types.Instrument)}
}

// LoadCSV reads instrument rows from a CSV file with header
// symbol,base_ccy,quote_ccy,type,min_size,lot_size,tick_size,multiplier.
func (d *Database) LoadCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return xerrors.New(xerrors.KindState, "instrument.LoadCSV", err)
	}
	defer f.Close()
	return d.loadCSV(f)
}

func (d *Database) loadCSV(r io.Reader) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 8

	header, err := reader.Read()
	if err != nil {
		return xerrors.New(xerrors.KindState, "instrument.loadCSV", fmt.Errorf("read header: %w", err))
	}
	if len(header) != 8 {
		return xerrors.Newf(xerrors.KindState, "instrument.loadCSV", "expected 8 columns, got %d", len(header))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return xerrors.New(xerrors.KindState, "instrument.loadCSV", err)
		}
		inst, err := parseRow(row)
		if err != nil {
			return err
		}
		d.byKey[inst.Symbol] = inst
	}
	return nil
}

func parseRow(row []string) (types.Instrument, error) {
	minSize, err := decimal.NewFromString(row[4])
	if err != nil {
		return types.Instrument{}, xerrors.New(xerrors.KindState, "instrument.parseRow", fmt.Errorf("min_size: %w", err))
	}
	lotSize, err := decimal.NewFromString(row[5])
	if err != nil {
		return types.Instrument{}, xerrors.New(xerrors.KindState, "instrument.parseRow", fmt.Errorf("lot_size: %w", err))
	}
	tickSize, err := decimal.NewFromString(row[6])
	if err != nil {
		return types.Instrument{}, xerrors.New(xerrors.KindState, "instrument.parseRow", fmt.Errorf("tick_size: %w", err))
	}
	multiplier, err := decimal.NewFromString(row[7])
	if err != nil {
		return types.Instrument{}, xerrors.New(xerrors.KindState, "instrument.parseRow", fmt.Errorf("multiplier: %w", err))
	}
	return types.Instrument{
		Symbol:     row[0],
		BaseCcy:    row[1],
		QuoteCcy:   row[2],
		Type:       types.SecurityType(row[3]),
		MinSize:    minSize,
		LotSize:    lotSize,
		TickSize:   tickSize,
		Multiplier: multiplier,
	}, nil
}

// Resolve returns the Instrument for symbol.
func (d *Database) Resolve(symbol string) (types.Instrument, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	inst, ok := d.byKey[symbol]
	return inst, ok
}

// Register adds or overwrites a single instrument.
func (d *Database) Register(inst types.Instrument) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byKey[inst.Symbol] = inst
}

// RegisterFromExchange adds or refreshes entries from OKX's
// /api/v5/public/instruments response shape.
func (d *Database) RegisterFromExchange(rows []ExchangeInstrument) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, row := range rows {
		d.byKey[row.InstID] = row.ToInstrument()
	}
}

// ExchangeInstrument mirrors one row of OKX's /public/instruments response.
type ExchangeInstrument struct {
	InstID   string `json:"instId"`
	BaseCcy  string `json:"baseCcy"`
	QuoteCcy string `json:"quoteCcy"`
	InstType string `json:"instType"`
	MinSz    string `json:"minSz"`
	LotSz    string `json:"lotSz"`
	TickSz   string `json:"tickSz"`
	CtMult   string `json:"ctMult"`
}

// ToInstrument converts the wire row into the domain Instrument type,
// defaulting a blank contract multiplier to 1 (spot instruments carry no
// ctMult field).
func (e ExchangeInstrument) ToInstrument() types.Instrument {
	minSz, _ := decimal.NewFromString(e.MinSz)
	lotSz, _ := decimal.NewFromString(e.LotSz)
	tickSz, _ := decimal.NewFromString(e.TickSz)
	mult := decimal.NewFromInt(1)
	if e.CtMult != "" {
		if parsed, err := decimal.NewFromString(e.CtMult); err == nil {
			mult = parsed
		}
	}
	return types.Instrument{
		Symbol:     e.InstID,
		BaseCcy:    e.BaseCcy,
		QuoteCcy:   e.QuoteCcy,
		Type:       types.SecurityType(e.InstType),
		MinSize:    minSz,
		LotSize:    lotSz,
		TickSize:   tickSz,
		Multiplier: mult,
	}
}
