// exchangeinfo downloads OKX's public instrument list and writes it out as
// the CSV shape internal/instrument.Database.LoadCSV expects, so a
// deployment can seed its instrument database without a hand-maintained
// file.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"log/slog"
	"os"

	"github.com/okx-bridge/okx/internal/config"
	"github.com/okx-bridge/okx/internal/instrument"
	"github.com/okx-bridge/okx/internal/transport"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "path to config file")
	instType := flag.String("inst-type", "SPOT", "instrument type: SPOT, SWAP, or FUTURES")
	outPath := flag.String("out", "instruments.csv", "output CSV path")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err, "path", *cfgPath)
		os.Exit(1)
	}

	client := transport.NewClient(cfg, logger)

	rows, err := transport.Get[[]instrument.ExchangeInstrument](context.Background(), client, transport.BucketPublic,
		"/api/v5/public/instruments", map[string]string{"instType": *instType})
	if err != nil {
		logger.Error("failed to fetch instruments", "error", err, "instType", *instType)
		os.Exit(1)
	}

	if err := writeCSV(*outPath, rows); err != nil {
		logger.Error("failed to write CSV", "error", err, "path", *outPath)
		os.Exit(1)
	}

	logger.Info("wrote instrument database", "path", *outPath, "count", len(rows), "instType", *instType)
}

func writeCSV(path string, rows []instrument.ExchangeInstrument) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"symbol", "base_ccy", "quote_ccy", "type", "min_size", "lot_size", "tick_size", "multiplier"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		inst := row.ToInstrument()
		record := []string{
			inst.Symbol, inst.BaseCcy, inst.QuoteCcy, string(inst.Type),
			inst.MinSize.String(), inst.LotSize.String(), inst.TickSize.String(), inst.Multiplier.String(),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}
