package instrument

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

const csvFixture = `symbol,base_ccy,quote_ccy,type,min_size,lot_size,tick_size,multiplier
BTC-USDT,BTC,USDT,SPOT,0.00001,0.00001,0.1,1
BTC-USDT-SWAP,BTC,USDT,SWAP,1,1,0.1,0.01
`

func TestLoadCSVAndResolve(t *testing.T) {
	t.Parallel()

	db := NewDatabase()
	if err := db.loadCSV(strings.NewReader(csvFixture)); err != nil {
		t.Fatalf("loadCSV: %v", err)
	}

	inst, ok := db.Resolve("BTC-USDT")
	if !ok {
		t.Fatal("expected BTC-USDT to resolve")
	}
	if !inst.TickSize.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("TickSize = %s, want 0.1", inst.TickSize)
	}

	swap, ok := db.Resolve("BTC-USDT-SWAP")
	if !ok {
		t.Fatal("expected BTC-USDT-SWAP to resolve")
	}
	if !swap.Multiplier.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("Multiplier = %s, want 0.01", swap.Multiplier)
	}

	if _, ok := db.Resolve("NONEXISTENT"); ok {
		t.Error("expected NONEXISTENT to not resolve")
	}
}

func TestRegisterFromExchangeDefaultsMultiplier(t *testing.T) {
	t.Parallel()

	db := NewDatabase()
	db.RegisterFromExchange([]ExchangeInstrument{
		{InstID: "ETH-USDT", BaseCcy: "ETH", QuoteCcy: "USDT", InstType: "SPOT", MinSz: "0.001", LotSz: "0.001", TickSz: "0.01"},
	})

	inst, ok := db.Resolve("ETH-USDT")
	if !ok {
		t.Fatal("expected ETH-USDT to resolve")
	}
	if !inst.Multiplier.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Multiplier = %s, want 1 (default)", inst.Multiplier)
	}
}
