package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestInstrumentRoundPrice(t *testing.T) {
	inst := Instrument{TickSize: dec("0.01"), LotSize: dec("0.001")}

	got := inst.RoundPrice(dec("123.456"))
	if !got.Equal(dec("123.45")) {
		t.Errorf("RoundPrice(123.456) = %s, want 123.45", got)
	}

	got = inst.RoundSize(dec("1.2349"))
	if !got.Equal(dec("1.234")) {
		t.Errorf("RoundSize(1.2349) = %s, want 1.234", got)
	}
}

func TestInstrumentRoundZeroStep(t *testing.T) {
	inst := Instrument{}
	v := dec("5.5")
	if got := inst.RoundPrice(v); !got.Equal(v) {
		t.Errorf("RoundPrice with zero tick size should be identity, got %s", got)
	}
}
