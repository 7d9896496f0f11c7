// Package codec implements bidirectional translation between OKX's JSON
// wire format and the bridge's typed messages. It provides lenient numeric
// parsing (a JSON string, JSON number, or null all normalize to a decimal,
// with null/empty becoming zero — spec.md §9) and the generic envelope and
// tagged push-frame shapes the rest of the bridge decodes against.
package codec

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Number is a JSON scalar that accepts a string, a number, or null/empty and
// normalizes to a decimal.Decimal. It marshals back to the exchange's
// string form, since OKX's own wire format uses quoted numerics throughout.
type Number struct {
	decimal.Decimal
}

// NewNumber wraps a decimal.Decimal as a Number.
func NewNumber(d decimal.Decimal) Number {
	return Number{d}
}

var jsonNull = []byte("null")

// UnmarshalJSON accepts "1.23", 1.23, "", or null — the last two yield zero.
func (n *Number) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, jsonNull) || len(trimmed) == 0 {
		n.Decimal = decimal.Zero
		return nil
	}

	if len(trimmed) >= 2 && trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		if s == "" {
			n.Decimal = decimal.Zero
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		n.Decimal = d
		return nil
	}

	var f json.Number
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return err
	}
	d, err := decimal.NewFromString(f.String())
	if err != nil {
		return err
	}
	n.Decimal = d
	return nil
}

// MarshalJSON writes the decimal in its canonical string form.
func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Decimal.String())
}
