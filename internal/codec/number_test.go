package codec

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNumberUnmarshalVariants(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"quoted", `"123.450"`, "123.45"},
		{"bare number", `123.45`, "123.45"},
		{"null", `null`, "0"},
		{"empty string", `""`, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var n Number
			if err := json.Unmarshal([]byte(tc.in), &n); err != nil {
				t.Fatalf("unmarshal %q: %v", tc.in, err)
			}
			want, _ := decimal.NewFromString(tc.want)
			if !n.Decimal.Equal(want) {
				t.Errorf("got %s, want %s", n.Decimal, want)
			}
		})
	}
}

func TestNumberMarshalRoundTrip(t *testing.T) {
	n := NewNumber(decimal.RequireFromString("42.1"))
	b, err := json.Marshal(n)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"42.1"` {
		t.Errorf("got %s, want \"42.1\"", b)
	}
}
