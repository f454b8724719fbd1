package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParsePriceStripsFormatting(t *testing.T) {
	cases := map[string]string{
		"5.99 €":  "5.99",
		"$12.50":  "12.5",
		"5.99":    "5.99",
		"1.2.3":   "1.2",
		"abc":     "0",
		"":        "0",
		"7.":      "7",
		"€ 0.50":  "0.5",
		"3,99 kr": "399",
	}
	for raw, want := range cases {
		got := ParsePrice(raw)
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("ParsePrice(%q) = %s, want %s", raw, got.String(), want)
		}
	}
}

func TestPriceUnmarshalStringAndNumberAgree(t *testing.T) {
	var fromString, fromNumber Price
	if err := json.Unmarshal([]byte(`"5.99 €"`), &fromString); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if err := json.Unmarshal([]byte(`5.99`), &fromNumber); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if !fromString.Equal(fromNumber.Decimal) {
		t.Fatalf("expected equal prices, got %s and %s", fromString, fromNumber)
	}
	if !fromString.Times(3).Equal(decimal.RequireFromString("17.97")) {
		t.Fatalf("unexpected line total %s", fromString.Times(3))
	}
}

func TestPriceMarshalRoundTrip(t *testing.T) {
	raw, err := json.Marshal(PriceFromFloat(4.5))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `"4.5"` {
		t.Fatalf("unexpected encoding %s", raw)
	}
	var back Price
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(decimal.RequireFromString("4.5")) {
		t.Fatalf("unexpected decoded value %s", back)
	}
}

func TestFlexibleIDAcceptsNumbersAndStrings(t *testing.T) {
	var payload struct {
		A FlexibleID `json:"a"`
		B FlexibleID `json:"b"`
		C FlexibleID `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":42,"b":"43","c":null}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.A != "42" || payload.B != "43" || payload.C != "" {
		t.Fatalf("unexpected ids %+v", payload)
	}
	n, err := payload.A.Int64()
	if err != nil || n != 42 {
		t.Fatalf("unexpected int %d (%v)", n, err)
	}
}
