package types

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Price is a decimal amount that tolerates both numeric and formatted string
// encodings ("5.99", 5.99, "5.99 €", "$5.99").
type Price struct {
	decimal.Decimal
}

// NewPrice wraps an existing decimal.
func NewPrice(d decimal.Decimal) Price {
	return Price{Decimal: d}
}

// PriceFromFloat builds a Price from a float amount.
func PriceFromFloat(f float64) Price {
	return Price{Decimal: decimal.NewFromFloat(f)}
}

// ParsePrice strips every character that is not a digit or a dot and parses
// the leading number of what remains. Unparsable input yields zero.
func ParsePrice(raw string) Price {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if first := strings.IndexByte(cleaned, '.'); first >= 0 {
		if second := strings.IndexByte(cleaned[first+1:], '.'); second >= 0 {
			cleaned = cleaned[:first+1+second]
		}
	}
	cleaned = strings.TrimSuffix(cleaned, ".")
	if cleaned == "" || cleaned == "." {
		return Price{Decimal: decimal.Zero}
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Price{Decimal: decimal.Zero}
	}
	return Price{Decimal: d}
}

// Times returns the price multiplied by an integer quantity.
func (p Price) Times(qty int) decimal.Decimal {
	return p.Decimal.Mul(decimal.NewFromInt(int64(qty)))
}

func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Decimal.String())
}

func (p *Price) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		p.Decimal = decimal.Zero
		return nil
	}
	if trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		*p = ParsePrice(raw)
		return nil
	}
	d, err := decimal.NewFromString(string(trimmed))
	if err != nil {
		*p = ParsePrice(string(trimmed))
		return nil
	}
	p.Decimal = d
	return nil
}
