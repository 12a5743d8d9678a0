package product

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

var minorUnitsPerMajor = decimal.NewFromInt(100)

// MinorUnits converts a catalog price into integer minor units, rounding half
// away from zero at the cent.
func MinorUnits(price decimal.Decimal) int64 {
	return price.Mul(minorUnitsPerMajor).Round(0).IntPart()
}

// SizeLabel renders a size variation's JSON payload as display text. Plain
// JSON strings are unquoted; objects yield their label, name or size key.
func SizeLabel(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var label string
	if err := json.Unmarshal(raw, &label); err == nil {
		return label
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, key := range []string{"label", "name", "size"} {
			if v, ok := obj[key].(string); ok && v != "" {
				return v
			}
		}
	}
	return trimmed
}
