package models

import "github.com/shopspring/decimal"

// Scale is the number of fractional digits stored in numeric(20,8) columns.
const Scale = 8

// Quantize rounds d to the stored scale, so an in-memory value equals the
// value read back from the database.
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Float converts a nullable decimal to float64, mapping null to 0.
// Used where values leave the exact domain (templates, charts).
func Float(d decimal.NullDecimal) float64 {
	if !d.Valid {
		return 0
	}
	f, _ := d.Decimal.Float64()
	return f
}

// NullDec wraps a float64 as a valid nullable decimal.
func NullDec(f float64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat(f))
}

// DecOrZero returns the decimal value or zero when null.
func DecOrZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

// IntOrZero dereferences a nullable integer metric.
func IntOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
