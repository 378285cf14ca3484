package validation

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidators(t *testing.T) {
	v := make(Violations)
	Required("sku", "  ", v)
	MaxLen("name", "abcdef", 3, v)
	ExactLen("uf", "SPX", 2, v)
	PositiveDecimal("qty", decimal.Zero, v)
	NonNegativeDecimal("unit_price", decimal.NewFromInt(-1), v)
	RangeDecimal("discount", decimal.NewFromInt(101), decimal.Zero, decimal.NewFromInt(100), v)

	want := map[string]string{
		"sku":        "required",
		"name":       "too_long",
		"uf":         "invalid_length",
		"qty":        "must_be_positive",
		"unit_price": "must_not_be_negative",
		"discount":   "out_of_range",
	}
	for field, code := range want {
		if v[field] != code {
			t.Errorf("%s: got %q want %q", field, v[field], code)
		}
	}
}

func TestValidators_Pass(t *testing.T) {
	v := make(Violations)
	Required("sku", "SKU-1", v)
	ExactLen("uf", "", 2, v)
	PositiveDecimal("qty", decimal.NewFromFloat(0.5), v)
	NonNegativeDecimal("unit_price", decimal.Zero, v)
	RangeDecimal("discount", decimal.NewFromInt(100), decimal.Zero, decimal.NewFromInt(100), v)
	if !v.Empty() {
		t.Fatalf("expected no violations, got %v", v)
	}
}
