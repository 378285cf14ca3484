package services

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// FlatSubtotal is the subtotal used when an order is created with its items:
// quantity × unit price − discount, where discount is a currency amount.
//
// Lines saved afterwards use models.LineSubtotal, which reads the same
// discount as a percentage. Orders created through the batch path therefore
// keep the flat total until one of their lines changes.
func FlatSubtotal(qty, unitPrice, discount decimal.Decimal) decimal.Decimal {
	return qty.Mul(unitPrice).Sub(discount).Round(2)
}

type volumeTier struct {
	minQty  decimal.Decimal
	percent decimal.Decimal
}

// volumeTiers is ordered from the largest threshold down.
var volumeTiers = []volumeTier{
	{decimal.NewFromInt(100), decimal.NewFromInt(12)},
	{decimal.NewFromInt(50), decimal.NewFromInt(8)},
	{decimal.NewFromInt(10), decimal.NewFromInt(5)},
}

// VolumeDiscountPercent returns the simulation discount tier for qty.
func VolumeDiscountPercent(qty decimal.Decimal) decimal.Decimal {
	for _, t := range volumeTiers {
		if qty.GreaterThanOrEqual(t.minQty) {
			return t.percent
		}
	}
	return decimal.Zero
}
