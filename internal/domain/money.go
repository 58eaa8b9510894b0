package domain

import "github.com/shopspring/decimal"

var one = decimal.NewFromInt(1)
var hundred = decimal.NewFromInt(100)

// SplitInclusive splits a tax-inclusive total into subtotal and tax at the
// given tax percentage: subtotal = total / (1 + rate), tax = total - subtotal.
// The subtotal is rounded to 2 decimal places and tax is taken as the
// remainder, so subtotal + tax always equals total exactly.
func SplitInclusive(total decimal.Decimal, taxPercent decimal.Decimal) (subtotal, tax decimal.Decimal) {
	rate := taxPercent.Div(hundred)
	subtotal = total.Div(one.Add(rate)).Round(2)
	tax = total.Sub(subtotal)
	return subtotal, tax
}

// ItemsTotal sums unit price times quantity over a set of order items.
func ItemsTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
