// Package costing derives ingredient cost and margin figures for products.
package costing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Line is one ingredient contribution: unit cost times quantity.
type Line struct {
	Cost     decimal.Decimal
	Quantity decimal.Decimal
}

// Total is cost × quantity for the line.
func (l Line) Total() decimal.Decimal {
	return l.Cost.Mul(l.Quantity)
}

// Breakdown is the derived economics of a product.
type Breakdown struct {
	TotalCost decimal.Decimal
	Margin    decimal.Decimal
	// MarginPercentage is margin/price×100 with two decimals, or nil when the
	// price is zero.
	MarginPercentage *string
}

// Compute sums the lines and derives margin against price. With no lines the
// total cost is zero and the margin equals the price.
func Compute(price decimal.Decimal, lines []Line) Breakdown {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}

	b := Breakdown{
		TotalCost: total,
		Margin:    price.Sub(total),
	}
	if !price.IsZero() {
		pct := b.Margin.Div(price).Mul(hundred).StringFixed(2)
		b.MarginPercentage = &pct
	}
	return b
}
