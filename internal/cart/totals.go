package cart

import (
	"click-collect/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Totals is the priced summary of a set of cart lines
type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
	ItemCount    int             `json:"item_count"`
	LineCount    int             `json:"line_count"`
}

// ComputeTotals prices lines with a percentage discount. The rate is bounded
// to [0, 100], the discount is rounded to cents and never exceeds the subtotal.
func ComputeTotals(lines []models.CartLine, ratePercent decimal.Decimal) Totals {
	subtotal := decimal.Zero
	items := 0
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal())
		items += l.Quantity
	}

	rate := ClampRate(ratePercent)
	discount := subtotal.Mul(rate).Div(hundred).Round(2)
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	return Totals{
		Subtotal:     subtotal,
		DiscountRate: rate,
		Discount:     discount,
		Total:        subtotal.Sub(discount),
		ItemCount:    items,
		LineCount:    len(lines),
	}
}

// ClampRate bounds a discount percentage to [0, 100]
func ClampRate(rate decimal.Decimal) decimal.Decimal {
	if rate.IsNegative() {
		return decimal.Zero
	}
	if rate.GreaterThan(hundred) {
		return hundred
	}
	return rate
}

// Totals prices the cart
func (c *Cart) Totals(ratePercent decimal.Decimal) Totals {
	return ComputeTotals(c.lines, ratePercent)
}
