// Package money holds the fixed-point arithmetic shared by the ledger and the
// bulk transfer engine. Every amount is rounded half-up to two fraction
// digits right after it is computed.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fraction digits kept for monetary amounts.
const Scale = 2

// PriceScale is the number of fraction digits stored for order line prices.
const PriceScale = 4

var hundred = decimal.NewFromInt(100)

// Zero is the empty amount.
var Zero = decimal.Zero

// Round applies the single rounding rule: half-up to two fraction digits.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// LinePrice brings a unit price to the stored line scale, half-up.
func LinePrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(PriceScale)
}

// Subtotal returns round(price × quantity).
func Subtotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return Round(price.Mul(decimal.NewFromInt(int64(quantity))))
}

// Totals is the read-side breakdown derived from an order's gross total.
type Totals struct {
	Gross decimal.Decimal
	Base  decimal.Decimal
	Tax   decimal.Decimal
	Total decimal.Decimal
}

// Breakdown derives base, tax and total from the gross amount. Each step is
// rounded before the next one consumes it.
func Breakdown(gross decimal.Decimal, discountPercent, taxPercent int) Totals {
	gross = Round(gross)
	base := Round(gross.Mul(decimal.NewFromInt(int64(100 - discountPercent))).Div(hundred))
	tax := Round(base.Mul(decimal.NewFromInt(int64(taxPercent))).Div(hundred))
	return Totals{
		Gross: gross,
		Base:  base,
		Tax:   tax,
		Total: Round(base.Add(tax)),
	}
}

// Parse reads a decimal accepting either a comma or a dot as separator.
func Parse(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}
	return d, nil
}

// Format renders an amount with a dot and exactly two fraction digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}
