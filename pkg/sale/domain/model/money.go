package model

import "github.com/shopspring/decimal"

// CurrencyUnitPlaces is the number of minor-unit digits kept after rounding.
const CurrencyUnitPlaces = 2

var hundred = decimal.NewFromInt(100)

// Multiply returns price*qty without rounding. Line amounts stay exact
// until they are folded into a subtotal.
func Multiply(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}

func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return total
}

// ApplyPercentage returns amount*pct/100, unrounded.
func ApplyPercentage(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// RoundToCurrencyUnit rounds half away from zero to two places, which is
// round-half-up for the non-negative amounts handled at checkout.
func RoundToCurrencyUnit(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(CurrencyUnitPlaces)
}
