// Package discount implements the discount calculator: pure money math for
// percentage, fixed-amount, free-shipping, and buy-X-get-Y discounts.
//
// All functions are side-effect free. Intermediate values keep full decimal
// precision; callers round once at the point of display or totalling via
// RoundCurrency so stacked discounts do not compound rounding error.
package discount

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/shopkart/promo-engine/internal/domain/cart"
)

var hundred = decimal.NewFromInt(100)

// Result holds a computed discount. FreeShipping is carried as a separate
// flag rather than a monetary amount so the shipping-fee calculator can act
// on it without the risk of double-counting.
type Result struct {
	Amount       decimal.Decimal
	FreeShipping bool
}

// Percentage returns total * percent / 100, clamped to cap when cap is
// positive. The result is never negative and never exceeds total.
func Percentage(total, percent, cap decimal.Decimal) decimal.Decimal {
	amount := total.Mul(percent).Div(hundred)
	if cap.IsPositive() && amount.GreaterThan(cap) {
		amount = cap
	}
	return clamp(amount, total)
}

// Fixed returns amount clamped to total, so the discounted total can never
// go below zero.
func Fixed(total, amount decimal.Decimal) decimal.Decimal {
	return clamp(amount, total)
}

// FreeShipping returns a zero-amount result with the shipping flag set.
func FreeShipping() Result {
	return Result{Amount: decimal.Zero, FreeShipping: true}
}

// BOGO computes the buy-X-get-Y discount over the given items. Units are
// expanded and partitioned most-expensive-first into groups of
// buyQty+getQty; in each complete group the getQty cheapest units are
// discounted by getDiscount percent. Cheapest-first selection of the "get"
// units gives the customer the maximum benefit on ties, the standard retail
// convention.
func BOGO(items []cart.Item, buyQty, getQty int, getDiscount decimal.Decimal) decimal.Decimal {
	if buyQty <= 0 || getQty <= 0 || !getDiscount.IsPositive() {
		return decimal.Zero
	}

	var units []decimal.Decimal
	for _, item := range items {
		for range item.Quantity {
			units = append(units, item.Price)
		}
	}
	sort.SliceStable(units, func(i, j int) bool {
		return units[i].GreaterThan(units[j])
	})

	group := buyQty + getQty
	total := decimal.Zero
	for start := 0; start+group <= len(units); start += group {
		g := units[start : start+group]
		// Descending order puts the cheapest units at the tail of the group.
		for _, price := range g[len(g)-getQty:] {
			total = total.Add(price.Mul(getDiscount).Div(hundred))
		}
	}
	return total
}

// FreeUnit returns the price of one unit of the given product in the cart,
// or zero when the product is absent. Used for free-item promotion actions.
func FreeUnit(items []cart.Item, productID string) decimal.Decimal {
	for _, item := range items {
		if item.ProductID == productID && item.Quantity > 0 {
			return item.Price
		}
	}
	return decimal.Zero
}

// RoundCurrency applies two-decimal currency rounding. Call it once at the
// edge, never on intermediate values.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// clamp bounds amount to [0, total].
func clamp(amount, total decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(total) {
		return total
	}
	return amount
}
