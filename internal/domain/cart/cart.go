// Package cart defines the line-item projection the promotion engine consumes.
// The checkout subsystem owns the full cart shape; the engine only needs the
// fields relevant to eligibility matching and discount calculation.
package cart

import "github.com/shopspring/decimal"

// Item represents a single cart line for discount calculation purposes.
type Item struct {
	ProductID string
	VariantID string
	Price     decimal.Decimal
	Quantity  int
	Category  string
	Brand     string
}

// Subtotal returns the sum of price * quantity across all items.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		line := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(line)
	}
	return sum
}

// TotalQuantity returns the sum of quantities across all items.
func TotalQuantity(items []Item) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}
