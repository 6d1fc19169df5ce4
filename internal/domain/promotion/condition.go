package promotion

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/shopkart/promo-engine/internal/domain/cart"
)

// ConditionKind discriminates the Condition variants.
type ConditionKind string

const (
	// ConditionMinQuantity requires a minimum total quantity across the
	// covered line items.
	ConditionMinQuantity ConditionKind = "min_quantity"
	// ConditionMinAmount requires a minimum subtotal across the covered
	// line items.
	ConditionMinAmount ConditionKind = "min_amount"
	// ConditionSpecificProduct requires at least one of the listed products
	// to be present in the cart.
	ConditionSpecificProduct ConditionKind = "specific_product"
	// ConditionCategory requires at least one item of the given category.
	ConditionCategory ConditionKind = "category"
	// ConditionCustomerTag requires the customer to carry the given tag.
	ConditionCustomerTag ConditionKind = "customer_tag"
)

// Condition is a tagged variant: Kind selects which of the value fields is
// meaningful. Unknown kinds are rejected at evaluation time so that a new
// kind cannot silently match.
type Condition struct {
	Kind       ConditionKind   `json:"kind"`
	Quantity   int             `json:"quantity,omitempty"`
	Amount     decimal.Decimal `json:"amount,omitempty"`
	ProductIDs []string        `json:"product_ids,omitempty"`
	Category   string          `json:"category,omitempty"`
	Tag        string          `json:"tag,omitempty"`
}

// Met evaluates the condition against the covered cart items and the
// customer's tags.
func (c Condition) Met(items []cart.Item, customerTags []string) (bool, error) {
	switch c.Kind {
	case ConditionMinQuantity:
		return cart.TotalQuantity(items) >= c.Quantity, nil
	case ConditionMinAmount:
		return cart.Subtotal(items).GreaterThanOrEqual(c.Amount), nil
	case ConditionSpecificProduct:
		for _, item := range items {
			if c.MatchesProduct(item.ProductID) {
				return true, nil
			}
		}
		return false, nil
	case ConditionCategory:
		for _, item := range items {
			if item.Category == c.Category {
				return true, nil
			}
		}
		return false, nil
	case ConditionCustomerTag:
		for _, tag := range customerTags {
			if tag == c.Tag {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, errors.Errorf("unsupported condition kind: %q", c.Kind)
	}
}

// MatchesProduct reports whether the condition is a specific-product
// condition listing the given product.
func (c Condition) MatchesProduct(productID string) bool {
	if c.Kind != ConditionSpecificProduct {
		return false
	}
	for _, id := range c.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}
