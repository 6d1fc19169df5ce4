// Package promotion models auto-applied, time-boxed marketing rules and the
// eligibility matching that decides which of them apply to a cart or to a
// single product/variant pair.
package promotion

import (
	"context"
	"time"

	"github.com/shopkart/promo-engine/internal/domain/cart"
)

// Kind enumerates the supported promotion mechanics.
type Kind string

const (
	// KindCombo prices a fixed group of products as a unit.
	KindCombo Kind = "combo"
	// KindBOGO discounts "get" units once a purchase threshold is met.
	KindBOGO Kind = "bogo"
	// KindPercentage applies a percentage-based discount.
	KindPercentage Kind = "percentage"
	// KindFixed applies a fixed monetary discount.
	KindFixed Kind = "fixed"
	// KindFreeShipping waives the shipping fee without touching the subtotal.
	KindFreeShipping Kind = "free_shipping"
)

// Status enumerates the lifecycle states of a promotion.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusScheduled Status = "scheduled"
)

// VariantRef identifies an exact (product, variant) pair for variant-level
// targeting.
type VariantRef struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
}

// Targeting narrows a promotion to a subset of the catalog. Empty allow-lists
// mean no restriction on that axis; the exclusion list always wins.
type Targeting struct {
	Products         []string     `json:"products,omitempty"`
	Categories       []string     `json:"categories,omitempty"`
	Brands           []string     `json:"brands,omitempty"`
	ExcludedProducts []string     `json:"excluded_products,omitempty"`
	Variants         []VariantRef `json:"variants,omitempty"`
}

// IsEmpty reports whether the targeting places no restriction at all.
func (t Targeting) IsEmpty() bool {
	return len(t.Products) == 0 && len(t.Categories) == 0 &&
		len(t.Brands) == 0 && len(t.ExcludedProducts) == 0 && len(t.Variants) == 0
}

// Excludes reports whether the product is on the deny-list.
func (t Targeting) Excludes(productID string) bool {
	for _, id := range t.ExcludedProducts {
		if id == productID {
			return true
		}
	}
	return false
}

// MatchesVariant reports whether the exact (product, variant) pair is listed
// in the variant-level targeting.
func (t Targeting) MatchesVariant(productID, variantID string) bool {
	for _, v := range t.Variants {
		if v.ProductID == productID && v.VariantID == variantID {
			return true
		}
	}
	return false
}

// Covers reports whether the targeting admits the given cart item. The
// exclusion list is checked first; an empty targeting covers everything.
func (t Targeting) Covers(item cart.Item) bool {
	if t.Excludes(item.ProductID) {
		return false
	}
	if len(t.Variants) > 0 && t.MatchesVariant(item.ProductID, item.VariantID) {
		return true
	}
	if len(t.Products) == 0 && len(t.Categories) == 0 && len(t.Brands) == 0 && len(t.Variants) == 0 {
		return true
	}
	for _, id := range t.Products {
		if id == item.ProductID {
			return true
		}
	}
	for _, c := range t.Categories {
		if c == item.Category {
			return true
		}
	}
	for _, b := range t.Brands {
		if b == item.Brand {
			return true
		}
	}
	return false
}

// Promotion is a time-boxed, auto-applied marketing rule. Promotions are
// created by an external admin surface and are read-only here, except for
// usage counters owned by the redemption ledger.
type Promotion struct {
	ID          string
	Name        string
	Description string
	Kind        Kind
	Status      Status

	// StartsAt and EndsAt bound the validity window, inclusive at both ends.
	// A nil EndsAt means the promotion never expires.
	StartsAt time.Time
	EndsAt   *time.Time

	Conditions []Condition
	Actions    []Action
	Targeting  Targeting

	// UsageLimit of 0 means unlimited. Invariant: UsageCount <= UsageLimit
	// whenever UsageLimit is set.
	UsageLimit   int
	UsageCount   int
	PerUserLimit int

	Stackable bool
	Priority  int
}

// Exhausted reports whether the global usage ceiling has been reached.
// A UsageLimit of zero means unlimited.
func (p *Promotion) Exhausted() bool {
	return p.UsageLimit > 0 && p.UsageCount >= p.UsageLimit
}

// Repository provides read access to the promotion catalog.
type Repository interface {
	// ListActive returns promotions with active status, ordered by priority
	// descending and declaration order within equal priorities.
	ListActive(ctx context.Context) ([]Promotion, error)
}
