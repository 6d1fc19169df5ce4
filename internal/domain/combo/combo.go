// Package combo models fixed product bundles sold as a unit and prices them,
// including the synthetic line items generated for buy-X-get-Y offers.
package combo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/shopkart/promo-engine/internal/domain/promotion"
)

// Kind enumerates the supported combo mechanics.
type Kind string

const (
	// KindBundle prices the whole group at the stored snapshot price.
	KindBundle Kind = "bundle"
	// KindBOGO gives discounted "get" units after a purchase threshold.
	KindBOGO Kind = "bogo"
	// KindMultiBuy is a BOGO variant with a partial discount on the extras.
	KindMultiBuy Kind = "multi_buy"
)

// Status enumerates the lifecycle states of a combo.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// ErrInvalidCombo is returned when a combo's pricing fields are inconsistent.
var ErrInvalidCombo = errors.New("invalid combo configuration")

// Item is one constituent of a combo. UnitPrice is the catalog price captured
// when the combo was configured; it is a snapshot, not a live link.
type Item struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	Required  bool            `json:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ComboProduct is a fixed bundle with a snapshot price. OriginalPrice is the
// sum of constituent prices at configuration time; ComboPrice is the
// discounted total. The prices must be recomputed by the admin surface when
// constituent prices change.
type ComboProduct struct {
	ID          string
	Name        string
	Description string
	Items       []Item
	Kind        Kind
	Status      Status

	OriginalPrice decimal.Decimal
	ComboPrice    decimal.Decimal

	// StartsAt/EndsAt bound an optional validity window, inclusive. Nil
	// means unbounded on that side.
	StartsAt *time.Time
	EndsAt   *time.Time

	// BOGO / multi-buy fields: buy BuyQuantity units, get GetQuantity units
	// at GetDiscount percent off.
	BuyQuantity int
	GetQuantity int
	GetDiscount decimal.Decimal
}

// Savings returns the per-set saving, derived as OriginalPrice - ComboPrice.
func (c *ComboProduct) Savings() decimal.Decimal {
	return c.OriginalPrice.Sub(c.ComboPrice)
}

// Validate checks the pricing invariants: savings must be non-negative, and
// threshold combos need positive buy/get quantities.
func (c *ComboProduct) Validate() error {
	if len(c.Items) == 0 {
		return errors.Wrap(ErrInvalidCombo, "no items")
	}
	if c.Savings().IsNegative() {
		return errors.Wrap(ErrInvalidCombo, "combo price exceeds original price")
	}
	if c.Kind == KindBOGO || c.Kind == KindMultiBuy {
		if c.BuyQuantity <= 0 || c.GetQuantity <= 0 {
			return errors.Wrap(ErrInvalidCombo, "buy and get quantities must be positive")
		}
	}
	return nil
}

// ActiveAt reports whether the combo is live at the given instant.
func (c *ComboProduct) ActiveAt(now time.Time) bool {
	if c.Status != StatusActive {
		return false
	}
	start := now
	if c.StartsAt != nil {
		start = *c.StartsAt
	}
	return promotion.WindowContains(start, c.EndsAt, now)
}

// Repository provides read access to the combo catalog.
type Repository interface {
	ListActive(ctx context.Context) ([]ComboProduct, error)
}
