package checkout

import (
	"github.com/go-faster/errors"

	"github.com/shopkart/promo-engine/internal/domain/coupon"
	"github.com/shopkart/promo-engine/internal/domain/promotion"
)

// ErrNotStackable is the conflict verdict of a stacking policy: the coupon
// and the currently applied promotions may not be combined. It is a policy
// decision, not a fault.
var ErrNotStackable = errors.New("coupon cannot be combined with current promotions")

// StackingPolicy decides whether a validated coupon may be applied on top of
// the promotions already applied to the cart. Returning ErrNotStackable
// rejects the coupon; the promotions stay.
type StackingPolicy func(applied []promotion.Promotion, c *coupon.Coupon) error

// DefaultStackingPolicy allows a coupon to stack additively with stackable
// promotions. Any applied non-stackable promotion blocks the coupon, and a
// non-stackable coupon is blocked as soon as any promotion applies.
// Promotions take precedence over the coupon because they were applied
// first and automatically.
func DefaultStackingPolicy(applied []promotion.Promotion, c *coupon.Coupon) error {
	if len(applied) == 0 {
		return nil
	}
	for _, p := range applied {
		if !p.Stackable {
			return ErrNotStackable
		}
	}
	if !c.Stackable {
		return ErrNotStackable
	}
	return nil
}
