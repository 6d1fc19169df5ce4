package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/shopkart/promo-engine/internal/domain/cart"
	"github.com/shopkart/promo-engine/internal/domain/discount"
)

// Result is the verdict of validating a single coupon code against a cart.
// An invalid coupon is expected user input, not a fault: failures are
// reported through Valid/Message, never as Go errors.
type Result struct {
	Valid        bool
	Discount     decimal.Decimal
	FreeShipping bool
	Message      string
	Coupon       *Coupon
}

// Validator checks a user-submitted code against a cart snapshot and computes
// the resulting discount. It performs no mutation, so it is safe to call on
// every re-evaluation of the same cart; usage counters move only when the
// Ledger records a redemption at order commit.
type Validator struct {
	coupons Repository
	orders  OrderHistory
	now     func() time.Time
}

// NewValidator creates a Validator. orders may be nil, in which case
// first-order-only coupons are accepted for every user.
func NewValidator(coupons Repository, orders OrderHistory) *Validator {
	return &Validator{coupons: coupons, orders: orders, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate runs the ordered eligibility checks for the given code,
// short-circuiting on the first failure. The check order is part of the
// contract: each failure yields a distinct, deterministic user-facing
// message. A non-nil error indicates a system fault (e.g. storage), never a
// business rejection.
func (v *Validator) Validate(ctx context.Context, code, userID string, items []cart.Item) (Result, error) {
	c, err := v.coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return reject("Invalid coupon code"), nil
		}
		return Result{}, errors.Wrap(err, "lookup coupon")
	}

	if c.Status != StatusActive {
		return reject("Coupon is not active"), nil
	}

	now := v.now()
	if now.Before(c.StartsAt) {
		return reject("Coupon has not started yet"), nil
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return reject("Coupon has expired"), nil
	}

	if c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit {
		return reject("Coupon usage limit reached"), nil
	}

	if c.PerUserLimit > 0 && userID != "" {
		used, err := v.coupons.CountUserRedemptions(ctx, c.ID, userID)
		if err != nil {
			return Result{}, errors.Wrap(err, "count user redemptions")
		}
		if used >= c.PerUserLimit {
			return reject("Coupon usage limit reached for your account"), nil
		}
	}

	if len(c.RestrictedToUsers) > 0 && !containsUser(c.RestrictedToUsers, userID) {
		return reject("Coupon is not valid for your account"), nil
	}

	if c.FirstOrderOnly && v.orders != nil && userID != "" {
		ordered, err := v.orders.HasOrdered(ctx, userID)
		if err != nil {
			return Result{}, errors.Wrap(err, "check order history")
		}
		if ordered {
			return reject("Coupon is valid for first orders only"), nil
		}
	}

	cartTotal := cart.Subtotal(items)
	if c.MinOrderAmount.IsPositive() && cartTotal.LessThan(c.MinOrderAmount) {
		return reject(fmt.Sprintf("A minimum order amount of %s is required", c.MinOrderAmount)), nil
	}
	if c.MinQuantity > 0 && cart.TotalQuantity(items) < c.MinQuantity {
		return reject(fmt.Sprintf("A minimum quantity of %d is required", c.MinQuantity)), nil
	}

	res, err := computeDiscount(c, cartTotal)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Valid:        true,
		Discount:     discount.RoundCurrency(res.Amount),
		FreeShipping: res.FreeShipping,
		Coupon:       c,
	}, nil
}

// computeDiscount maps the coupon's discount type onto the calculator.
func computeDiscount(c *Coupon, cartTotal decimal.Decimal) (discount.Result, error) {
	switch c.DiscountType {
	case DiscountPercentage:
		return discount.Result{Amount: discount.Percentage(cartTotal, c.Value, c.MaxDiscount)}, nil
	case DiscountFixed:
		return discount.Result{Amount: discount.Fixed(cartTotal, c.Value)}, nil
	case DiscountFreeShipping:
		return discount.FreeShipping(), nil
	default:
		return discount.Result{}, errors.Errorf("unsupported discount type: %q", c.DiscountType)
	}
}

func reject(message string) Result {
	return Result{Valid: false, Discount: decimal.Zero, Message: message}
}

func containsUser(users []string, userID string) bool {
	for _, u := range users {
		if u == userID {
			return true
		}
	}
	return false
}
