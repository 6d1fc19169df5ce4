// Package coupon models user-entered discount codes, their validation, and
// the contracts for the redemption ledger that prevents over-redemption.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage-based discount, optionally
	// capped at MaxDiscount.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
	// DiscountFreeShipping waives the shipping fee without touching the
	// subtotal.
	DiscountFreeShipping DiscountType = "free_shipping"
)

// Status enumerates the lifecycle states of a coupon.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusExpired  Status = "expired"
)

var (
	// ErrNotFound is returned when no coupon exists for a code.
	ErrNotFound = errors.New("coupon not found")
	// ErrExhausted is returned by the ledger when the usage limit was
	// reached between validation and commit. It must surface distinctly so
	// the UI can explain that conditions changed since validation.
	ErrExhausted = errors.New("coupon no longer available")
)

// Coupon is a user-entered code granting a discount, subject to usage and
// eligibility limits. Coupons are edited by an external admin surface and
// read-only here except for UsageCount, which only the Ledger increments.
type Coupon struct {
	ID           string
	Code         string
	Description  string
	DiscountType DiscountType
	Value        decimal.Decimal

	// MaxDiscount caps percentage discounts when positive.
	MaxDiscount    decimal.Decimal
	MinOrderAmount decimal.Decimal
	MinQuantity    int

	// StartsAt and EndsAt bound the validity window, inclusive at both ends.
	// A nil EndsAt means the coupon never expires by date.
	StartsAt time.Time
	EndsAt   *time.Time

	// UsageLimit of 0 means unlimited. Invariant: UsageCount <= UsageLimit
	// whenever UsageLimit is set.
	UsageLimit   int
	UsageCount   int
	PerUserLimit int

	// RestrictedToUsers, when non-empty, is an allow-list of user IDs.
	RestrictedToUsers []string
	FirstOrderOnly    bool
	Stackable         bool
	Status            Status
}

// Usage is an immutable redemption record, created exactly once per
// successful order that consumed a coupon and never mutated.
type Usage struct {
	ID              string
	CouponID        string
	UserID          string
	OrderID         string
	DiscountApplied decimal.Decimal
	UsedAt          time.Time
}

// Repository provides read access to coupons and their redemption history.
type Repository interface {
	// FindByCode looks up a coupon by its code, case-insensitively.
	// Returns ErrNotFound when no such coupon exists.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// CountUserRedemptions returns how many times the user has redeemed the
	// coupon, derived from the append-only usage records.
	CountUserRedemptions(ctx context.Context, couponID, userID string) (int, error)
}

// Ledger records redemptions and enforces usage ceilings. Redeem must
// conditionally increment the coupon's usage count and append the Usage
// record in one atomic unit, returning ErrExhausted when the global or
// per-user ceiling no longer holds at commit time.
type Ledger interface {
	Redeem(ctx context.Context, u Usage) error
}

// OrderHistory answers whether a user has placed any order before, for
// first-order-only coupons. The orders themselves belong to the checkout
// subsystem.
type OrderHistory interface {
	HasOrdered(ctx context.Context, userID string) (bool, error)
}
