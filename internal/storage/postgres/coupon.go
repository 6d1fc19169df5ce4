package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopkart/promo-engine/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT id, code, description, discount_type, value, max_discount,
		min_order_amount, min_quantity, starts_at, ends_at,
		usage_limit, usage_count, per_user_limit,
		restricted_to_users, first_order_only, stackable, status
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	countUserRedemptionsSQL = `SELECT COUNT(*) FROM coupon_usages
		WHERE coupon_id = $1 AND user_id = $2`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive).
// Returns coupon.ErrNotFound when no such coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// CountUserRedemptions counts the append-only usage records for the
// (coupon, user) pair.
func (r *CouponRepository) CountUserRedemptions(ctx context.Context, couponID, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, countUserRedemptionsSQL, couponID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting redemptions for coupon %q user %q: %w", couponID, userID, err)
	}
	return count, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		status       string
		endsAt       *time.Time
		limit        int32
		count        int32
		perUser      int32
		minQty       int32
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &discountType, &c.Value, &c.MaxDiscount,
		&c.MinOrderAmount, &minQty, &c.StartsAt, &endsAt,
		&limit, &count, &perUser,
		&c.RestrictedToUsers, &c.FirstOrderOnly, &c.Stackable, &status,
	)
	c.DiscountType = coupon.DiscountType(discountType)
	c.Status = coupon.Status(status)
	c.EndsAt = endsAt
	c.MinQuantity = int(minQty)
	c.UsageLimit = int(limit)
	c.UsageCount = int(count)
	c.PerUserLimit = int(perUser)
	return c, err
}
