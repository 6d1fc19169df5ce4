package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopkart/promo-engine/internal/domain/coupon"
)

const (
	// The WHERE clause enforces the global limit at increment time, so two
	// concurrent redemptions can never push usage_count past usage_limit.
	claimRedemptionSQL = `UPDATE coupons
		SET usage_count = usage_count + 1
		WHERE id = $1 AND (usage_limit = 0 OR usage_count < usage_limit)`

	countUserRedemptionsTxSQL = `SELECT COUNT(*) FROM coupon_usages
		WHERE coupon_id = $1 AND user_id = $2`

	perUserLimitSQL = `SELECT per_user_limit FROM coupons WHERE id = $1`

	insertUsageSQL = `INSERT INTO coupon_usages (id, coupon_id, user_id, order_id, discount_applied, used_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
)

var _ coupon.Ledger = (*UsageLedger)(nil)

// UsageLedger implements coupon.Ledger backed by PostgreSQL. All checks and
// the counter increment run inside one transaction, so a redemption either
// fully commits or leaves no trace.
type UsageLedger struct {
	pool *pgxpool.Pool
}

// NewUsageLedger returns a UsageLedger that uses the given pool.
func NewUsageLedger(pool *pgxpool.Pool) *UsageLedger {
	return &UsageLedger{pool: pool}
}

// Redeem records one coupon redemption. It re-checks both the global and the
// per-user ceiling inside the transaction and returns coupon.ErrExhausted
// when either would be exceeded, regardless of what an earlier validation
// call observed.
func (l *UsageLedger) Redeem(ctx context.Context, usage coupon.Usage) error {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning redemption transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	tag, err := tx.Exec(ctx, claimRedemptionSQL, usage.CouponID)
	if err != nil {
		return fmt.Errorf("claiming redemption for coupon %q: %w", usage.CouponID, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrExhausted
	}

	var perUserLimit int32
	if err := tx.QueryRow(ctx, perUserLimitSQL, usage.CouponID).Scan(&perUserLimit); err != nil {
		return fmt.Errorf("reading per-user limit for coupon %q: %w", usage.CouponID, err)
	}
	if perUserLimit > 0 {
		var used int32
		err := tx.QueryRow(ctx, countUserRedemptionsTxSQL, usage.CouponID, usage.UserID).Scan(&used)
		if err != nil {
			return fmt.Errorf("counting user redemptions for coupon %q: %w", usage.CouponID, err)
		}
		if used >= perUserLimit {
			return coupon.ErrExhausted
		}
	}

	_, err = tx.Exec(ctx, insertUsageSQL,
		usage.ID, usage.CouponID, usage.UserID, usage.OrderID, usage.DiscountApplied, usage.UsedAt,
	)
	if err != nil {
		return fmt.Errorf("recording usage for coupon %q: %w", usage.CouponID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing redemption for coupon %q: %w", usage.CouponID, err)
	}
	return nil
}
