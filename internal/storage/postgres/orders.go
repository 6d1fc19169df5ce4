package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopkart/promo-engine/internal/domain/coupon"
)

const hasOrderedSQL = `SELECT EXISTS(SELECT 1 FROM orders WHERE user_id = $1)`

var _ coupon.OrderHistory = (*OrderHistoryRepository)(nil)

// OrderHistoryRepository answers first-order checks from the orders table.
type OrderHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewOrderHistoryRepository returns an OrderHistoryRepository that uses the
// given pool.
func NewOrderHistoryRepository(pool *pgxpool.Pool) *OrderHistoryRepository {
	return &OrderHistoryRepository{pool: pool}
}

// HasOrdered reports whether the user has any prior order on record.
func (r *OrderHistoryRepository) HasOrdered(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, hasOrderedSQL, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking order history for user %q: %w", userID, err)
	}
	return exists, nil
}
