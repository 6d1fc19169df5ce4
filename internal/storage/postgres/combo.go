package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopkart/promo-engine/internal/domain/combo"
)

const listActiveCombosSQL = `SELECT id, name, description, kind, status,
	items, original_price, combo_price,
	buy_quantity, get_quantity, get_discount,
	starts_at, ends_at
	FROM combos WHERE status = 'active'`

var _ combo.Repository = (*ComboRepository)(nil)

// ComboRepository implements combo.Repository backed by PostgreSQL.
type ComboRepository struct {
	pool *pgxpool.Pool
}

// NewComboRepository returns a ComboRepository that uses the given pool.
func NewComboRepository(pool *pgxpool.Pool) *ComboRepository {
	return &ComboRepository{pool: pool}
}

// ListActive returns all combos with active status. Schedule filtering is
// left to the caller so a single load serves carts evaluated at different
// instants.
func (r *ComboRepository) ListActive(ctx context.Context) ([]combo.ComboProduct, error) {
	rows, err := r.pool.Query(ctx, listActiveCombosSQL)
	if err != nil {
		return nil, fmt.Errorf("listing active combos: %w", err)
	}

	combos, err := pgx.CollectRows(rows, scanCombo)
	if err != nil {
		return nil, fmt.Errorf("listing active combos: %w", err)
	}
	return combos, nil
}

func scanCombo(row pgx.CollectableRow) (combo.ComboProduct, error) {
	var (
		c        combo.ComboProduct
		kind     string
		status   string
		items    []byte
		buyQty   int32
		getQty   int32
		startsAt *time.Time
		endsAt   *time.Time
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &kind, &status,
		&items, &c.OriginalPrice, &c.ComboPrice,
		&buyQty, &getQty, &c.GetDiscount,
		&startsAt, &endsAt,
	)
	if err != nil {
		return combo.ComboProduct{}, err
	}

	c.Kind = combo.Kind(kind)
	c.Status = combo.Status(status)
	c.BuyQuantity = int(buyQty)
	c.GetQuantity = int(getQty)
	c.StartsAt = startsAt
	c.EndsAt = endsAt

	if err := json.Unmarshal(items, &c.Items); err != nil {
		return combo.ComboProduct{}, fmt.Errorf("decoding items for combo %q: %w", c.ID, err)
	}
	return c, nil
}
