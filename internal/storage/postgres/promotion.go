package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopkart/promo-engine/internal/domain/promotion"
)

// Conditions, actions, and targeting are stored as JSONB documents; the
// tagged-variant structs in the promotion package define their shape.
const listActivePromotionsSQL = `SELECT id, name, description, kind, status,
	starts_at, ends_at, conditions, actions, targeting,
	usage_limit, usage_count, per_user_limit, stackable, priority
	FROM promotions WHERE status = 'active'
	ORDER BY priority DESC, position ASC`

var _ promotion.Repository = (*PromotionRepository)(nil)

// PromotionRepository implements promotion.Repository backed by PostgreSQL.
type PromotionRepository struct {
	pool *pgxpool.Pool
}

// NewPromotionRepository returns a PromotionRepository that uses the given pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// ListActive returns active-status promotions ordered by priority descending
// and configured position within equal priorities, so matching ties stay
// deterministic.
func (r *PromotionRepository) ListActive(ctx context.Context) ([]promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, listActivePromotionsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing active promotions: %w", err)
	}

	promos, err := pgx.CollectRows(rows, scanPromotion)
	if err != nil {
		return nil, fmt.Errorf("listing active promotions: %w", err)
	}
	return promos, nil
}

func scanPromotion(row pgx.CollectableRow) (promotion.Promotion, error) {
	var (
		p          promotion.Promotion
		kind       string
		status     string
		endsAt     *time.Time
		conditions []byte
		actions    []byte
		targeting  []byte
		limit      int32
		count      int32
		perUser    int32
		priority   int32
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &kind, &status,
		&p.StartsAt, &endsAt, &conditions, &actions, &targeting,
		&limit, &count, &perUser, &p.Stackable, &priority,
	)
	if err != nil {
		return promotion.Promotion{}, err
	}

	p.Kind = promotion.Kind(kind)
	p.Status = promotion.Status(status)
	p.EndsAt = endsAt
	p.UsageLimit = int(limit)
	p.UsageCount = int(count)
	p.PerUserLimit = int(perUser)
	p.Priority = int(priority)

	if err := json.Unmarshal(conditions, &p.Conditions); err != nil {
		return promotion.Promotion{}, fmt.Errorf("decoding conditions for promotion %q: %w", p.ID, err)
	}
	if err := json.Unmarshal(actions, &p.Actions); err != nil {
		return promotion.Promotion{}, fmt.Errorf("decoding actions for promotion %q: %w", p.ID, err)
	}
	if err := json.Unmarshal(targeting, &p.Targeting); err != nil {
		return promotion.Promotion{}, fmt.Errorf("decoding targeting for promotion %q: %w", p.ID, err)
	}
	return p, nil
}
