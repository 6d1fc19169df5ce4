// Command seed-db loads a JSON catalog of promotions, coupons, and combos
// into the database, creating the schema first when needed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shopkart/promo-engine/internal/storage/postgres"
)

type promotionJSON struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Kind         string          `json:"kind"`
	Status       string          `json:"status"`
	StartsAt     time.Time       `json:"startsAt"`
	EndsAt       *time.Time      `json:"endsAt"`
	Conditions   json.RawMessage `json:"conditions"`
	Actions      json.RawMessage `json:"actions"`
	Targeting    json.RawMessage `json:"targeting"`
	UsageLimit   int             `json:"usageLimit"`
	PerUserLimit int             `json:"perUserLimit"`
	Stackable    bool            `json:"stackable"`
	Priority     int             `json:"priority"`
	Position     int             `json:"position"`
}

type couponJSON struct {
	ID                string          `json:"id"`
	Code              string          `json:"code"`
	Description       string          `json:"description"`
	DiscountType      string          `json:"discountType"`
	Value             decimal.Decimal `json:"value"`
	MaxDiscount       decimal.Decimal `json:"maxDiscount"`
	MinOrderAmount    decimal.Decimal `json:"minOrderAmount"`
	MinQuantity       int             `json:"minQuantity"`
	StartsAt          time.Time       `json:"startsAt"`
	EndsAt            *time.Time      `json:"endsAt"`
	UsageLimit        int             `json:"usageLimit"`
	PerUserLimit      int             `json:"perUserLimit"`
	RestrictedToUsers []string        `json:"restrictedToUsers"`
	FirstOrderOnly    bool            `json:"firstOrderOnly"`
	Stackable         bool            `json:"stackable"`
	Status            string          `json:"status"`
}

type comboJSON struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Kind          string          `json:"kind"`
	Status        string          `json:"status"`
	Items         json.RawMessage `json:"items"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	ComboPrice    decimal.Decimal `json:"comboPrice"`
	BuyQuantity   int             `json:"buyQuantity"`
	GetQuantity   int             `json:"getQuantity"`
	GetDiscount   decimal.Decimal `json:"getDiscount"`
	StartsAt      *time.Time      `json:"startsAt"`
	EndsAt        *time.Time      `json:"endsAt"`
}

type catalogJSON struct {
	Promotions []promotionJSON `json:"promotions"`
	Coupons    []couponJSON    `json:"coupons"`
	Combos     []comboJSON     `json:"combos"`
}

const (
	upsertPromotionSQL = `INSERT INTO promotions (id, name, description, kind, status,
			starts_at, ends_at, conditions, actions, targeting,
			usage_limit, per_user_limit, stackable, priority, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description,
			kind = EXCLUDED.kind, status = EXCLUDED.status,
			starts_at = EXCLUDED.starts_at, ends_at = EXCLUDED.ends_at,
			conditions = EXCLUDED.conditions, actions = EXCLUDED.actions,
			targeting = EXCLUDED.targeting, usage_limit = EXCLUDED.usage_limit,
			per_user_limit = EXCLUDED.per_user_limit, stackable = EXCLUDED.stackable,
			priority = EXCLUDED.priority, position = EXCLUDED.position`

	upsertCouponSQL = `INSERT INTO coupons (id, code, description, discount_type, value,
			max_discount, min_order_amount, min_quantity, starts_at, ends_at,
			usage_limit, per_user_limit, restricted_to_users, first_order_only,
			stackable, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (code) DO UPDATE SET
			description = EXCLUDED.description, discount_type = EXCLUDED.discount_type,
			value = EXCLUDED.value, max_discount = EXCLUDED.max_discount,
			min_order_amount = EXCLUDED.min_order_amount, min_quantity = EXCLUDED.min_quantity,
			starts_at = EXCLUDED.starts_at, ends_at = EXCLUDED.ends_at,
			usage_limit = EXCLUDED.usage_limit, per_user_limit = EXCLUDED.per_user_limit,
			restricted_to_users = EXCLUDED.restricted_to_users,
			first_order_only = EXCLUDED.first_order_only,
			stackable = EXCLUDED.stackable, status = EXCLUDED.status`

	upsertComboSQL = `INSERT INTO combos (id, name, description, kind, status, items,
			original_price, combo_price, buy_quantity, get_quantity, get_discount,
			starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description,
			kind = EXCLUDED.kind, status = EXCLUDED.status, items = EXCLUDED.items,
			original_price = EXCLUDED.original_price, combo_price = EXCLUDED.combo_price,
			buy_quantity = EXCLUDED.buy_quantity, get_quantity = EXCLUDED.get_quantity,
			get_discount = EXCLUDED.get_discount,
			starts_at = EXCLUDED.starts_at, ends_at = EXCLUDED.ends_at`
)

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	slog.Info("reading catalog file", slog.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}

	var catalog catalogJSON
	if err := json.Unmarshal(data, &catalog); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedPromotions(ctx, pool, catalog.Promotions); err != nil {
		return errors.Wrap(err, "seed promotions")
	}
	if err := seedCoupons(ctx, pool, catalog.Coupons); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedCombos(ctx, pool, catalog.Combos); err != nil {
		return errors.Wrap(err, "seed combos")
	}

	return nil
}

func seedPromotions(ctx context.Context, pool *pgxpool.Pool, promos []promotionJSON) error {
	slog.Info("upserting promotions", slog.Int("count", len(promos)))

	for _, p := range promos {
		_, err := pool.Exec(ctx, upsertPromotionSQL,
			p.ID, p.Name, p.Description, p.Kind, p.Status,
			p.StartsAt, p.EndsAt, rawOr(p.Conditions, "[]"), rawOr(p.Actions, "[]"), rawOr(p.Targeting, "{}"),
			p.UsageLimit, p.PerUserLimit, p.Stackable, p.Priority, p.Position,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert promotion %s", p.ID)
		}

		slog.Info("upserted promotion", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool, coupons []couponJSON) error {
	slog.Info("upserting coupons", slog.Int("count", len(coupons)))

	for _, c := range coupons {
		restricted := c.RestrictedToUsers
		if restricted == nil {
			restricted = []string{}
		}
		_, err := pool.Exec(ctx, upsertCouponSQL,
			c.ID, c.Code, c.Description, c.DiscountType, c.Value,
			c.MaxDiscount, c.MinOrderAmount, c.MinQuantity, c.StartsAt, c.EndsAt,
			c.UsageLimit, c.PerUserLimit, restricted, c.FirstOrderOnly,
			c.Stackable, c.Status,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}

		slog.Info("upserted coupon", slog.String("code", c.Code))
	}

	return nil
}

func seedCombos(ctx context.Context, pool *pgxpool.Pool, combos []comboJSON) error {
	slog.Info("upserting combos", slog.Int("count", len(combos)))

	for _, c := range combos {
		_, err := pool.Exec(ctx, upsertComboSQL,
			c.ID, c.Name, c.Description, c.Kind, c.Status, rawOr(c.Items, "[]"),
			c.OriginalPrice, c.ComboPrice, c.BuyQuantity, c.GetQuantity, c.GetDiscount,
			c.StartsAt, c.EndsAt,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert combo %s", c.ID)
		}

		slog.Info("upserted combo", slog.String("id", c.ID), slog.String("name", c.Name))
	}

	return nil
}

func rawOr(raw json.RawMessage, fallback string) []byte {
	if len(raw) == 0 {
		return []byte(fallback)
	}
	return raw
}
