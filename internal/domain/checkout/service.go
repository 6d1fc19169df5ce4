// Package checkout orchestrates the promotion engine: it assembles the
// active promotion/combo snapshot, runs the pure matchers and calculators
// over a cart, merges a coupon according to the stacking policy, and records
// redemptions at order commit.
package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/shopkart/promo-engine/internal/domain/cart"
	"github.com/shopkart/promo-engine/internal/domain/combo"
	"github.com/shopkart/promo-engine/internal/domain/coupon"
	"github.com/shopkart/promo-engine/internal/domain/discount"
	"github.com/shopkart/promo-engine/internal/domain/promotion"
)

// EvaluateRequest is a read-only snapshot of everything the engine needs to
// price a cart. The caller supplies it on every evaluation; the engine keeps
// no state between calls, so identical inputs always price identically.
type EvaluateRequest struct {
	Items        []cart.Item
	CustomerTags []string
	CouponCode   string
	UserID       string
}

// AppliedPromotion pairs a matched promotion with its computed discount.
type AppliedPromotion struct {
	Promotion    promotion.Promotion
	Discount     decimal.Decimal
	FreeShipping bool
}

// Evaluation is the priced result of a cart evaluation.
type Evaluation struct {
	Subtotal          decimal.Decimal
	PromotionDiscount decimal.Decimal
	ComboSavings      decimal.Decimal
	CouponDiscount    decimal.Decimal
	TotalDiscount     decimal.Decimal
	Total             decimal.Decimal
	FreeShipping      bool
	Applied           []AppliedPromotion
	Coupon            *coupon.Result
	Lines             []combo.GeneratedLine
}

// RedemptionRequest records that an order consuming a coupon was durably
// committed.
type RedemptionRequest struct {
	CouponID        string
	UserID          string
	OrderID         string
	DiscountApplied decimal.Decimal
}

// Service wires the engine's pure components to their data sources.
type Service struct {
	promotions promotion.Repository
	combos     combo.Repository
	coupons    *coupon.Validator
	ledger     coupon.Ledger
	policy     StackingPolicy
	now        func() time.Time

	redemptions metric.Int64Counter
}

// Option customises a Service.
type Option func(*Service)

// WithStackingPolicy replaces the default coupon/promotion stacking policy.
func WithStackingPolicy(p StackingPolicy) Option {
	return func(s *Service) { s.policy = p }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a checkout Service with the required dependencies.
func NewService(
	promotions promotion.Repository,
	combos combo.Repository,
	coupons *coupon.Validator,
	ledger coupon.Ledger,
	opts ...Option,
) *Service {
	s := &Service{
		promotions: promotions,
		combos:     combos,
		coupons:    coupons,
		ledger:     ledger,
		policy:     DefaultStackingPolicy,
		now:        time.Now,
	}
	s.redemptions, _ = otel.Meter("shopkart.promo-engine/checkout").Int64Counter(
		"promo.coupon.redemptions",
		metric.WithDescription("Number of coupon redemptions recorded"),
	)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate prices the cart: automatic promotions first, then combo offers,
// then the coupon merged per the stacking policy. Rounding happens once, on
// the final totals.
func (s *Service) Evaluate(ctx context.Context, req EvaluateRequest) (*Evaluation, error) {
	now := s.now()
	subtotal := cart.Subtotal(req.Items)

	eval := &Evaluation{
		Subtotal:          discount.RoundCurrency(subtotal),
		PromotionDiscount: decimal.Zero,
		ComboSavings:      decimal.Zero,
		CouponDiscount:    decimal.Zero,
	}

	promos, err := s.promotions.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list active promotions")
	}

	matches, err := promotion.MatchCart(req.Items, req.CustomerTags, now, promos)
	if err != nil {
		return nil, errors.Wrap(err, "match cart promotions")
	}

	promoTotal := decimal.Zero
	for _, p := range matches {
		res, err := applyPromotion(p, req.Items)
		if err != nil {
			return nil, errors.Wrapf(err, "apply promotion %q", p.ID)
		}
		promoTotal = promoTotal.Add(res.Amount)
		eval.FreeShipping = eval.FreeShipping || res.FreeShipping
		eval.Applied = append(eval.Applied, AppliedPromotion{
			Promotion:    p,
			Discount:     discount.RoundCurrency(res.Amount),
			FreeShipping: res.FreeShipping,
		})
	}

	comboSavings, lines, err := s.applyCombos(ctx, req.Items, now)
	if err != nil {
		return nil, err
	}
	eval.Lines = lines

	couponTotal := decimal.Zero
	if req.CouponCode != "" {
		res, err := s.coupons.Validate(ctx, req.CouponCode, req.UserID, req.Items)
		if err != nil {
			return nil, errors.Wrap(err, "validate coupon")
		}
		if res.Valid {
			if perr := s.policy(matches, res.Coupon); perr != nil {
				res = coupon.Result{Valid: false, Discount: decimal.Zero, Message: perr.Error()}
			}
		}
		if res.Valid {
			couponTotal = res.Discount
			eval.FreeShipping = eval.FreeShipping || res.FreeShipping
		}
		eval.Coupon = &res
	}

	total := promoTotal.Add(comboSavings).Add(couponTotal)
	if total.GreaterThan(subtotal) {
		total = subtotal
	}

	eval.PromotionDiscount = discount.RoundCurrency(promoTotal)
	eval.ComboSavings = discount.RoundCurrency(comboSavings)
	eval.CouponDiscount = discount.RoundCurrency(couponTotal)
	eval.TotalDiscount = discount.RoundCurrency(total)
	eval.Total = discount.RoundCurrency(subtotal.Sub(total))
	return eval, nil
}

// applyPromotion computes the discount a single matched promotion grants.
// Percentage and fixed actions operate on the subtotal of the line items the
// promotion covers; the amount never exceeds that covered subtotal.
func applyPromotion(p promotion.Promotion, items []cart.Item) (discount.Result, error) {
	covered := promotion.CoveredItems(p.Targeting, items)
	coveredTotal := cart.Subtotal(covered)

	res := discount.Result{Amount: decimal.Zero}
	for _, a := range p.Actions {
		switch a.Kind {
		case promotion.ActionPercentOff:
			res.Amount = res.Amount.Add(discount.Percentage(coveredTotal, a.Percent, a.MaxDiscount))
		case promotion.ActionAmountOff:
			res.Amount = res.Amount.Add(discount.Fixed(coveredTotal, a.Amount))
		case promotion.ActionFreeItem:
			res.Amount = res.Amount.Add(discount.FreeUnit(items, a.ProductID))
		case promotion.ActionFreeShipping:
			res.FreeShipping = true
		case promotion.ActionBOGO:
			res.Amount = res.Amount.Add(discount.BOGO(covered, a.BuyQuantity, a.GetQuantity, a.GetDiscount))
		default:
			return discount.Result{}, errors.Errorf("unsupported action kind: %q", a.Kind)
		}
	}
	if res.Amount.GreaterThan(coveredTotal) {
		res.Amount = coveredTotal
	}
	return res, nil
}

// applyCombos finds active combos the cart completes and sums their savings,
// collecting the generated line items.
func (s *Service) applyCombos(ctx context.Context, items []cart.Item, now time.Time) (decimal.Decimal, []combo.GeneratedLine, error) {
	combos, err := s.combos.ListActive(ctx)
	if err != nil {
		return decimal.Zero, nil, errors.Wrap(err, "list active combos")
	}

	savings := decimal.Zero
	var lines []combo.GeneratedLine
	for i := range combos {
		c := &combos[i]
		if !c.ActiveAt(now) {
			continue
		}
		sets := combo.Sets(c, items)
		if sets == 0 {
			continue
		}
		q, err := combo.Price(c, sets)
		if err != nil {
			return decimal.Zero, nil, errors.Wrapf(err, "price combo %q", c.ID)
		}
		savings = savings.Add(q.Savings)
		lines = append(lines, q.Lines...)
	}
	return savings, lines, nil
}

// ValidateCoupon checks a user-submitted code without mutating anything.
func (s *Service) ValidateCoupon(ctx context.Context, code, userID string, items []cart.Item) (coupon.Result, error) {
	return s.coupons.Validate(ctx, code, userID, items)
}

// PromotionForProduct returns the highest-priority promotion applying to the
// (product, variant) pair, or nil when none matches.
func (s *Service) PromotionForProduct(ctx context.Context, productID, variantID string) (*promotion.Promotion, error) {
	promos, err := s.promotions.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list active promotions")
	}
	return promotion.MatchProduct(productID, variantID, s.now(), promos), nil
}

// RecordRedemption appends a usage record and bumps the coupon's usage
// counter in one atomic unit. It is called only once per order, at the
// moment the order is durably committed. coupon.ErrExhausted propagates
// unchanged so callers can surface the commit-time race distinctly.
func (s *Service) RecordRedemption(ctx context.Context, req RedemptionRequest) error {
	u := coupon.Usage{
		ID:              uuid.New().String(),
		CouponID:        req.CouponID,
		UserID:          req.UserID,
		OrderID:         req.OrderID,
		DiscountApplied: req.DiscountApplied,
		UsedAt:          s.now(),
	}
	if err := s.ledger.Redeem(ctx, u); err != nil {
		if errors.Is(err, coupon.ErrExhausted) {
			return err
		}
		return errors.Wrap(err, "record redemption")
	}
	if s.redemptions != nil {
		s.redemptions.Add(ctx, 1)
	}
	return nil
}
