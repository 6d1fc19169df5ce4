package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopkart/promo-engine/internal/domain/cart"
	"github.com/shopkart/promo-engine/internal/domain/combo"
	"github.com/shopkart/promo-engine/internal/domain/coupon"
	"github.com/shopkart/promo-engine/internal/domain/promotion"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type stubPromotions struct {
	promos []promotion.Promotion
}

func (s *stubPromotions) ListActive(_ context.Context) ([]promotion.Promotion, error) {
	return s.promos, nil
}

type stubCombos struct {
	combos []combo.ComboProduct
}

func (s *stubCombos) ListActive(_ context.Context) ([]combo.ComboProduct, error) {
	return s.combos, nil
}

type stubCoupons struct {
	coupon *coupon.Coupon
}

func (s *stubCoupons) FindByCode(_ context.Context, _ string) (*coupon.Coupon, error) {
	if s.coupon == nil {
		return nil, coupon.ErrNotFound
	}
	c := *s.coupon
	return &c, nil
}

func (s *stubCoupons) CountUserRedemptions(_ context.Context, _, _ string) (int, error) {
	return 0, nil
}

type stubLedger struct {
	mu    sync.Mutex
	calls []coupon.Usage
	limit int
}

func (s *stubLedger) Redeem(_ context.Context, u coupon.Usage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limit > 0 && len(s.calls) >= s.limit {
		return coupon.ErrExhausted
	}
	s.calls = append(s.calls, u)
	return nil
}

func percentPromo(id string, priority int, stackable bool, percent string) promotion.Promotion {
	return promotion.Promotion{
		ID:        id,
		Name:      id,
		Kind:      promotion.KindPercentage,
		Status:    promotion.StatusActive,
		StartsAt:  fixedNow.AddDate(0, -1, 0),
		Actions:   []promotion.Action{{Kind: promotion.ActionPercentOff, Percent: d(percent)}},
		Stackable: stackable,
		Priority:  priority,
	}
}

func activeCoupon(stackable bool) *coupon.Coupon {
	return &coupon.Coupon{
		ID:           "cpn-1",
		Code:         "SAVE10",
		DiscountType: coupon.DiscountPercentage,
		Value:        d("10"),
		StartsAt:     fixedNow.AddDate(0, -1, 0),
		Status:       coupon.StatusActive,
		Stackable:    stackable,
	}
}

func newTestService(promos []promotion.Promotion, combos []combo.ComboProduct, cpn *coupon.Coupon, ledger coupon.Ledger) *Service {
	clock := func() time.Time { return fixedNow }
	validator := coupon.NewValidator(&stubCoupons{coupon: cpn}, nil).WithClock(clock)
	return NewService(
		&stubPromotions{promos: promos},
		&stubCombos{combos: combos},
		validator,
		ledger,
		WithClock(clock),
	)
}

func cartItems() []cart.Item {
	return []cart.Item{
		{ProductID: "p1", Price: d("100"), Quantity: 2},
		{ProductID: "p2", Price: d("50"), Quantity: 1},
	}
}

func TestEvaluatePromotionOnly(t *testing.T) {
	svc := newTestService([]promotion.Promotion{percentPromo("ten-off", 1, false, "10")}, nil, nil, nil)

	eval, err := svc.Evaluate(context.Background(), EvaluateRequest{Items: cartItems()})
	require.NoError(t, err)

	assert.True(t, d("250").Equal(eval.Subtotal))
	assert.True(t, d("25").Equal(eval.TotalDiscount), "got %s", eval.TotalDiscount)
	assert.True(t, d("225").Equal(eval.Total))
	require.Len(t, eval.Applied, 1)
	assert.Equal(t, "ten-off", eval.Applied[0].Promotion.ID)
	assert.Nil(t, eval.Coupon)
}

func TestEvaluateCouponStacksWithStackablePromotion(t *testing.T) {
	svc := newTestService(
		[]promotion.Promotion{percentPromo("ten-off", 1, true, "10")},
		nil,
		activeCoupon(true),
		nil,
	)

	eval, err := svc.Evaluate(context.Background(), EvaluateRequest{
		Items:      cartItems(),
		CouponCode: "SAVE10",
		UserID:     "u1",
	})
	require.NoError(t, err)

	require.NotNil(t, eval.Coupon)
	assert.True(t, eval.Coupon.Valid)
	assert.True(t, d("25").Equal(eval.PromotionDiscount))
	assert.True(t, d("25").Equal(eval.CouponDiscount))
	assert.True(t, d("50").Equal(eval.TotalDiscount))
}

func TestEvaluateNonStackablePromotionBlocksCoupon(t *testing.T) {
	svc := newTestService(
		[]promotion.Promotion{percentPromo("exclusive", 1, false, "10")},
		nil,
		activeCoupon(true),
		nil,
	)

	eval, err := svc.Evaluate(context.Background(), EvaluateRequest{
		Items:      cartItems(),
		CouponCode: "SAVE10",
		UserID:     "u1",
	})
	require.NoError(t, err)

	require.NotNil(t, eval.Coupon)
	assert.False(t, eval.Coupon.Valid, "conflict resolved by policy, not silent stacking")
	assert.Equal(t, ErrNotStackable.Error(), eval.Coupon.Message)
	assert.True(t, eval.CouponDiscount.IsZero())
	assert.True(t, d("25").Equal(eval.TotalDiscount), "promotion discount stays")
}

func TestEvaluateCouponAloneOnBareCart(t *testing.T) {
	svc := newTestService(nil, nil, activeCoupon(false), nil)

	eval, err := svc.Evaluate(context.Background(), EvaluateRequest{
		Items:      cartItems(),
		CouponCode: "SAVE10",
		UserID:     "u1",
	})
	require.NoError(t, err)

	require.NotNil(t, eval.Coupon)
	assert.True(t, eval.Coupon.Valid, "non-stackable coupon fine when no promotion applies")
	assert.True(t, d("25").Equal(eval.TotalDiscount))
}

func TestEvaluateInvalidCouponKeepsPromotions(t *testing.T) {
	svc := newTestService([]promotion.Promotion{percentPromo("ten-off", 1, false, "10")}, nil, nil, nil)

	eval, err := svc.Evaluate(context.Background(), EvaluateRequest{
		Items:      cartItems(),
		CouponCode: "NOPE",
		UserID:     "u1",
	})
	require.NoError(t, err)

	require.NotNil(t, eval.Coupon)
	assert.False(t, eval.Coupon.Valid)
	assert.Equal(t, "Invalid coupon code", eval.Coupon.Message)
	assert.True(t, d("25").Equal(eval.TotalDiscount))
}

func TestEvaluateComboGeneratesLines(t *testing.T) {
	bogo := combo.ComboProduct{
		ID:     "cmb-1",
		Name:   "2+1",
		Kind:   combo.KindBOGO,
		Status: combo.StatusActive,
		Items: []combo.Item{
			{ProductID: "p1", Quantity: 1, Required: true, UnitPrice: d("100")},
		},
		OriginalPrice: d("300"),
		ComboPrice:    d("200"),
		BuyQuantity:   2,
		GetQuantity:   1,
		GetDiscount:   d("100"),
	}
	svc := newTestService(nil, []combo.ComboProduct{bogo}, nil, nil)

	eval, err := svc.Evaluate(context.Background(), EvaluateRequest{
		Items: []cart.Item{{ProductID: "p1", Price: d("100"), Quantity: 3}},
	})
	require.NoError(t, err)

	assert.True(t, d("100").Equal(eval.ComboSavings), "got %s", eval.ComboSavings)
	require.Len(t, eval.Lines, 2)
	assert.Equal(t, "cmb-1", eval.Lines[0].ComboID)
	assert.True(t, d("100").Equal(eval.TotalDiscount))
}

func TestEvaluateDiscountNeverExceedsSubtotal(t *testing.T) {
	svc := newTestService(
		[]promotion.Promotion{
			percentPromo("a", 2, true, "80"),
			percentPromo("b", 1, true, "80"),
		},
		nil, nil, nil,
	)

	eval, err := svc.Evaluate(context.Background(), EvaluateRequest{Items: cartItems()})
	require.NoError(t, err)

	assert.True(t, eval.TotalDiscount.Equal(eval.Subtotal))
	assert.True(t, eval.Total.IsZero())
}

func TestEvaluateIsDeterministic(t *testing.T) {
	svc := newTestService(
		[]promotion.Promotion{percentPromo("ten-off", 1, true, "10")},
		nil,
		activeCoupon(true),
		nil,
	)
	req := EvaluateRequest{Items: cartItems(), CouponCode: "SAVE10", UserID: "u1"}

	first, err := svc.Evaluate(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Evaluate(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, first.TotalDiscount.Equal(second.TotalDiscount))
	assert.True(t, first.Total.Equal(second.Total))
	assert.Equal(t, len(first.Applied), len(second.Applied))
}

func TestEvaluateFreeShippingFlag(t *testing.T) {
	ship := promotion.Promotion{
		ID:       "free-ship",
		Kind:     promotion.KindFreeShipping,
		Status:   promotion.StatusActive,
		StartsAt: fixedNow.AddDate(0, -1, 0),
		Actions:  []promotion.Action{{Kind: promotion.ActionFreeShipping}},
		Conditions: []promotion.Condition{
			{Kind: promotion.ConditionMinAmount, Amount: d("200")},
		},
	}
	svc := newTestService([]promotion.Promotion{ship}, nil, nil, nil)

	eval, err := svc.Evaluate(context.Background(), EvaluateRequest{Items: cartItems()})
	require.NoError(t, err)

	assert.True(t, eval.FreeShipping)
	assert.True(t, eval.TotalDiscount.IsZero(), "free shipping contributes no monetary discount")
}

func TestRecordRedemption(t *testing.T) {
	ledger := &stubLedger{}
	svc := newTestService(nil, nil, nil, ledger)

	err := svc.RecordRedemption(context.Background(), RedemptionRequest{
		CouponID:        "cpn-1",
		UserID:          "u1",
		OrderID:         "ord-1",
		DiscountApplied: d("25"),
	})
	require.NoError(t, err)

	require.Len(t, ledger.calls, 1)
	u := ledger.calls[0]
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "cpn-1", u.CouponID)
	assert.Equal(t, fixedNow, u.UsedAt)
}

func TestRecordRedemptionExhausted(t *testing.T) {
	ledger := &stubLedger{limit: 1}
	svc := newTestService(nil, nil, nil, ledger)

	req := RedemptionRequest{CouponID: "cpn-1", UserID: "u1", OrderID: "ord-1", DiscountApplied: d("25")}
	require.NoError(t, svc.RecordRedemption(context.Background(), req))

	err := svc.RecordRedemption(context.Background(), req)
	require.ErrorIs(t, err, coupon.ErrExhausted,
		"the commit-time race must surface distinctly, never as a generic failure")
}

func TestDefaultStackingPolicy(t *testing.T) {
	stackable := percentPromo("s", 1, true, "10")
	exclusive := percentPromo("x", 1, false, "10")

	tests := []struct {
		name    string
		applied []promotion.Promotion
		coupon  *coupon.Coupon
		wantErr error
	}{
		{name: "no promotions", applied: nil, coupon: activeCoupon(false), wantErr: nil},
		{name: "stackable promo + stackable coupon", applied: []promotion.Promotion{stackable}, coupon: activeCoupon(true), wantErr: nil},
		{name: "non-stackable promo blocks", applied: []promotion.Promotion{exclusive}, coupon: activeCoupon(true), wantErr: ErrNotStackable},
		{name: "non-stackable coupon blocked by any promo", applied: []promotion.Promotion{stackable}, coupon: activeCoupon(false), wantErr: ErrNotStackable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DefaultStackingPolicy(tt.applied, tt.coupon)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
