package combo

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopkart/promo-engine/internal/domain/cart"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func bundleCombo() *ComboProduct {
	return &ComboProduct{
		ID:     "cmb-1",
		Name:   "burger meal",
		Kind:   KindBundle,
		Status: StatusActive,
		Items: []Item{
			{ProductID: "burger", Quantity: 1, Required: true, UnitPrice: d("120")},
			{ProductID: "fries", Quantity: 1, Required: true, UnitPrice: d("60")},
			{ProductID: "soda", Quantity: 1, Required: true, UnitPrice: d("40")},
		},
		OriginalPrice: d("220"),
		ComboPrice:    d("180"),
	}
}

func bogoCombo() *ComboProduct {
	return &ComboProduct{
		ID:     "cmb-2",
		Name:   "pizza 2+1",
		Kind:   KindBOGO,
		Status: StatusActive,
		Items: []Item{
			{ProductID: "pizza", Quantity: 1, Required: true, UnitPrice: d("1000")},
		},
		OriginalPrice: d("3000"),
		ComboPrice:    d("2000"),
		BuyQuantity:   2,
		GetQuantity:   1,
		GetDiscount:   d("100"),
	}
}

func TestPriceBundle(t *testing.T) {
	q, err := Price(bundleCombo(), 1)
	require.NoError(t, err)

	assert.True(t, d("180").Equal(q.Total), "bundle priced at stored combo price, got %s", q.Total)
	assert.True(t, d("40").Equal(q.Savings), "savings = original - combo, got %s", q.Savings)
	require.Len(t, q.Lines, 3)
	for _, line := range q.Lines {
		assert.Equal(t, "cmb-1", line.ComboID, "every generated line carries the combo id")
	}
}

func TestPriceBundleMultipleSets(t *testing.T) {
	q, err := Price(bundleCombo(), 3)
	require.NoError(t, err)

	assert.True(t, d("540").Equal(q.Total))
	assert.True(t, d("120").Equal(q.Savings))
	assert.Equal(t, 3, q.Lines[0].Quantity)
}

func TestPriceBundleSavingsNeverNegative(t *testing.T) {
	c := bundleCombo()
	c.ComboPrice = d("250") // above original

	_, err := Price(c, 1)
	require.ErrorIs(t, err, ErrInvalidCombo)
}

func TestPriceBOGO(t *testing.T) {
	q, err := Price(bogoCombo(), 1)
	require.NoError(t, err)

	// Buy 2 at 1000, get 1 fully free.
	assert.True(t, d("2000").Equal(q.Total), "got %s", q.Total)
	assert.True(t, d("1000").Equal(q.Savings), "got %s", q.Savings)

	require.Len(t, q.Lines, 2)
	buy, get := q.Lines[0], q.Lines[1]
	assert.Equal(t, 2, buy.Quantity)
	assert.False(t, buy.Discounted)
	assert.Equal(t, 1, get.Quantity)
	assert.True(t, get.Discounted)
	assert.True(t, get.UnitPrice.IsZero(), "100%% get discount makes the unit free")
	assert.Equal(t, "cmb-2", get.ComboID)
}

func TestPriceMultiBuyPartialDiscount(t *testing.T) {
	c := bogoCombo()
	c.Kind = KindMultiBuy
	c.GetDiscount = d("50")

	q, err := Price(c, 2)
	require.NoError(t, err)

	// 4 paid units + 2 half-price units.
	assert.True(t, d("5000").Equal(q.Total), "got %s", q.Total)
	assert.True(t, d("1000").Equal(q.Savings), "got %s", q.Savings)
}

func TestPriceZeroSets(t *testing.T) {
	q, err := Price(bundleCombo(), 0)
	require.NoError(t, err)
	assert.True(t, q.Total.IsZero())
	assert.True(t, q.Savings.IsZero())
	assert.Empty(t, q.Lines)
}

func TestSets(t *testing.T) {
	tests := []struct {
		name  string
		combo *ComboProduct
		items []cart.Item
		want  int
	}{
		{
			name:  "bundle complete once",
			combo: bundleCombo(),
			items: []cart.Item{
				{ProductID: "burger", Quantity: 1},
				{ProductID: "fries", Quantity: 1},
				{ProductID: "soda", Quantity: 1},
			},
			want: 1,
		},
		{
			name:  "bundle limited by scarcest constituent",
			combo: bundleCombo(),
			items: []cart.Item{
				{ProductID: "burger", Quantity: 5},
				{ProductID: "fries", Quantity: 2},
				{ProductID: "soda", Quantity: 4},
			},
			want: 2,
		},
		{
			name:  "bundle missing a required item",
			combo: bundleCombo(),
			items: []cart.Item{
				{ProductID: "burger", Quantity: 1},
				{ProductID: "fries", Quantity: 1},
			},
			want: 0,
		},
		{
			name:  "bogo needs buy+get units",
			combo: bogoCombo(),
			items: []cart.Item{{ProductID: "pizza", Quantity: 3}},
			want:  1,
		},
		{
			name:  "bogo below threshold",
			combo: bogoCombo(),
			items: []cart.Item{{ProductID: "pizza", Quantity: 2}},
			want:  0,
		},
		{
			name:  "bogo two groups",
			combo: bogoCombo(),
			items: []cart.Item{{ProductID: "pizza", Quantity: 7}},
			want:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sets(tt.combo, tt.items))
		})
	}
}

func TestValidate(t *testing.T) {
	c := bogoCombo()
	c.BuyQuantity = 0
	require.ErrorIs(t, c.Validate(), ErrInvalidCombo)

	empty := &ComboProduct{Kind: KindBundle}
	require.ErrorIs(t, empty.Validate(), ErrInvalidCombo)
}
