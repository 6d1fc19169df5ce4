package combo

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/shopkart/promo-engine/internal/domain/cart"
)

var hundred = decimal.NewFromInt(100)

// GeneratedLine is a synthetic line item produced by pricing a combo. Every
// line carries the originating ComboID so that removing one bundle removes
// all of its lines atomically downstream.
type GeneratedLine struct {
	ComboID   string          `json:"combo_id"`
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	// Discounted marks the "get" units of a BOGO/multi-buy combo.
	Discounted bool `json:"discounted"`
}

// Quote is the result of pricing a number of combo sets.
type Quote struct {
	Total   decimal.Decimal
	Savings decimal.Decimal
	Lines   []GeneratedLine
}

// Price prices the given number of combo sets.
//
// Bundles are priced at the stored ComboPrice regardless of catalog price
// drift (snapshot semantics); savings per set derive from
// OriginalPrice - ComboPrice. BOGO and multi-buy combos generate discounted
// "get" lines for the offer product alongside the full-price "buy" lines.
func Price(c *ComboProduct, sets int) (Quote, error) {
	if err := c.Validate(); err != nil {
		return Quote{}, err
	}
	if sets <= 0 {
		return Quote{Total: decimal.Zero, Savings: decimal.Zero}, nil
	}

	n := decimal.NewFromInt(int64(sets))
	switch c.Kind {
	case KindBundle:
		lines := make([]GeneratedLine, len(c.Items))
		for i, item := range c.Items {
			lines[i] = GeneratedLine{
				ComboID:   c.ID,
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				Quantity:  item.Quantity * sets,
				UnitPrice: item.UnitPrice,
			}
		}
		return Quote{
			Total:   c.ComboPrice.Mul(n),
			Savings: c.Savings().Mul(n),
			Lines:   lines,
		}, nil

	case KindBOGO, KindMultiBuy:
		offer := c.Items[0]
		discounted := offer.UnitPrice.Sub(offer.UnitPrice.Mul(c.GetDiscount).Div(hundred))
		buyQty := c.BuyQuantity * sets
		getQty := c.GetQuantity * sets

		lines := []GeneratedLine{
			{
				ComboID:   c.ID,
				ProductID: offer.ProductID,
				VariantID: offer.VariantID,
				Quantity:  buyQty,
				UnitPrice: offer.UnitPrice,
			},
			{
				ComboID:    c.ID,
				ProductID:  offer.ProductID,
				VariantID:  offer.VariantID,
				Quantity:   getQty,
				UnitPrice:  discounted,
				Discounted: true,
			},
		}

		qty := func(q int) decimal.Decimal { return decimal.NewFromInt(int64(q)) }
		total := offer.UnitPrice.Mul(qty(buyQty)).Add(discounted.Mul(qty(getQty)))
		savings := offer.UnitPrice.Mul(c.GetDiscount).Div(hundred).Mul(qty(getQty))

		return Quote{Total: total, Savings: savings, Lines: lines}, nil

	default:
		return Quote{}, errors.Errorf("unsupported combo kind: %q", c.Kind)
	}
}

// Sets returns how many complete combo sets the cart contains. For bundles
// every required constituent must be present in its configured quantity; for
// threshold combos the offer product must reach buy+get units per set.
func Sets(c *ComboProduct, items []cart.Item) int {
	counts := make(map[string]int)
	for _, item := range items {
		counts[item.ProductID] += item.Quantity
	}

	switch c.Kind {
	case KindBundle:
		sets := -1
		for _, item := range c.Items {
			if !item.Required {
				continue
			}
			if item.Quantity <= 0 {
				continue
			}
			n := counts[item.ProductID] / item.Quantity
			if sets < 0 || n < sets {
				sets = n
			}
		}
		if sets < 0 {
			return 0
		}
		return sets

	case KindBOGO, KindMultiBuy:
		group := c.BuyQuantity + c.GetQuantity
		if group <= 0 || len(c.Items) == 0 {
			return 0
		}
		return counts[c.Items[0].ProductID] / group

	default:
		return 0
	}
}
