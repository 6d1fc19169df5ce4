package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopkart/promo-engine/internal/domain/cart"
	"github.com/shopkart/promo-engine/internal/domain/checkout"
)

type itemPayload struct {
	ProductID string          `json:"productId"`
	VariantID string          `json:"variantId"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Category  string          `json:"category"`
	Brand     string          `json:"brand"`
}

type evaluateCartRequest struct {
	Items        []itemPayload `json:"items"`
	CustomerTags []string      `json:"customerTags"`
	CouponCode   string        `json:"couponCode"`
	UserID       string        `json:"userId"`
}

func decodeItems(payloads []itemPayload) ([]cart.Item, string) {
	if len(payloads) == 0 {
		return nil, "items must not be empty"
	}
	items := make([]cart.Item, len(payloads))
	for i, p := range payloads {
		if p.ProductID == "" {
			return nil, "item productId is required"
		}
		if p.Quantity <= 0 {
			return nil, "item quantity must be positive"
		}
		if p.Price.IsNegative() {
			return nil, "item price must not be negative"
		}
		items[i] = cart.Item{
			ProductID: p.ProductID,
			VariantID: p.VariantID,
			Price:     p.Price,
			Quantity:  p.Quantity,
			Category:  p.Category,
			Brand:     p.Brand,
		}
	}
	return items, ""
}

// EvaluateCart prices a cart: automatic promotions, combo offers, and an
// optional coupon. Evaluation is read-only; nothing is redeemed here.
func (h *Handler) EvaluateCart(w http.ResponseWriter, r *http.Request) {
	var req evaluateCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	items, msg := decodeItems(req.Items)
	if msg != "" {
		respondError(w, r, http.StatusBadRequest, msg)
		return
	}

	eval, err := h.engine.Evaluate(r.Context(), checkout.EvaluateRequest{
		Items:        items,
		CustomerTags: req.CustomerTags,
		CouponCode:   req.CouponCode,
		UserID:       req.UserID,
	})
	if err != nil {
		zctx.From(r.Context()).Error("Cart evaluation failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "evaluation failed")
		return
	}

	respond(w, r, http.StatusOK, func(e *jx.Encoder) {
		encodeEvaluation(e, eval)
	})
}

func encodeEvaluation(e *jx.Encoder, eval *checkout.Evaluation) {
	e.ObjStart()
	e.FieldStart("subtotal")
	money(e, eval.Subtotal)
	e.FieldStart("promotionDiscount")
	money(e, eval.PromotionDiscount)
	e.FieldStart("comboSavings")
	money(e, eval.ComboSavings)
	e.FieldStart("couponDiscount")
	money(e, eval.CouponDiscount)
	e.FieldStart("totalDiscount")
	money(e, eval.TotalDiscount)
	e.FieldStart("total")
	money(e, eval.Total)
	e.FieldStart("freeShipping")
	e.Bool(eval.FreeShipping)

	e.FieldStart("appliedPromotions")
	e.ArrStart()
	for _, a := range eval.Applied {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(a.Promotion.ID)
		e.FieldStart("name")
		e.Str(a.Promotion.Name)
		e.FieldStart("kind")
		e.Str(string(a.Promotion.Kind))
		e.FieldStart("discount")
		money(e, a.Discount)
		e.FieldStart("freeShipping")
		e.Bool(a.FreeShipping)
		e.ObjEnd()
	}
	e.ArrEnd()

	if eval.Coupon != nil {
		e.FieldStart("coupon")
		encodeCouponResult(e, *eval.Coupon)
	}

	e.FieldStart("comboLines")
	e.ArrStart()
	for _, l := range eval.Lines {
		e.ObjStart()
		e.FieldStart("comboId")
		e.Str(l.ComboID)
		e.FieldStart("productId")
		e.Str(l.ProductID)
		if l.VariantID != "" {
			e.FieldStart("variantId")
			e.Str(l.VariantID)
		}
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("unitPrice")
		money(e, l.UnitPrice)
		e.FieldStart("discounted")
		e.Bool(l.Discounted)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}
