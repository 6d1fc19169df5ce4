package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopkart/promo-engine/internal/domain/checkout"
	"github.com/shopkart/promo-engine/internal/domain/coupon"
)

type createRedemptionRequest struct {
	CouponID        string          `json:"couponId"`
	UserID          string          `json:"userId"`
	OrderID         string          `json:"orderId"`
	DiscountApplied decimal.Decimal `json:"discountApplied"`
}

// CreateRedemption records a committed coupon redemption. A 409 means the
// usage ceiling was reached between validation and commit, so the caller
// must re-price the order without the coupon.
func (h *Handler) CreateRedemption(w http.ResponseWriter, r *http.Request) {
	var req createRedemptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CouponID == "" || req.UserID == "" {
		respondError(w, r, http.StatusBadRequest, "couponId and userId are required")
		return
	}

	err := h.engine.RecordRedemption(r.Context(), checkout.RedemptionRequest{
		CouponID:        req.CouponID,
		UserID:          req.UserID,
		OrderID:         req.OrderID,
		DiscountApplied: req.DiscountApplied,
	})
	if err != nil {
		if errors.Is(err, coupon.ErrExhausted) {
			respondError(w, r, http.StatusConflict, err.Error())
			return
		}
		zctx.From(r.Context()).Error("Redemption failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "redemption failed")
		return
	}

	respond(w, r, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("status")
		e.Str("recorded")
		e.ObjEnd()
	})
}
