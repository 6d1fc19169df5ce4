package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/shopkart/promo-engine/internal/domain/coupon"
)

type validateCouponRequest struct {
	Code   string        `json:"code"`
	UserID string        `json:"userId"`
	Items  []itemPayload `json:"items"`
}

// ValidateCoupon answers whether a code applies to the given cart. The
// verdict is always a 200 response; business rejections are expressed by the
// valid flag and message, never as HTTP errors.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		respondError(w, r, http.StatusBadRequest, "code is required")
		return
	}

	items, msg := decodeItems(req.Items)
	if msg != "" {
		respondError(w, r, http.StatusBadRequest, msg)
		return
	}

	res, err := h.engine.ValidateCoupon(r.Context(), req.Code, req.UserID, items)
	if err != nil {
		zctx.From(r.Context()).Error("Coupon validation failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "validation failed")
		return
	}

	respond(w, r, http.StatusOK, func(e *jx.Encoder) {
		encodeCouponResult(e, res)
	})
}

func encodeCouponResult(e *jx.Encoder, res coupon.Result) {
	e.ObjStart()
	e.FieldStart("valid")
	e.Bool(res.Valid)
	e.FieldStart("discount")
	money(e, res.Discount)
	e.FieldStart("freeShipping")
	e.Bool(res.FreeShipping)
	if res.Message != "" {
		e.FieldStart("message")
		e.Str(res.Message)
	}
	if res.Coupon != nil {
		e.FieldStart("code")
		e.Str(res.Coupon.Code)
	}
	e.ObjEnd()
}
