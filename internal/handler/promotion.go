package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// ProductPromotion returns the highest-priority promotion applying to a
// product, optionally narrowed to a variant via the variant query parameter.
// Responds 404 when no promotion currently applies.
func (h *Handler) ProductPromotion(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	variantID := r.URL.Query().Get("variant")

	p, err := h.engine.PromotionForProduct(r.Context(), productID, variantID)
	if err != nil {
		zctx.From(r.Context()).Error("Promotion lookup failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "promotion lookup failed")
		return
	}
	if p == nil {
		respondError(w, r, http.StatusNotFound, "no promotion applies to this product")
		return
	}

	respond(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(p.ID)
		e.FieldStart("name")
		e.Str(p.Name)
		e.FieldStart("description")
		e.Str(p.Description)
		e.FieldStart("kind")
		e.Str(string(p.Kind))
		e.FieldStart("stackable")
		e.Bool(p.Stackable)
		e.FieldStart("priority")
		e.Int(p.Priority)
		e.ObjEnd()
	})
}
