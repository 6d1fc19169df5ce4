// Package handler exposes the promotion engine over HTTP. Requests are
// decoded with encoding/json; responses are written with jx to keep field
// order and formatting stable.
package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/shopkart/promo-engine/internal/domain/checkout"
)

// Handler serves the engine's API routes, delegating all business logic to
// the checkout service.
type Handler struct {
	engine *checkout.Service
}

// New constructs a Handler around the checkout service.
func New(engine *checkout.Service) *Handler {
	return &Handler{engine: engine}
}

// Routes returns the API router, mounted by the server under /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/cart/evaluate", h.EvaluateCart)
	r.Post("/coupons/validate", h.ValidateCoupon)
	r.Get("/products/{productID}/promotion", h.ProductPromotion)
	r.Post("/redemptions", h.CreateRedemption)
	return r
}
