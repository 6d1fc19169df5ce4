package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// respond writes a JSON response built by fn. Encoding happens fully in
// memory, so a failure mid-encode can never produce a half-written body.
func respond(w http.ResponseWriter, r *http.Request, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(e.Bytes()); err != nil {
		zctx.From(r.Context()).Debug("Response write failed", zap.Error(err))
	}
}

// respondError writes the uniform error envelope.
func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respond(w, r, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}

// money writes a decimal amount as a JSON number with exactly two decimal
// places, bypassing float64 so the wire representation stays exact.
func money(e *jx.Encoder, v decimal.Decimal) {
	e.Raw([]byte(v.StringFixed(2)))
}
