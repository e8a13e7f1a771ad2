// Package middleware provides HTTP middlewares for couple scoping and logging.
package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
)

type ctxKey string

const coupleKey ctxKey = "couple"

// CoupleIDParam is the route parameter holding the couple ID.
const CoupleIDParam = "coupleID"

var coupleIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// CoupleScope is a middleware that resolves the couple addressed by the
// request.
//
// It reads the {coupleID} route parameter, rejects malformed IDs with
// 400 Bad Request and stores the ID in the request context so handlers
// can retrieve it with GetCoupleIDFromContext.
func CoupleScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, CoupleIDParam)
		if !coupleIDPattern.MatchString(id) {
			http.Error(w, "invalid couple id", http.StatusBadRequest)
			return
		}
		ctx := context.WithValue(r.Context(), coupleKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCoupleIDFromContext extracts the couple ID stored by CoupleScope.
// Returns an empty string if not found.
func GetCoupleIDFromContext(ctx context.Context) string {
	val := ctx.Value(coupleKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
