package middleware

import (
	"net/http"

	"ledger/internal/apperror"
	"ledger/internal/auth"
	"ledger/internal/respond"
)

// RequireAdmin rejects callers whose key does not carry the admin role. It
// must run after APIKeyAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			respond.Error(w, apperror.InvalidAPIKey())
			return
		}
		if err := auth.RequireAdmin(identity); err != nil {
			respond.Error(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
