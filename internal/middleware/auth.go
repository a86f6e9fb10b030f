package middleware

import (
	"context"
	"net/http"
	"strings"

	"ledger/internal/auth"
	"ledger/internal/respond"
)

type contextKey string

const identityKey contextKey = "identity"

const (
	APIKeyHeader = "x-api-key"
	// APIKeyQueryParam is accepted for websocket upgrades, where browsers
	// cannot set custom headers.
	APIKeyQueryParam = "api_key"
)

type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (auth.Identity, error)
}

func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(auth.Identity)
	return identity, ok
}

func WithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// APIKeyAuth authenticates the request from the x-api-key header and stores
// the resolved Identity in its context. Every authenticated request spends
// one unit of the key's rate limit.
func APIKeyAuth(authenticator Authenticator) func(http.Handler) http.Handler {
	return authenticate(authenticator, false)
}

// APIKeyAuthWS is APIKeyAuth for websocket upgrades: the header wins, with
// the api_key query parameter as fallback.
func APIKeyAuthWS(authenticator Authenticator) func(http.Handler) http.Handler {
	return authenticate(authenticator, true)
}

func authenticate(authenticator Authenticator, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := authenticator.Authenticate(r.Context(), presentedKey(r, allowQuery))
			if err != nil {
				respond.Error(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func presentedKey(r *http.Request, allowQuery bool) string {
	if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
		return key
	}
	if !allowQuery {
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get(APIKeyQueryParam))
}
