package identity

import (
	"context"
	"net/http"
	"strings"

	"github.com/often-run/gateway/internal/apierr"
)

type contextKey string

const accountIDContextKey contextKey = "account_id"

// Middleware enforces spec §4.5: read Authorization, fail closed with 401
// if the scheme isn't Bearer or the token is missing/invalid/expired, and
// attach the verified account id to the request context on success. No
// upstream call and no store read may happen before this succeeds.
type Middleware struct {
	verifier Verifier
}

// NewMiddleware builds identity middleware over the given Verifier.
func NewMiddleware(verifier Verifier) *Middleware {
	return &Middleware{verifier: verifier}
}

// Handler wraps next with bearer-token verification.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) {
			apierr.Write(w, apierr.Unauthenticatedf("missing or malformed Authorization header"))
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, prefix))

		accountID, err := VerifyOrReject(r.Context(), m.verifier, token)
		if err != nil {
			apierr.Write(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), accountIDContextKey, accountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccountID reads the account id a successful Middleware.Handler attached
// to the request context.
func AccountID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDContextKey).(string)
	return id, ok
}
