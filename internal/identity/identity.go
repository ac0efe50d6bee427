// Package identity implements the identity middleware (C5): verifying a
// bearer credential into an account id, and the Identity Toolkit client
// that issues those credentials via signup/login/refresh.
package identity

import (
	"context"

	"github.com/often-run/gateway/internal/apierr"
)

// Verifier turns a bearer token into a verified account id. Spec §9: "the
// gateway's contract is only verify a bearer, yield an id; any
// implementation choice is acceptable so long as failure modes map to the
// taxonomy in §7."
type Verifier interface {
	Verify(ctx context.Context, token string) (accountID string, err error)
}

// VerifyOrReject is the single call-site every handler needing identity
// goes through: it wraps Verifier.Verify so a failure always comes back as
// an *apierr.Error with the right kind, never a bare error.
func VerifyOrReject(ctx context.Context, v Verifier, token string) (string, error) {
	if token == "" {
		return "", apierr.Unauthenticatedf("missing bearer token")
	}
	accountID, err := v.Verify(ctx, token)
	if err != nil {
		if apiErr, ok := err.(*apierr.Error); ok {
			return "", apiErr
		}
		return "", apierr.InvalidTokenf("token verification failed")
	}
	return accountID, nil
}
