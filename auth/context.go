// Package auth verifies bearer tokens issued by the identity provider and
// carries the caller's claims through the request context.
package auth

import "context"

type ctxKey int

const claimsKey ctxKey = iota

// Claims contains the verified token details handlers read.
type Claims struct {
	Subject string
	Email   string
	Scope   string
}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims of an authenticated request. Guests
// get ok=false.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}
