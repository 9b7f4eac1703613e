package auth

import "context"

type claimsKey struct{}

// ContextWithClaims attaches verified token claims to a request context.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok && claims != nil
}

// IdentityFromContext returns the staff identity behind the request, if the
// auth middleware ran.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return Identity{}, false
	}
	return claims.Identity(), true
}
