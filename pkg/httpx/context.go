package httpx

import (
	"context"

	"github.com/ariaauth/aria/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyScopes ctxKey = "scopes"
	CtxKeyClaims ctxKey = "claims" // if you want full jwtx.AccessClaims
)

// ScopesFromContext returns the space-delimited scopes parsed from the verified
// access token, or nil when the request is unauthenticated.
func ScopesFromContext(ctx context.Context) []string {
	return scopesFromCtx(ctx)
}

// UserIDFromContext returns the token subject, or "" when unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// ClaimsFromContext returns the full verified claims, or nil when
// unauthenticated.
func ClaimsFromContext(ctx context.Context) *jwtx.AccessClaims {
	if v, ok := ctx.Value(CtxKeyClaims).(*jwtx.AccessClaims); ok {
		return v
	}
	return nil
}

func scopesFromCtx(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyScopes).([]string); ok {
		return v
	}
	return nil
}
