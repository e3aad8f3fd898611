package middleware

import (
	"context"

	identitydomain "github.com/meisaku0/backend/internal/identity/domain"
)

type contextKey struct{ name string }

var (
	identityKey = contextKey{"identity"}
	clientIPKey = contextKey{"client_ip"}
)

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, id *identitydomain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the identity set by RequireAuth, or nil, false.
func IdentityFrom(ctx context.Context) (*identitydomain.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*identitydomain.Identity)
	return id, ok && id != nil
}

// WithClientIP returns a context carrying the caller's IP.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFrom returns the IP set by ClientIP, or "". It satisfies audit.IPExtractor.
func ClientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}
