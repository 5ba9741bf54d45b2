package authz

import "context"

type identityContextKey struct{}

// ContextWithIdentity stores the resolved identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity placed by the authentication
// middleware. The second return is false for unauthenticated requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}

// ActorFromContext returns the acting user's ID, or zero when the context
// carries no identity.
func ActorFromContext(ctx context.Context) int64 {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return 0
	}
	return id.UserID()
}
