package auth

import "context"

type identityCtxKey struct{}

// ContextWithIdentity returns a child context carrying the verified identity.
// The identity is attached exactly once, by the authentication middleware;
// handlers and gates only ever read it.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext extracts the verified identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}
