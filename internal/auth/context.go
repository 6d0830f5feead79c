package auth

import "context"

type identityKey struct{}

// Identity is the verified grant holder attached to a request.
type Identity struct {
	Subject    string
	LocationID string
	Scope      string
}

// WithIdentity stores the grant holder in ctx.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the grant holder, if the request carried one.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}
