package auth

import "context"

type contextKey struct{}

// Identity is what the identity provider vouches for: a stable user id
// and the browsing session it was issued to. The platform treats the
// provider as opaque; anything beyond these two fields lives on the
// account document.
type Identity struct {
	UserID     string
	SessionKey string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// UserID returns the authenticated user id, or "" when unauthenticated.
func UserID(ctx context.Context) string {
	id, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return id.UserID
}
