package shared

import "context"

type ownerContextKey struct{}

// ContextWithOwner stores the authenticated owner id in the context. The
// owner is resolved by the external authentication adapter before a request
// reaches the core.
func ContextWithOwner(ctx context.Context, ownerID int64) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, ownerID)
}

// OwnerFromContext extracts the owner id from the context. The second return
// value is false when no owner was resolved.
func OwnerFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ownerContextKey{}).(int64)
	return id, ok
}
