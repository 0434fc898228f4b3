package model

import "context"

// OwnerID identifies the requesting user
type OwnerID string

func (id OwnerID) String() string {
	return string(id)
}

type ctxOwnerKey struct{}

// ContextWithOwner returns a context carrying the authenticated owner
func ContextWithOwner(ctx context.Context, owner OwnerID) context.Context {
	return context.WithValue(ctx, ctxOwnerKey{}, owner)
}

// OwnerFromContext returns the authenticated owner, or false if none is set
func OwnerFromContext(ctx context.Context) (OwnerID, bool) {
	owner, ok := ctx.Value(ctxOwnerKey{}).(OwnerID)
	if !ok || owner == "" {
		return "", false
	}
	return owner, true
}
