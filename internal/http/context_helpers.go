package httpx

import (
	"context"

	"github.com/target/mmk-sessiongate/internal/service"
)

// identityKey is an unexported context key type to avoid collisions across packages.
type identityKey struct{}

// SetIdentityInContext returns a child context that carries the resolved identity status.
func SetIdentityInContext(ctx context.Context, st service.IdentityStatus) context.Context {
	return context.WithValue(ctx, identityKey{}, st)
}

// GetIdentityFromContext returns the identity status an admin guard resolved and
// a boolean indicating presence.
func GetIdentityFromContext(ctx context.Context) (service.IdentityStatus, bool) {
	st, ok := ctx.Value(identityKey{}).(service.IdentityStatus)
	return st, ok
}
