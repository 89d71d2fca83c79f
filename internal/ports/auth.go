package ports

// Package ports defines interfaces (hexagonal ports) for session-related behavior.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
)

// ErrPrincipalNotFound is returned by PrincipalStore.Get when no snapshot exists.
var ErrPrincipalNotFound = errors.New("principal not found")

// IdentityProvider is the external service that owns provider-issued sessions.
type IdentityProvider interface {
	// SignOut invalidates the session behind accessToken at the provider.
	SignOut(ctx context.Context, accessToken string) error

	// FetchClaims returns the provider's view of the principal behind accessToken.
	FetchClaims(ctx context.Context, accessToken string) (map[string]any, error)

	// CookieName is the provider's own session cookie name, or "" when it has none.
	CookieName() string
}

// PrincipalStore persists custom-auth principal snapshots keyed by a session token.
// Implementations must not store the token itself.
type PrincipalStore interface {
	Save(ctx context.Context, token string, principal []byte, ttl time.Duration) error
	Get(ctx context.Context, token string) ([]byte, error)
	Delete(ctx context.Context, token string) error
}

// PrincipalVerifier authenticates a custom-auth principal minted by the first-party
// login backend. Only verified principals may be stored.
type PrincipalVerifier interface {
	Verify(ctx context.Context, token string) (domainauth.CustomAuthRecord, error)
}

// ClaimMapper projects raw provider claims into a provider record.
type ClaimMapper interface {
	Map(claims map[string]any) (domainauth.ProviderRecord, error)
}

// SecurityEventRecorder records security-relevant events.
type SecurityEventRecorder interface {
	Record(ctx context.Context, evt domainauth.SecurityEvent) error
}

// SecurityEventStore is the audit log read/write surface.
type SecurityEventStore interface {
	SecurityEventRecorder
	List(ctx context.Context, opts domainauth.ListSecurityEventsOptions) ([]domainauth.SecurityEvent, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
