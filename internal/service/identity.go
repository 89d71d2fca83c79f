package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
	apperrors "github.com/target/mmk-sessiongate/internal/errors"
	"github.com/target/mmk-sessiongate/internal/observability/metrics"
	"github.com/target/mmk-sessiongate/internal/ports"
)

const defaultIdentityLookupTimeout = 3 * time.Second

// IdentityServiceOptions groups dependencies for IdentityService. Every dependency
// is optional; a missing one makes the corresponding source absent.
type IdentityServiceOptions struct {
	Provider   ports.IdentityProvider
	Claims     ports.ClaimMapper
	Principals ports.PrincipalStore
	Events     ports.SecurityEventRecorder
	Metrics    *metrics.Auth
	Logger     *slog.Logger
	Timeout    time.Duration

	// ProviderIssuesAccessToken marks the first-party access cookie as holding a
	// provider-issued token, so it may be sent to the provider when no provider
	// cookie is present.
	ProviderIssuesAccessToken bool
}

// IdentityService assembles the two identity sources for a session so downstream
// authorization can ask the role resolver.
type IdentityService struct {
	provider   ports.IdentityProvider
	claims     ports.ClaimMapper
	principals ports.PrincipalStore
	events     ports.SecurityEventRecorder
	metrics    *metrics.Auth
	logger     *slog.Logger
	timeout    time.Duration

	accessFromProvider bool
}

// NewIdentityService constructs an IdentityService.
func NewIdentityService(opts IdentityServiceOptions) *IdentityService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultIdentityLookupTimeout
	}
	return &IdentityService{
		provider:   opts.Provider,
		claims:     opts.Claims,
		principals: opts.Principals,
		events:     opts.Events,
		metrics:    opts.Metrics,
		logger:     logger.With("component", "identity_service"),
		timeout:    timeout,

		accessFromProvider: opts.ProviderIssuesAccessToken,
	}
}

// IdentityInput is the session material a request carried.
type IdentityInput struct {
	Session       domainauth.TokenSet
	ProviderToken string
}

// IdentityStatus is the resolved privilege summary for a session.
type IdentityStatus struct {
	Authenticated bool `json:"authenticated"`
	IsAdmin       bool `json:"is_admin"`
	IsSuperadmin  bool `json:"is_superadmin"`
}

// Resolve loads both sources concurrently. Lookup and parse failures make the
// source absent; Resolve never fails.
func (s *IdentityService) Resolve(ctx context.Context, in IdentityInput) domainauth.Identity {
	id := domainauth.Identity{Custom: domainauth.NoSource{}, Provider: domainauth.NoSource{}}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		id.Custom = s.loadCustom(ctx, in.Session)
		return nil
	})
	g.Go(func() error {
		id.Provider = s.loadProvider(ctx, providerToken(in.ProviderToken, in.Session, s.accessFromProvider))
		return nil
	})
	_ = g.Wait()

	return id
}

// Status resolves the identity and evaluates both role predicates.
func (s *IdentityService) Status(ctx context.Context, in IdentityInput) IdentityStatus {
	id := s.Resolve(ctx, in)
	return IdentityStatus{
		Authenticated: id.Authenticated(),
		IsAdmin:       domainauth.IsUserAdmin(id),
		IsSuperadmin:  domainauth.IsUserSuperadmin(id),
	}
}

// Privilege is the level an admin-only operation demands.
type Privilege string

const (
	PrivilegeAdmin      Privilege = "admin"
	PrivilegeSuperadmin Privilege = "superadmin"
)

// AuthorizeInput is an admin-only request's session plus where it came from.
type AuthorizeInput struct {
	IdentityInput
	Required   Privilege
	Request    domainauth.RequestContext
	Origin     string
	RemoteAddr string
}

// Authorize gates an admin-only operation. A request without any session token
// gets an unauthorized AppError; one whose resolved identity lacks the privilege
// gets a forbidden AppError and an admin_access_denied audit entry.
func (s *IdentityService) Authorize(ctx context.Context, in AuthorizeInput) (IdentityStatus, error) {
	if in.Session.PrimaryToken() == "" && in.ProviderToken == "" {
		return IdentityStatus{}, apperrors.Unauthorized("authentication required")
	}

	st := s.Status(ctx, in.IdentityInput)
	granted := st.IsAdmin
	if in.Required == PrivilegeSuperadmin {
		granted = st.IsSuperadmin
	}
	if granted {
		return st, nil
	}

	s.metrics.AdminDenied(string(in.Required))
	s.logger.WarnContext(ctx, "admin access denied",
		"event", string(domainauth.EventAdminAccessDenied),
		"required", string(in.Required),
		"authenticated", st.Authenticated,
		"remote_addr", in.RemoteAddr,
	)
	recordEvent(ctx, s.events, s.logger, domainauth.SecurityEvent{
		Kind:       domainauth.EventAdminAccessDenied,
		Origin:     in.Origin,
		RemoteAddr: in.RemoteAddr,
		Hostname:   in.Request.Hostname,
		Reason:     string(in.Required),
	})
	return st, apperrors.Forbidden("insufficient permissions")
}

//nolint:ireturn // IdentitySource is a closed union.
func (s *IdentityService) loadCustom(ctx context.Context, tokens domainauth.TokenSet) domainauth.IdentitySource {
	if s.principals == nil {
		return domainauth.NoSource{}
	}
	for _, tok := range []string{tokens.AccessToken, tokens.DeviceToken} {
		if tok == "" {
			continue
		}
		raw, err := s.principals.Get(ctx, tok)
		if err != nil {
			s.logger.DebugContext(ctx, "principal snapshot unavailable", "error", err)
			continue
		}
		return domainauth.ParseCustomAuthSource(raw)
	}
	return domainauth.NoSource{}
}

//nolint:ireturn // IdentitySource is a closed union.
func (s *IdentityService) loadProvider(ctx context.Context, token string) domainauth.IdentitySource {
	if s.provider == nil || s.claims == nil || token == "" {
		return domainauth.NoSource{}
	}
	claims, err := s.provider.FetchClaims(ctx, token)
	if err != nil {
		s.logger.DebugContext(ctx, "provider claims unavailable", "error", err)
		return domainauth.NoSource{}
	}
	rec, err := s.claims.Map(claims)
	if err != nil {
		s.logger.DebugContext(ctx, "provider claims unparseable", "error", err)
		return domainauth.NoSource{}
	}
	return domainauth.ProviderSource{Record: rec}
}

// providerToken picks the token the identity provider may see. The first-party
// access token qualifies only when the provider issued it.
func providerToken(providerCookie string, session domainauth.TokenSet, accessFromProvider bool) string {
	if providerCookie != "" || !accessFromProvider {
		return providerCookie
	}
	return session.AccessToken
}
