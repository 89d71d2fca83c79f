package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
	"github.com/target/mmk-sessiongate/internal/observability/metrics"
	"github.com/target/mmk-sessiongate/internal/ports"
)

const defaultSignOutTimeout = 5 * time.Second

var errSignOutPanic = errors.New("identity provider sign-out panicked")

// LogoutCoordinatorOptions groups dependencies for LogoutCoordinator.
type LogoutCoordinatorOptions struct {
	Cookies        *CookieManager              // Required
	Provider       ports.IdentityProvider      // Optional: remote invalidation is skipped when nil
	Principals     ports.PrincipalStore        // Optional
	Events         ports.SecurityEventRecorder // Optional
	Metrics        *metrics.Auth               // Optional
	Logger         *slog.Logger                // Optional
	SignOutTimeout time.Duration               // Optional: defaults to 5s

	// ProviderIssuesAccessToken lets the first-party access token be revoked at
	// the provider when no provider cookie is present.
	ProviderIssuesAccessToken bool
}

// LogoutCoordinator tears a session down: remote invalidation first, best-effort,
// then local cookie clearing, unconditionally.
type LogoutCoordinator struct {
	cookies    *CookieManager
	provider   ports.IdentityProvider
	principals ports.PrincipalStore
	events     ports.SecurityEventRecorder
	metrics    *metrics.Auth
	logger     *slog.Logger
	timeout    time.Duration

	accessFromProvider bool
}

// NewLogoutCoordinator constructs a LogoutCoordinator.
func NewLogoutCoordinator(opts LogoutCoordinatorOptions) (*LogoutCoordinator, error) {
	if opts.Cookies == nil {
		return nil, errors.New("cookie manager is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.SignOutTimeout
	if timeout <= 0 {
		timeout = defaultSignOutTimeout
	}
	return &LogoutCoordinator{
		cookies:    opts.Cookies,
		provider:   opts.Provider,
		principals: opts.Principals,
		events:     opts.Events,
		metrics:    opts.Metrics,
		logger:     logger.With("component", "logout_coordinator"),
		timeout:    timeout,

		accessFromProvider: opts.ProviderIssuesAccessToken,
	}, nil
}

// LogoutInput is what the request carried at logout time.
type LogoutInput struct {
	Session domainauth.TokenSet
	// ProviderToken is the provider's own session cookie value.
	ProviderToken string
	Request       domainauth.RequestContext
	Origin        string
	RemoteAddr    string
}

// LogoutResult carries the clear instructions plus what happened upstream.
type LogoutResult struct {
	Cookies           []domainauth.CookiePolicy
	RemoteAttempted   bool
	RemoteInvalidated bool
}

// Logout never fails. The remote call is attempted before any local work and its
// outcome does not influence the clear set.
func (c *LogoutCoordinator) Logout(ctx context.Context, in LogoutInput) LogoutResult {
	var res LogoutResult

	token := providerToken(in.ProviderToken, in.Session, c.accessFromProvider)

	switch {
	case c.provider == nil || token == "":
		c.metrics.LogoutCompleted(metrics.ResultSkipped)
	default:
		res.RemoteAttempted = true
		if err := c.invalidate(ctx, token); err != nil {
			c.logger.WarnContext(ctx, "identity provider sign-out failed; clearing local session anyway",
				"event", string(domainauth.EventUpstreamInvalidationFailed),
				"error", err,
			)
			c.metrics.UpstreamInvalidationFailed(err)
			c.metrics.LogoutCompleted(metrics.ResultError)
			recordEvent(ctx, c.events, c.logger, domainauth.SecurityEvent{
				Kind:       domainauth.EventUpstreamInvalidationFailed,
				Origin:     in.Origin,
				RemoteAddr: in.RemoteAddr,
				Hostname:   in.Request.Hostname,
				Reason:     err.Error(),
			})
		} else {
			res.RemoteInvalidated = true
			c.metrics.LogoutCompleted(metrics.ResultSuccess)
		}
	}

	c.forgetPrincipals(ctx, in.Session)
	res.Cookies = c.cookies.ClearAll(in.Request)

	recordEvent(ctx, c.events, c.logger, domainauth.SecurityEvent{
		Kind:       domainauth.EventSessionTerminated,
		Origin:     in.Origin,
		RemoteAddr: in.RemoteAddr,
		Hostname:   in.Request.Hostname,
	})
	c.logger.InfoContext(ctx, "session terminated",
		"remote_attempted", res.RemoteAttempted,
		"remote_invalidated", res.RemoteInvalidated,
		"cookies_cleared", len(res.Cookies),
	)
	return res
}

// invalidate runs SignOut on its own goroutine so that a provider which ignores
// context cancellation still cannot hold the logout past the timeout.
func (c *LogoutCoordinator) invalidate(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	defer func() { c.metrics.ObserveInvalidation(time.Since(start).Seconds()) }()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: %v", errSignOutPanic, r)
			}
		}()
		done <- c.provider.SignOut(ctx, token)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("identity provider sign-out: %w", ctx.Err())
	}
}

func (c *LogoutCoordinator) forgetPrincipals(ctx context.Context, tokens domainauth.TokenSet) {
	if c.principals == nil {
		return
	}
	for _, tok := range []string{tokens.AccessToken, tokens.DeviceToken} {
		if tok == "" {
			continue
		}
		if err := c.principals.Delete(ctx, tok); err != nil {
			c.logger.WarnContext(ctx, "failed to delete principal snapshot", "error", err)
		}
	}
}
