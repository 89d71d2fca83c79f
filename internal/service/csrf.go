package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
	"github.com/target/mmk-sessiongate/internal/observability/metrics"
	"github.com/target/mmk-sessiongate/internal/ports"
)

const (
	csrfTokenBytes = 32

	defaultAuditRate  = 5
	defaultAuditBurst = 20
)

// DefaultAllowedOrigins is used when no allow-list is configured.
//
//nolint:gochecknoglobals // read-only defaults.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:8080",
}

// CSRFGuardOptions groups dependencies for CSRFGuard.
type CSRFGuardOptions struct {
	AllowedOrigins []string                    // Optional: defaults to DefaultAllowedOrigins
	BaseDomain     string                      // Optional: accepts any origin ending in "."+BaseDomain
	Secure         bool                        // Secure attribute on the CSRF cookie
	Logger         *slog.Logger                // Optional
	Recorder       ports.SecurityEventRecorder // Optional: audit log for rejections
	Metrics        *metrics.Auth               // Optional
	Rand           io.Reader                   // Optional: defaults to crypto/rand
	Now            func() time.Time            // Optional: defaults to time.Now

	// AuditRate and AuditBurst bound how many rejections per second reach the
	// Recorder. Rejections over budget are still logged and counted.
	AuditRate  rate.Limit // Optional: defaults to 5/s
	AuditBurst int        // Optional: defaults to 20
}

// CSRFGuard issues anti-forgery tickets and validates the Origin header of
// state-changing requests.
type CSRFGuard struct {
	allowed    map[string]struct{}
	baseDomain string
	secure     bool
	logger     *slog.Logger
	recorder   ports.SecurityEventRecorder
	metrics    *metrics.Auth
	rand       io.Reader
	now        func() time.Time
	audit      *rate.Limiter
}

// NewCSRFGuard constructs a CSRFGuard.
func NewCSRFGuard(opts CSRFGuardOptions) *CSRFGuard {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = DefaultAllowedOrigins
	}
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = struct{}{}
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := opts.Rand
	if r == nil {
		r = rand.Reader
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	auditRate, auditBurst := opts.AuditRate, opts.AuditBurst
	if auditRate <= 0 {
		auditRate = defaultAuditRate
	}
	if auditBurst <= 0 {
		auditBurst = defaultAuditBurst
	}

	return &CSRFGuard{
		allowed:    allowed,
		baseDomain: strings.Trim(strings.TrimSpace(opts.BaseDomain), "."),
		secure:     opts.Secure,
		logger:     logger.With("component", "csrf_guard"),
		recorder:   opts.Recorder,
		metrics:    opts.Metrics,
		rand:       r,
		now:        now,
		audit:      rate.NewLimiter(auditRate, auditBurst),
	}
}

// Issue generates a fresh ticket and the readable cookie that mirrors it.
// The only failure is an unreadable random source.
func (g *CSRFGuard) Issue(rc domainauth.RequestContext) (domainauth.CSRFTicket, domainauth.CookiePolicy, error) {
	buf := make([]byte, csrfTokenBytes)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return domainauth.CSRFTicket{}, domainauth.CookiePolicy{}, fmt.Errorf("generate csrf token: %w", err)
	}
	ticket := domainauth.CSRFTicket{
		Token:    base64.RawURLEncoding.EncodeToString(buf),
		IssuedAt: g.now().UTC(),
	}
	cookie := domainauth.CookiePolicy{
		Name:     domainauth.CSRFCookieName,
		Value:    ticket.Token,
		HTTPOnly: false,
		Secure:   g.secure,
		SameSite: domainauth.SameSiteStrict,
		MaxAge:   int(domainauth.CSRFTokenMaxAge / time.Second),
		Path:     cookiePath,
		Domain:   domainauth.ResolveCookieDomain(rc.Hostname, g.baseDomain),
	}
	return ticket, cookie, nil
}

// Validate reports whether origin may perform a state-changing request. It returns
// ErrMissingOrigin for an empty header and ErrForbiddenOrigin when the value is
// neither allow-listed nor a subdomain origin of the base domain. The suffix match
// is literal on the header value.
func (g *CSRFGuard) Validate(origin string) error {
	if origin == "" {
		return domainauth.ErrMissingOrigin
	}
	if _, ok := g.allowed[origin]; ok {
		return nil
	}
	if g.baseDomain != "" && strings.HasSuffix(origin, "."+g.baseDomain) {
		return nil
	}
	return domainauth.ErrForbiddenOrigin
}

// Rejection describes a request the Origin check refused.
type Rejection struct {
	Err        error
	Origin     string
	Method     string
	Path       string
	RemoteAddr string
	Hostname   string
}

// RejectionCode maps a Validate error to the client-facing error code.
func RejectionCode(err error) string {
	if errors.Is(err, domainauth.ErrMissingOrigin) {
		return "missing_origin"
	}
	return "forbidden_origin"
}

// ReportRejection logs, counts and audits a refused request. It never fails.
func (g *CSRFGuard) ReportRejection(ctx context.Context, rej Rejection) {
	code := RejectionCode(rej.Err)
	g.logger.WarnContext(ctx, "csrf origin check rejected request",
		"event", string(domainauth.EventCSRFRejected),
		"reason", code,
		"origin", rej.Origin,
		"method", rej.Method,
		"path", rej.Path,
		"remote_addr", rej.RemoteAddr,
	)
	g.metrics.CSRFRejected(code)
	if g.recorder == nil {
		return
	}
	if !g.audit.Allow() {
		g.metrics.SecurityEventDropped(string(domainauth.EventCSRFRejected))
		return
	}
	recordEvent(ctx, g.recorder, g.logger, domainauth.SecurityEvent{
		Kind:       domainauth.EventCSRFRejected,
		Origin:     rej.Origin,
		RemoteAddr: rej.RemoteAddr,
		Hostname:   rej.Hostname,
		Reason:     code,
	})
}
