package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
	apperrors "github.com/target/mmk-sessiongate/internal/errors"
	"github.com/target/mmk-sessiongate/internal/observability/metrics"
	"github.com/target/mmk-sessiongate/internal/ports"
)

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Cookies    *CookieManager              // Required
	Principals ports.PrincipalStore        // Optional: custom-auth principal snapshots
	Verifier   ports.PrincipalVerifier     // Optional: principal tokens are refused when nil
	Events     ports.SecurityEventRecorder // Optional
	Metrics    *metrics.Auth               // Optional
	Logger     *slog.Logger                // Optional
}

// SessionService validates issued tokens and turns them into cookie instructions.
type SessionService struct {
	cookies    *CookieManager
	principals ports.PrincipalStore
	verifier   ports.PrincipalVerifier
	events     ports.SecurityEventRecorder
	metrics    *metrics.Auth
	logger     *slog.Logger
	validate   *validator.Validate
}

// NewSessionService constructs a SessionService.
func NewSessionService(opts SessionServiceOptions) (*SessionService, error) {
	if opts.Cookies == nil {
		return nil, errors.New("cookie manager is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)

	return &SessionService{
		cookies:    opts.Cookies,
		principals: opts.Principals,
		verifier:   opts.Verifier,
		events:     opts.Events,
		metrics:    opts.Metrics,
		logger:     logger.With("component", "session_service"),
		validate:   v,
	}, nil
}

// EstablishInput carries a freshly issued token set and, for the first-party
// login flow, the signed principal token it was issued to.
type EstablishInput struct {
	Tokens         domainauth.TokenSet
	PrincipalToken string
	Request        domainauth.RequestContext
	Origin         string
	RemoteAddr     string
}

// EstablishResult holds the cookie instructions to attach to the response.
type EstablishResult struct {
	Cookies []domainauth.CookiePolicy
}

// Establish validates the token set and returns the cookies that carry it.
// Invalid input yields a validation AppError and no state is touched. A principal
// is stored only when its token verifies.
func (s *SessionService) Establish(ctx context.Context, in EstablishInput) (*EstablishResult, error) {
	principal, err := s.validateInput(ctx, in)
	if err != nil {
		s.metrics.SessionEstablishRejected()
		recordEvent(ctx, s.events, s.logger, domainauth.SecurityEvent{
			Kind:       domainauth.EventSessionEstablishRejected,
			Origin:     in.Origin,
			RemoteAddr: in.RemoteAddr,
			Hostname:   in.Request.Hostname,
			Reason:     apperrors.GetField(err),
		})
		return nil, err
	}

	s.savePrincipal(ctx, in.Tokens, principal)

	cookies := s.cookies.SetSession(in.Tokens, in.Request)
	s.metrics.SessionEstablished()
	recordEvent(ctx, s.events, s.logger, domainauth.SecurityEvent{
		Kind:       domainauth.EventSessionEstablished,
		Origin:     in.Origin,
		RemoteAddr: in.RemoteAddr,
		Hostname:   in.Request.Hostname,
	})
	s.logger.InfoContext(ctx, "session established",
		"cookies", len(cookies),
		"scoped", s.cookies.Scope(in.Request) != "",
		"device", in.Tokens.DeviceToken != "",
	)

	return &EstablishResult{Cookies: cookies}, nil
}

// validateTokens checks per-field length with the struct tags and presence with
// TokenSet.Validate. Failures wrap the domain sentinels so callers can match with
// errors.Is.
func (s *SessionService) validateTokens(tokens domainauth.TokenSet) error {
	if err := s.validate.Struct(tokens); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid session tokens")
		}
		fe := verrs[0]
		return &apperrors.AppError{
			Code:    apperrors.ErrCodeValidation,
			Message: fmt.Sprintf("%s: %s", fe.Field(), domainauth.ErrTokenTooShort.Error()),
			Field:   fe.Field(),
			Cause:   domainauth.ErrTokenTooShort,
		}
	}
	if err := tokens.Validate(); err != nil {
		return &apperrors.AppError{
			Code:    apperrors.ErrCodeValidation,
			Message: err.Error(),
			Cause:   err,
		}
	}
	return nil
}

func (s *SessionService) validateInput(ctx context.Context, in EstablishInput) (*domainauth.CustomAuthRecord, error) {
	if err := s.validateTokens(in.Tokens); err != nil {
		return nil, err
	}
	if in.PrincipalToken == "" {
		return nil, nil
	}
	if s.verifier == nil {
		return nil, apperrors.ValidationField("principal", "principal: principal tokens are not accepted")
	}
	rec, err := s.verifier.Verify(ctx, in.PrincipalToken)
	if err != nil {
		s.logger.WarnContext(ctx, "principal token rejected", "error", err)
		return nil, &apperrors.AppError{
			Code:    apperrors.ErrCodeValidation,
			Message: "principal: invalid principal token",
			Field:   "principal",
			Cause:   err,
		}
	}
	return &rec, nil
}

func (s *SessionService) savePrincipal(ctx context.Context, tokens domainauth.TokenSet, rec *domainauth.CustomAuthRecord) {
	if s.principals == nil || rec == nil {
		return
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to encode principal snapshot", "error", err)
		return
	}
	ttl := domainauth.AccessTokenMaxAge
	if tokens.AccessToken == "" {
		ttl = domainauth.DeviceTokenMaxAge
	}
	if err := s.principals.Save(ctx, tokens.PrimaryToken(), raw, ttl); err != nil {
		s.logger.WarnContext(ctx, "failed to store principal snapshot", "error", err)
	}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}
