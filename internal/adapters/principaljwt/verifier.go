package principaljwt

// Package principaljwt verifies custom-auth principals minted by the first-party
// login backend as HS256 tokens signed with a key shared with this service.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
	"github.com/target/mmk-sessiongate/internal/ports"
)

var _ ports.PrincipalVerifier = (*Verifier)(nil)

// MinKeyLength is the shortest accepted signing key, in bytes.
const MinKeyLength = 32

// ErrInvalidPrincipal wraps every verification failure.
var ErrInvalidPrincipal = errors.New("invalid principal token")

// principalClaims is the payload the login backend signs. The subject is the user ID.
type principalClaims struct {
	jwt.RegisteredClaims

	Email        string `json:"email,omitempty"`
	PlatformRole string `json:"platform_role,omitempty"`
	Role         string `json:"role,omitempty"`
}

// Config configures a Verifier.
type Config struct {
	Key    []byte           // Required: at least MinKeyLength bytes
	Issuer string           // Optional: enforced when set
	Leeway time.Duration    // Optional: clock skew allowance
	Now    func() time.Time // Optional: defaults to time.Now
}

// Verifier checks signature, algorithm, expiry and issuer of principal tokens.
type Verifier struct {
	key    []byte
	parser *jwt.Parser
}

// NewVerifier constructs a Verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	if len(cfg.Key) < MinKeyLength {
		return nil, fmt.Errorf("principal signing key must be at least %d bytes", MinKeyLength)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(cfg.Now))
	}
	return &Verifier{key: cfg.Key, parser: jwt.NewParser(opts...)}, nil
}

// Verify returns the principal carried by a valid token.
func (v *Verifier) Verify(_ context.Context, token string) (domainauth.CustomAuthRecord, error) {
	var claims principalClaims
	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return domainauth.CustomAuthRecord{}, fmt.Errorf("%w: %w", ErrInvalidPrincipal, err)
	}
	if claims.Subject == "" {
		return domainauth.CustomAuthRecord{}, fmt.Errorf("%w: missing subject", ErrInvalidPrincipal)
	}
	return domainauth.CustomAuthRecord{
		UserID:       claims.Subject,
		Email:        claims.Email,
		PlatformRole: domainauth.Role(claims.PlatformRole),
		Role:         domainauth.Role(claims.Role),
	}, nil
}
