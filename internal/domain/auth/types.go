package auth

// Package auth contains domain-level types for session artifacts and identity.
// It is pure and free of framework/adapter concerns.

import (
	"errors"
	"time"
)

// Role represents a platform role string as issued by either identity source.
// Keep string form for easy persistence and claim mapping.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleStaff      Role = "staff"
	RoleUser       Role = "user"
)

// MinTokenLength is the shortest opaque token accepted when establishing a session.
const MinTokenLength = 10

// Cookie lifetimes.
const (
	AccessTokenMaxAge  = 24 * time.Hour
	RefreshTokenMaxAge = 30 * 24 * time.Hour
	DeviceTokenMaxAge  = 30 * 24 * time.Hour
	CSRFTokenMaxAge    = 12 * time.Hour
)

// Cookie names form a fixed wire contract with the frontend.
const (
	AccessCookieName  = "sg_access_token"
	RefreshCookieName = "sg_refresh_token"
	DeviceCookieName  = "sg_device_token"
	CSRFCookieName    = "csrf_token"
)

var (
	// ErrNoSessionToken is returned when neither an access token nor a device token is supplied.
	ErrNoSessionToken = errors.New("access_token or device_token is required")
	// ErrTokenTooShort is returned when a supplied token is shorter than MinTokenLength.
	ErrTokenTooShort = errors.New("token must be at least 10 characters")
	// ErrMissingOrigin is returned when a state-changing request carries no Origin header.
	ErrMissingOrigin = errors.New("origin header is required")
	// ErrForbiddenOrigin is returned when the Origin header is not allow-listed.
	ErrForbiddenOrigin = errors.New("origin is not allowed")
)

// TokenSet is the set of opaque session tokens issued by an identity source.
// Tokens are never parsed or verified here; they are only transported.
type TokenSet struct {
	AccessToken  string `json:"access_token,omitempty"  validate:"omitempty,min=10"`
	RefreshToken string `json:"refresh_token,omitempty" validate:"omitempty,min=10"`
	DeviceToken  string `json:"device_token,omitempty"  validate:"omitempty,min=10"`
}

// Validate checks presence and minimum-length constraints.
func (t TokenSet) Validate() error {
	if t.AccessToken == "" && t.DeviceToken == "" {
		return ErrNoSessionToken
	}
	for _, tok := range []string{t.AccessToken, t.RefreshToken, t.DeviceToken} {
		if tok != "" && len(tok) < MinTokenLength {
			return ErrTokenTooShort
		}
	}
	return nil
}

// PrimaryToken returns the token that identifies the session: the access token when
// present, otherwise the device token.
func (t TokenSet) PrimaryToken() string {
	if t.AccessToken != "" {
		return t.AccessToken
	}
	return t.DeviceToken
}

// RequestContext carries the request attributes cookie policy depends on.
type RequestContext struct {
	Hostname string
}

// CSRFTicket is an anti-forgery token handed to the client.
type CSRFTicket struct {
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"issued_at"`
}
