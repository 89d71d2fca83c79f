package auth

import (
	"encoding/json"
	"strings"
)

// IdentitySource is a closed union of the places role information can come from:
// CustomAuthSource, ProviderSource or NoSource.
type IdentitySource interface {
	isIdentitySource()
}

// CustomAuthRecord is the first-party credential system's principal as persisted at login.
type CustomAuthRecord struct {
	UserID       string `json:"id"`
	Email        string `json:"email"`
	PlatformRole Role   `json:"platform_role"`
	Role         Role   `json:"role"`
}

// ProviderRecord is the identity provider's principal after claim projection.
type ProviderRecord struct {
	Subject      string `json:"sub"`
	Email        string `json:"email"`
	PlatformRole Role   `json:"platform_role"`
	IsAdmin      *bool  `json:"is_admin,omitempty"`
	MetadataRole Role   `json:"metadata_role"`
}

// CustomAuthSource wraps a parsed custom-auth principal.
type CustomAuthSource struct{ Record CustomAuthRecord }

// ProviderSource wraps a provider-enriched principal.
type ProviderSource struct{ Record ProviderRecord }

// NoSource marks an absent or unparseable source.
type NoSource struct{}

func (CustomAuthSource) isIdentitySource() {}
func (ProviderSource) isIdentitySource()   {}
func (NoSource) isIdentitySource()         {}

// Identity is the pair of sources the role resolver evaluates. Nil fields are
// treated as NoSource.
type Identity struct {
	Custom   IdentitySource
	Provider IdentitySource
}

// Authenticated reports whether at least one source is present.
func (id Identity) Authenticated() bool {
	return isPresent(id.Custom) || isPresent(id.Provider)
}

func isPresent(s IdentitySource) bool {
	switch s.(type) {
	case CustomAuthSource, ProviderSource:
		return true
	default:
		return false
	}
}

// ParseCustomAuthSource decodes a persisted custom-auth principal. Any decode failure
// or an empty payload yields NoSource; errors are never surfaced.
//
//nolint:ireturn // the union is the point.
func ParseCustomAuthSource(raw []byte) IdentitySource {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return NoSource{}
	}
	var rec CustomAuthRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return NoSource{}
	}
	return CustomAuthSource{Record: rec}
}
