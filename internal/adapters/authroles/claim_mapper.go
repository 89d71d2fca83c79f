package authroles

// Package authroles projects identity provider claims onto the role fields the
// role resolver evaluates.

import (
	"errors"
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
	"github.com/target/mmk-sessiongate/internal/ports"
)

var _ ports.ClaimMapper = (*ClaimMapper)(nil)

// Expressions holds one JMESPath expression per projected field. Empty expressions
// leave the field unset.
type Expressions struct {
	Subject      string
	Email        string
	PlatformRole string
	IsAdmin      string
	MetadataRole string
}

// DefaultExpressions matches the provider's default user object layout.
func DefaultExpressions() Expressions {
	return Expressions{
		Subject:      "sub",
		Email:        "email",
		PlatformRole: "app_metadata.platform_role",
		IsAdmin:      "app_metadata.is_admin",
		MetadataRole: "user_metadata.role",
	}
}

// ClaimMapper evaluates pre-validated JMESPath expressions against raw claims.
type ClaimMapper struct {
	exprs Expressions
}

// NewClaimMapper validates every expression up front so Map never fails on syntax.
func NewClaimMapper(exprs Expressions) (*ClaimMapper, error) {
	for name, expr := range map[string]string{
		"subject":       exprs.Subject,
		"email":         exprs.Email,
		"platform_role": exprs.PlatformRole,
		"is_admin":      exprs.IsAdmin,
		"metadata_role": exprs.MetadataRole,
	} {
		if strings.TrimSpace(expr) == "" {
			continue
		}
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("invalid %s claim expression %q: %w", name, expr, err)
		}
	}
	return &ClaimMapper{exprs: exprs}, nil
}

// Map projects claims into a ProviderRecord. A missing or mistyped value leaves
// the field empty. Only a nil claim set is an error.
func (m *ClaimMapper) Map(claims map[string]any) (domainauth.ProviderRecord, error) {
	if claims == nil {
		return domainauth.ProviderRecord{}, errors.New("no claims")
	}
	var rec domainauth.ProviderRecord
	rec.Subject = m.str(m.exprs.Subject, claims)
	rec.Email = m.str(m.exprs.Email, claims)
	rec.PlatformRole = domainauth.Role(m.str(m.exprs.PlatformRole, claims))
	rec.MetadataRole = domainauth.Role(m.str(m.exprs.MetadataRole, claims))
	rec.IsAdmin = m.flag(m.exprs.IsAdmin, claims)
	return rec, nil
}

func (m *ClaimMapper) eval(expr string, data any) any {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	v, err := jmespath.Search(expr, data)
	if err != nil {
		return nil
	}
	return v
}

func (m *ClaimMapper) str(expr string, data any) string {
	s, _ := m.eval(expr, data).(string)
	return strings.TrimSpace(s)
}

// flag accepts JSON booleans and the strings "true"/"false".
func (m *ClaimMapper) flag(expr string, data any) *bool {
	switch v := m.eval(expr, data).(type) {
	case bool:
		return &v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			b := true
			return &b
		case "false":
			b := false
			return &b
		}
	}
	return nil
}
