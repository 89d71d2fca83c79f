package auth

import "strings"

// roleCheck decides whether a role string satisfies a predicate.
type roleCheck func(Role) bool

// tier evaluates one rung of the precedence table and reports whether it grants.
// A tier that does not grant falls through to the next one.
type tier func(id Identity, check roleCheck, superadmin bool) bool

// precedence is evaluated in order; the first granting tier wins.
// The custom-auth tier comes first even though its record originates in the
// first-party login flow rather than a provider-verified claim.
//
//nolint:gochecknoglobals // fixed, read-only precedence table.
var precedence = []tier{
	customAuthTier,
	providerRoleTier,
	providerAdminFlagTier,
	legacyMetadataTier,
}

// IsUserAdmin reports whether the identity holds any privileged role
// (admin, superadmin or staff). It never fails; absent sources under-grant.
func IsUserAdmin(id Identity) bool {
	return resolve(id, isPrivilegedRole, false)
}

// IsUserSuperadmin reports whether the identity is a superadmin.
func IsUserSuperadmin(id Identity) bool {
	return resolve(id, isSuperadminRole, true)
}

func resolve(id Identity, check roleCheck, superadmin bool) bool {
	for _, t := range precedence {
		if t(id, check, superadmin) {
			return true
		}
	}
	return false
}

// customAuthTier checks platform_role, falling back to role.
func customAuthTier(id Identity, check roleCheck, _ bool) bool {
	src, ok := id.Custom.(CustomAuthSource)
	if !ok {
		return false
	}
	role := src.Record.PlatformRole
	if role == "" {
		role = src.Record.Role
	}
	return check(role)
}

func providerRoleTier(id Identity, check roleCheck, _ bool) bool {
	src, ok := id.Provider.(ProviderSource)
	return ok && check(src.Record.PlatformRole)
}

// providerAdminFlagTier grants admin only; the flag never implies superadmin.
func providerAdminFlagTier(id Identity, _ roleCheck, superadmin bool) bool {
	src, ok := id.Provider.(ProviderSource)
	if !ok || superadmin {
		return false
	}
	return src.Record.IsAdmin != nil && *src.Record.IsAdmin
}

func legacyMetadataTier(id Identity, _ roleCheck, superadmin bool) bool {
	src, ok := id.Provider.(ProviderSource)
	if !ok || superadmin {
		return false
	}
	return normalizeRole(src.Record.MetadataRole) == RoleAdmin
}

func isPrivilegedRole(r Role) bool {
	switch normalizeRole(r) {
	case RoleAdmin, RoleSuperadmin, RoleStaff:
		return true
	default:
		return false
	}
}

func isSuperadminRole(r Role) bool {
	return normalizeRole(r) == RoleSuperadmin
}

func normalizeRole(r Role) Role {
	return Role(strings.ToLower(strings.TrimSpace(string(r))))
}
