package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func TestIsUserAdminPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		id         Identity
		admin      bool
		superadmin bool
	}{
		{
			name:  "no sources",
			id:    Identity{},
			admin: false,
		},
		{
			name:  "explicit NoSource on both sides",
			id:    Identity{Custom: NoSource{}, Provider: NoSource{}},
			admin: false,
		},
		{
			name: "custom staff wins alongside provider admin flag",
			id: Identity{
				Custom:   CustomAuthSource{Record: CustomAuthRecord{PlatformRole: RoleStaff}},
				Provider: ProviderSource{Record: ProviderRecord{IsAdmin: boolPtr(true)}},
			},
			admin: true,
		},
		{
			name: "custom without role falls through to provider admin flag",
			id: Identity{
				Custom:   CustomAuthSource{Record: CustomAuthRecord{UserID: "u1"}},
				Provider: ProviderSource{Record: ProviderRecord{IsAdmin: boolPtr(true)}},
			},
			admin: true,
		},
		{
			name:       "custom platform_role superadmin",
			id:         Identity{Custom: CustomAuthSource{Record: CustomAuthRecord{PlatformRole: RoleSuperadmin}}},
			admin:      true,
			superadmin: true,
		},
		{
			name:  "custom role fallback",
			id:    Identity{Custom: CustomAuthSource{Record: CustomAuthRecord{Role: RoleAdmin}}},
			admin: true,
		},
		{
			name: "custom platform_role takes priority over role",
			id: Identity{Custom: CustomAuthSource{Record: CustomAuthRecord{
				PlatformRole: RoleUser,
				Role:         RoleSuperadmin,
			}}},
			admin:      false,
			superadmin: false,
		},
		{
			name:  "custom only, unprivileged",
			id:    Identity{Custom: CustomAuthSource{Record: CustomAuthRecord{PlatformRole: RoleUser}}},
			admin: false,
		},
		{
			name:       "provider platform_role superadmin",
			id:         Identity{Provider: ProviderSource{Record: ProviderRecord{PlatformRole: RoleSuperadmin}}},
			admin:      true,
			superadmin: true,
		},
		{
			name:  "provider platform_role staff",
			id:    Identity{Provider: ProviderSource{Record: ProviderRecord{PlatformRole: RoleStaff}}},
			admin: true,
		},
		{
			name:       "provider admin flag grants admin only",
			id:         Identity{Provider: ProviderSource{Record: ProviderRecord{IsAdmin: boolPtr(true)}}},
			admin:      true,
			superadmin: false,
		},
		{
			name:  "provider admin flag false",
			id:    Identity{Provider: ProviderSource{Record: ProviderRecord{IsAdmin: boolPtr(false)}}},
			admin: false,
		},
		{
			name:       "legacy metadata role admin",
			id:         Identity{Provider: ProviderSource{Record: ProviderRecord{MetadataRole: RoleAdmin}}},
			admin:      true,
			superadmin: false,
		},
		{
			name:       "legacy metadata role superadmin is not honoured",
			id:         Identity{Provider: ProviderSource{Record: ProviderRecord{MetadataRole: RoleSuperadmin}}},
			admin:      false,
			superadmin: false,
		},
		{
			name: "custom unprivileged, provider role grants",
			id: Identity{
				Custom:   CustomAuthSource{Record: CustomAuthRecord{PlatformRole: RoleUser}},
				Provider: ProviderSource{Record: ProviderRecord{PlatformRole: RoleAdmin}},
			},
			admin: true,
		},
		{
			name: "custom admin, provider superadmin",
			id: Identity{
				Custom:   CustomAuthSource{Record: CustomAuthRecord{PlatformRole: RoleAdmin}},
				Provider: ProviderSource{Record: ProviderRecord{PlatformRole: RoleSuperadmin}},
			},
			admin:      true,
			superadmin: true,
		},
		{
			name:  "role casing and whitespace normalised",
			id:    Identity{Custom: CustomAuthSource{Record: CustomAuthRecord{PlatformRole: " Admin "}}},
			admin: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.admin, IsUserAdmin(tt.id), "IsUserAdmin")
			assert.Equal(t, tt.superadmin, IsUserSuperadmin(tt.id), "IsUserSuperadmin")
		})
	}
}

func TestParseCustomAuthSource(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		src := ParseCustomAuthSource([]byte(`{"id":"u1","email":"a@example.com","platform_role":"staff"}`))
		custom, ok := src.(CustomAuthSource)
		if assert.True(t, ok) {
			assert.Equal(t, RoleStaff, custom.Record.PlatformRole)
			assert.Equal(t, "u1", custom.Record.UserID)
		}
	})

	t.Run("malformed payload is absent", func(t *testing.T) {
		assert.Equal(t, NoSource{}, ParseCustomAuthSource([]byte(`{"platform_role":`)))
	})

	t.Run("empty payload is absent", func(t *testing.T) {
		assert.Equal(t, NoSource{}, ParseCustomAuthSource(nil))
		assert.Equal(t, NoSource{}, ParseCustomAuthSource([]byte("  ")))
	})

	t.Run("malformed custom source falls back to provider", func(t *testing.T) {
		id := Identity{
			Custom:   ParseCustomAuthSource([]byte("not-json")),
			Provider: ProviderSource{Record: ProviderRecord{MetadataRole: RoleAdmin}},
		}
		assert.True(t, IsUserAdmin(id))
	})
}

func TestIdentityAuthenticated(t *testing.T) {
	assert.False(t, Identity{}.Authenticated())
	assert.False(t, Identity{Custom: NoSource{}, Provider: NoSource{}}.Authenticated())
	assert.True(t, Identity{Custom: CustomAuthSource{}}.Authenticated())
	assert.True(t, Identity{Provider: ProviderSource{}}.Authenticated())
}
