package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-sessiongate/config"
	"github.com/target/mmk-sessiongate/internal/adapters/devauth"
)

func TestBuildIdentityProvider(t *testing.T) {
	t.Run("mock mode builds the dev provider", func(t *testing.T) {
		prov, err := BuildIdentityProvider(context.Background(), ProviderConfig{
			Auth: config.AuthConfig{
				Mode: config.AuthModeMock,
				DevAuth: config.DevAuthConfig{
					UserID:     "dev-user",
					Email:      "dev@example.com",
					ProjectRef: "devref",
				},
			},
			Logger: quietLogger(),
		})
		require.NoError(t, err)
		assert.IsType(t, &devauth.Provider{}, prov)
		assert.Equal(t, "sb-devref-auth-token", prov.CookieName())
	})

	t.Run("mock mode without identity fails", func(t *testing.T) {
		_, err := BuildIdentityProvider(context.Background(), ProviderConfig{
			Auth:   config.AuthConfig{Mode: config.AuthModeMock},
			Logger: quietLogger(),
		})
		require.Error(t, err)
	})

	t.Run("oidc mode without issuer fails", func(t *testing.T) {
		_, err := BuildIdentityProvider(context.Background(), ProviderConfig{
			Auth:   config.AuthConfig{Mode: config.AuthModeOIDC},
			Logger: quietLogger(),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "oidc provider")
	})

	t.Run("unknown mode fails", func(t *testing.T) {
		_, err := BuildIdentityProvider(context.Background(), ProviderConfig{
			Auth: config.AuthConfig{Mode: "saml"},
		})
		require.Error(t, err)
	})
}

func TestBuildClaimMapper_SkipsEmptyExpressions(t *testing.T) {
	m, err := BuildClaimMapper(config.ClaimsConfig{Subject: "sub"})
	require.NoError(t, err)

	rec, err := m.Map(map[string]any{"sub": "user-1", "email": "ignored@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", rec.Subject)
	assert.Empty(t, rec.Email)
}
