package principaljwt

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
)

const testKey = "principal-signing-key-0123456789abcdef"

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(Config{
		Key:    []byte(testKey),
		Issuer: "login-backend",
		Now:    func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return v
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":           "user-1",
		"iss":           "login-backend",
		"exp":           testNow.Add(time.Minute).Unix(),
		"iat":           testNow.Unix(),
		"email":         "a@example.com",
		"platform_role": "admin",
	}
}

func TestNewVerifier_ShortKey(t *testing.T) {
	_, err := NewVerifier(Config{Key: []byte("short")})
	require.Error(t, err)
}

func TestVerifier_Verify(t *testing.T) {
	v := newTestVerifier(t)

	rec, err := v.Verify(context.Background(), sign(t, jwt.SigningMethodHS256, []byte(testKey), validClaims()))
	require.NoError(t, err)
	assert.Equal(t, domainauth.CustomAuthRecord{
		UserID:       "user-1",
		Email:        "a@example.com",
		PlatformRole: domainauth.RoleAdmin,
	}, rec)
}

func TestVerifier_Verify_Rejects(t *testing.T) {
	v := newTestVerifier(t)

	with := func(mutate func(jwt.MapClaims)) jwt.MapClaims {
		c := validClaims()
		mutate(c)
		return c
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "wrong key", token: sign(t, jwt.SigningMethodHS256, []byte("another-key-0123456789abcdefghijkl"), validClaims())},
		{name: "wrong algorithm", token: sign(t, jwt.SigningMethodHS512, []byte(testKey), validClaims())},
		{name: "unsigned", token: sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims())},
		{name: "expired", token: sign(t, jwt.SigningMethodHS256, []byte(testKey), with(func(c jwt.MapClaims) {
			c["exp"] = testNow.Add(-time.Minute).Unix()
		}))},
		{name: "no expiry", token: sign(t, jwt.SigningMethodHS256, []byte(testKey), with(func(c jwt.MapClaims) {
			delete(c, "exp")
		}))},
		{name: "other issuer", token: sign(t, jwt.SigningMethodHS256, []byte(testKey), with(func(c jwt.MapClaims) {
			c["iss"] = "someone-else"
		}))},
		{name: "no subject", token: sign(t, jwt.SigningMethodHS256, []byte(testKey), with(func(c jwt.MapClaims) {
			delete(c, "sub")
		}))},
		{name: "garbage", token: "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token)
			require.ErrorIs(t, err, ErrInvalidPrincipal)
		})
	}
}
