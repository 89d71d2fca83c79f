package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
	apperrors "github.com/target/mmk-sessiongate/internal/errors"
	"github.com/target/mmk-sessiongate/internal/mocks"
	authmocks "github.com/target/mmk-sessiongate/internal/mocks/auth"
)

func newTestSessionService(t *testing.T, opts SessionServiceOptions) *SessionService {
	t.Helper()
	if opts.Cookies == nil {
		opts.Cookies = NewCookieManager(CookieManagerOptions{BaseDomain: "example.com", Secure: true})
	}
	svc, err := NewSessionService(opts)
	require.NoError(t, err)
	return svc
}

func TestNewSessionService_RequiresCookies(t *testing.T) {
	svc, err := NewSessionService(SessionServiceOptions{})
	require.Error(t, err)
	assert.Nil(t, svc)
}

func TestSessionService_Establish(t *testing.T) {
	rc := domainauth.RequestContext{Hostname: "app.example.com"}

	t.Run("issues cookies and records the event", func(t *testing.T) {
		events := authmocks.NewMemorySecurityEventStore()
		svc := newTestSessionService(t, SessionServiceOptions{Events: events})

		res, err := svc.Establish(context.Background(), EstablishInput{Tokens: fullTokens(), Request: rc})
		require.NoError(t, err)
		require.Len(t, res.Cookies, 3)
		assert.Equal(t, []domainauth.SecurityEventKind{domainauth.EventSessionEstablished}, events.Kinds())
	})

	t.Run("device token alone is enough", func(t *testing.T) {
		svc := newTestSessionService(t, SessionServiceOptions{})
		res, err := svc.Establish(context.Background(), EstablishInput{
			Tokens:  domainauth.TokenSet{DeviceToken: "device-token-0123456789"},
			Request: rc,
		})
		require.NoError(t, err)
		require.Len(t, res.Cookies, 1)
	})

	tests := []struct {
		name      string
		tokens    domainauth.TokenSet
		wantCause error
		wantField string
	}{
		{
			name:      "no tokens",
			tokens:    domainauth.TokenSet{},
			wantCause: domainauth.ErrNoSessionToken,
		},
		{
			name:      "refresh token only",
			tokens:    domainauth.TokenSet{RefreshToken: "refresh-token-0123456789"},
			wantCause: domainauth.ErrNoSessionToken,
		},
		{
			name:      "short access token",
			tokens:    domainauth.TokenSet{AccessToken: "short"},
			wantCause: domainauth.ErrTokenTooShort,
			wantField: "access_token",
		},
		{
			name:      "short refresh token",
			tokens:    domainauth.TokenSet{AccessToken: "access-token-0123456789", RefreshToken: "tiny"},
			wantCause: domainauth.ErrTokenTooShort,
			wantField: "refresh_token",
		},
		{
			name:      "short device token",
			tokens:    domainauth.TokenSet{DeviceToken: "123456789"},
			wantCause: domainauth.ErrTokenTooShort,
			wantField: "device_token",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := authmocks.NewMemorySecurityEventStore()
			principals := authmocks.NewMemoryPrincipalStore()
			svc := newTestSessionService(t, SessionServiceOptions{Events: events, Principals: principals})

			res, err := svc.Establish(context.Background(), EstablishInput{
				Tokens:         tt.tokens,
				PrincipalToken: "signed-principal",
				Request:        rc,
			})
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, apperrors.IsValidation(err))
			assert.ErrorIs(t, err, tt.wantCause)
			assert.Equal(t, tt.wantField, apperrors.GetField(err))
			assert.Zero(t, principals.Len())
			assert.Equal(t, []domainauth.SecurityEventKind{domainauth.EventSessionEstablishRejected}, events.Kinds())
		})
	}
}

func TestSessionService_Establish_StoresVerifiedPrincipal(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockPrincipalVerifier(ctrl)
	principals := mocks.NewMockPrincipalStore(ctrl)
	svc := newTestSessionService(t, SessionServiceOptions{Principals: principals, Verifier: verifier})

	rec := domainauth.CustomAuthRecord{UserID: "u1", Email: "a@example.com", PlatformRole: domainauth.RoleSuperadmin}
	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	verifier.EXPECT().Verify(gomock.Any(), "signed-principal").Return(rec, nil)
	principals.EXPECT().
		Save(gomock.Any(), "access-token-0123456789", raw, domainauth.AccessTokenMaxAge).
		Return(nil)

	_, err = svc.Establish(context.Background(), EstablishInput{Tokens: fullTokens(), PrincipalToken: "signed-principal"})
	require.NoError(t, err)
}

func TestSessionService_Establish_DeviceTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockPrincipalVerifier(ctrl)
	principals := mocks.NewMockPrincipalStore(ctrl)
	svc := newTestSessionService(t, SessionServiceOptions{Principals: principals, Verifier: verifier})

	verifier.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(domainauth.CustomAuthRecord{UserID: "u1"}, nil)
	principals.EXPECT().
		Save(gomock.Any(), "device-token-0123456789", gomock.Any(), domainauth.DeviceTokenMaxAge).
		Return(nil)

	_, err := svc.Establish(context.Background(), EstablishInput{
		Tokens:         domainauth.TokenSet{DeviceToken: "device-token-0123456789"},
		PrincipalToken: "signed-principal",
	})
	require.NoError(t, err)
}

func TestSessionService_Establish_RejectsUnverifiedPrincipal(t *testing.T) {
	t.Run("no verifier configured", func(t *testing.T) {
		events := authmocks.NewMemorySecurityEventStore()
		principals := authmocks.NewMemoryPrincipalStore()
		svc := newTestSessionService(t, SessionServiceOptions{Principals: principals, Events: events})

		res, err := svc.Establish(context.Background(), EstablishInput{
			Tokens:         fullTokens(),
			PrincipalToken: "signed-principal",
		})
		require.Error(t, err)
		assert.Nil(t, res)
		assert.True(t, apperrors.IsValidation(err))
		assert.Equal(t, "principal", apperrors.GetField(err))
		assert.Zero(t, principals.Len())
		assert.Equal(t, []domainauth.SecurityEventKind{domainauth.EventSessionEstablishRejected}, events.Kinds())
	})

	t.Run("verification failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		verifier := mocks.NewMockPrincipalVerifier(ctrl)
		principals := authmocks.NewMemoryPrincipalStore()
		svc := newTestSessionService(t, SessionServiceOptions{Principals: principals, Verifier: verifier})

		badSig := errors.New("signature is invalid")
		verifier.EXPECT().Verify(gomock.Any(), "forged").Return(domainauth.CustomAuthRecord{}, badSig)

		_, err := svc.Establish(context.Background(), EstablishInput{Tokens: fullTokens(), PrincipalToken: "forged"})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.ErrorIs(t, err, badSig)
		assert.Equal(t, "principal", apperrors.GetField(err))
		assert.Zero(t, principals.Len())
	})
}

func TestSessionService_Establish_PrincipalStoreFailureIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockPrincipalVerifier(ctrl)
	principals := mocks.NewMockPrincipalStore(ctrl)
	svc := newTestSessionService(t, SessionServiceOptions{Principals: principals, Verifier: verifier})

	verifier.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(domainauth.CustomAuthRecord{UserID: "u1"}, nil)
	principals.EXPECT().
		Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("redis unavailable"))

	res, err := svc.Establish(context.Background(), EstablishInput{
		Tokens:         fullTokens(),
		PrincipalToken: "signed-principal",
	})
	require.NoError(t, err)
	assert.Len(t, res.Cookies, 3)
}

func TestSessionService_Establish_PrincipalReadable(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockPrincipalVerifier(ctrl)
	principals := authmocks.NewMemoryPrincipalStore()
	svc := newTestSessionService(t, SessionServiceOptions{Principals: principals, Verifier: verifier})

	verifier.EXPECT().Verify(gomock.Any(), gomock.Any()).
		Return(domainauth.CustomAuthRecord{UserID: "u1", PlatformRole: domainauth.RoleAdmin}, nil)

	_, err := svc.Establish(context.Background(), EstablishInput{
		Tokens:         fullTokens(),
		PrincipalToken: "signed-principal",
	})
	require.NoError(t, err)

	got, err := principals.Get(context.Background(), "access-token-0123456789")
	require.NoError(t, err)
	src, ok := domainauth.ParseCustomAuthSource(got).(domainauth.CustomAuthSource)
	require.True(t, ok)
	assert.Equal(t, domainauth.RoleAdmin, src.Record.PlatformRole)
}

func TestSessionService_Establish_AuditFailureIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	events := mocks.NewMockSecurityEventStore(ctrl)
	events.EXPECT().
		Record(gomock.Any(), gomock.Cond(func(evt domainauth.SecurityEvent) bool {
			return evt.Kind == domainauth.EventSessionEstablished && evt.ID != ""
		})).
		Return(errors.New("audit log down"))

	svc := newTestSessionService(t, SessionServiceOptions{Events: events})
	res, err := svc.Establish(context.Background(), EstablishInput{
		Tokens:  fullTokens(),
		Request: domainauth.RequestContext{Hostname: "app.example.com"},
	})

	require.NoError(t, err)
	assert.Len(t, res.Cookies, 3)
}
