// Package mocks provides gomock implementations of the session ports for tests.
//
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	provider := mocks.NewMockIdentityProvider(ctrl)
//	provider.EXPECT().SignOut(gomock.Any(), "token").Return(nil)
package mocks

// Generate mock for IdentityProvider interface from internal/ports package.
// SignOut, FetchClaims, CookieName
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_provider_mock.go github.com/target/mmk-sessiongate/internal/ports IdentityProvider

// Generate mock for PrincipalStore interface from internal/ports package.
// Save, Get, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=principal_store_mock.go github.com/target/mmk-sessiongate/internal/ports PrincipalStore

// Generate mock for SecurityEventStore interface from internal/ports package.
// Record, List, DeleteOlderThan
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=security_event_store_mock.go github.com/target/mmk-sessiongate/internal/ports SecurityEventStore

// Generate mock for ClaimMapper interface from internal/ports package.
// Map
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=claim_mapper_mock.go github.com/target/mmk-sessiongate/internal/ports ClaimMapper

// Generate mock for PrincipalVerifier interface from internal/ports package.
// Verify
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=principal_verifier_mock.go github.com/target/mmk-sessiongate/internal/ports PrincipalVerifier
