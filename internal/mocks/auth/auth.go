package auth

// Package auth contains simple hand-written test doubles for session ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
	"github.com/target/mmk-sessiongate/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider   = (*FakeIdentityProvider)(nil)
	_ ports.PrincipalStore     = (*MemoryPrincipalStore)(nil)
	_ ports.SecurityEventStore = (*MemorySecurityEventStore)(nil)
	_ ports.ClaimMapper        = (*StaticClaimMapper)(nil)
)

// FakeIdentityProvider simulates an identity provider. Calls are counted so tests
// can assert ordering and attempts.
type FakeIdentityProvider struct {
	SignOutFunc     func(ctx context.Context, accessToken string) error
	FetchClaimsFunc func(ctx context.Context, accessToken string) (map[string]any, error)

	// Claims keyed by access token, used when FetchClaimsFunc is nil.
	Claims  map[string]map[string]any
	Cookie  string
	mu      sync.Mutex
	signOut []string
}

// NewFakeIdentityProvider creates a FakeIdentityProvider with a default cookie name.
func NewFakeIdentityProvider() *FakeIdentityProvider {
	return &FakeIdentityProvider{
		Cookie: "sb-mockref-auth-token",
		Claims: make(map[string]map[string]any),
	}
}

func (f *FakeIdentityProvider) SignOut(ctx context.Context, accessToken string) error {
	f.mu.Lock()
	f.signOut = append(f.signOut, accessToken)
	f.mu.Unlock()

	if f.SignOutFunc != nil {
		return f.SignOutFunc(ctx, accessToken)
	}
	return nil
}

func (f *FakeIdentityProvider) FetchClaims(ctx context.Context, accessToken string) (map[string]any, error) {
	if f.FetchClaimsFunc != nil {
		return f.FetchClaimsFunc(ctx, accessToken)
	}
	claims, ok := f.Claims[accessToken]
	if !ok {
		return nil, ErrNotFound
	}
	return claims, nil
}

func (f *FakeIdentityProvider) CookieName() string { return f.Cookie }

// SignOutCalls returns the tokens SignOut was called with, in order.
func (f *FakeIdentityProvider) SignOutCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.signOut...)
}

// MemoryPrincipalStore is an in-memory principal store for unit tests.
// Expiry is tracked but only enforced on Get.
type MemoryPrincipalStore struct {
	mu      sync.Mutex
	entries map[string]memoryPrincipal
	now     func() time.Time
}

type memoryPrincipal struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryPrincipalStore creates a new in-memory principal store.
func NewMemoryPrincipalStore() *MemoryPrincipalStore {
	return &MemoryPrincipalStore{
		entries: make(map[string]memoryPrincipal),
		now:     time.Now,
	}
}

func (m *MemoryPrincipalStore) Save(_ context.Context, token string, principal []byte, ttl time.Duration) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[token] = memoryPrincipal{
		data:      append([]byte(nil), principal...),
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

func (m *MemoryPrincipalStore) Get(_ context.Context, token string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[token]
	if !ok || token == "" || !m.now().Before(e.expiresAt) {
		return nil, ports.ErrPrincipalNotFound
	}
	return append([]byte(nil), e.data...), nil
}

func (m *MemoryPrincipalStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, token)
	return nil
}

// Len returns the number of stored snapshots.
func (m *MemoryPrincipalStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// MemorySecurityEventStore keeps recorded events in memory.
type MemorySecurityEventStore struct {
	mu     sync.Mutex
	events []domainauth.SecurityEvent
	// RecordErr, when set, is returned by Record without storing the event.
	RecordErr error
}

// NewMemorySecurityEventStore creates an empty event store.
func NewMemorySecurityEventStore() *MemorySecurityEventStore {
	return &MemorySecurityEventStore{}
}

func (m *MemorySecurityEventStore) Record(_ context.Context, evt domainauth.SecurityEvent) error {
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}
	m.events = append(m.events, evt)
	return nil
}

func (m *MemorySecurityEventStore) List(
	_ context.Context,
	opts domainauth.ListSecurityEventsOptions,
) ([]domainauth.SecurityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domainauth.SecurityEvent, 0, len(m.events))
	for _, e := range m.events {
		if opts.Kind != "" && e.Kind != opts.Kind {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *MemorySecurityEventStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	var n int64
	for _, e := range m.events {
		if e.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return n, nil
}

// Kinds returns the kinds of recorded events in insertion order.
func (m *MemorySecurityEventStore) Kinds() []domainauth.SecurityEventKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domainauth.SecurityEventKind, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Kind)
	}
	return out
}

// ErrNotFound is returned by mocks when an entity is not present.
type notFoundError struct{}

func (notFoundError) Error() string { return "not found" }

var ErrNotFound error = notFoundError{}

// StaticClaimMapper reads well-known top-level claim names without any expression engine.
type StaticClaimMapper struct{}

func (StaticClaimMapper) Map(claims map[string]any) (domainauth.ProviderRecord, error) {
	if claims == nil {
		return domainauth.ProviderRecord{}, errors.New("no claims")
	}
	var rec domainauth.ProviderRecord
	rec.Subject, _ = claims["sub"].(string)
	rec.Email, _ = claims["email"].(string)
	if s, ok := claims["platform_role"].(string); ok {
		rec.PlatformRole = domainauth.Role(s)
	}
	if b, ok := claims["is_admin"].(bool); ok {
		rec.IsAdmin = &b
	}
	if s, ok := claims["role"].(string); ok {
		rec.MetadataRole = domainauth.Role(s)
	}
	return rec, nil
}
