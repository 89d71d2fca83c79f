package redis

// Package redis provides Redis-based adapters for session state.

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-sessiongate/internal/ports"
)

// DefaultPrincipalPrefix namespaces principal snapshot keys.
const DefaultPrincipalPrefix = "sessiongate:principal:"

var _ ports.PrincipalStore = (*PrincipalStore)(nil)

// PrincipalStore keeps custom-auth principal snapshots keyed by session token.
// Tokens are hashed before use as keys so the keyspace never holds credentials.
type PrincipalStore struct {
	client redis.UniversalClient
	prefix string
}

// NewPrincipalStore creates a principal store using DefaultPrincipalPrefix.
func NewPrincipalStore(client redis.UniversalClient) *PrincipalStore {
	return NewPrincipalStoreWithPrefix(client, DefaultPrincipalPrefix)
}

// NewPrincipalStoreWithPrefix creates a principal store with a custom key prefix.
func NewPrincipalStoreWithPrefix(client redis.UniversalClient, prefix string) *PrincipalStore {
	if prefix == "" {
		prefix = DefaultPrincipalPrefix
	}
	return &PrincipalStore{
		client: client,
		prefix: prefix,
	}
}

func (s *PrincipalStore) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + hex.EncodeToString(sum[:])
}

func (s *PrincipalStore) Save(ctx context.Context, token string, principal []byte, ttl time.Duration) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}
	if err := s.client.Set(ctx, s.key(token), principal, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *PrincipalStore) Get(ctx context.Context, token string) ([]byte, error) {
	if token == "" {
		return nil, ports.ErrPrincipalNotFound
	}
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ports.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (s *PrincipalStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil // Nothing to delete
	}
	return s.client.Del(ctx, s.key(token)).Err()
}
