package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-sessiongate/config"
	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
	authmocks "github.com/target/mmk-sessiongate/internal/mocks/auth"
	"github.com/target/mmk-sessiongate/internal/observability/metrics"
)

// recordingPruner remembers every cutoff it was asked to prune.
type recordingPruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	deleted int64
	err     error
}

func (p *recordingPruner) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cutoffs = append(p.cutoffs, cutoff)
	if p.err != nil {
		return 0, p.err
	}
	return p.deleted, nil
}

func (p *recordingPruner) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cutoffs)
}

func fastRetention(maxAge time.Duration) config.ReaperConfig {
	return config.ReaperConfig{Interval: 10 * time.Millisecond, EventMaxAge: maxAge}
}

func TestNewRetentionService_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts RetentionServiceOptions
	}{
		{"missing pruner", RetentionServiceOptions{Config: fastRetention(time.Hour)}},
		{"zero max age", RetentionServiceOptions{Pruner: &recordingPruner{}, Config: config.ReaperConfig{Interval: time.Hour}}},
		{"zero interval", RetentionServiceOptions{Pruner: &recordingPruner{}, Config: config.ReaperConfig{EventMaxAge: time.Hour}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewRetentionService(tt.opts)
			require.Error(t, err)
			assert.Nil(t, svc)
		})
	}
}

func TestRetentionService_Sweep(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("removes only expired events", func(t *testing.T) {
		store := authmocks.NewMemorySecurityEventStore()
		ctx := context.Background()
		require.NoError(t, store.Record(ctx, domainauth.SecurityEvent{
			Kind:      domainauth.EventCSRFRejected,
			CreatedAt: now.Add(-48 * time.Hour),
		}))
		require.NoError(t, store.Record(ctx, domainauth.SecurityEvent{
			Kind:      domainauth.EventSessionEstablished,
			CreatedAt: now.Add(-time.Hour),
		}))

		svc, err := NewRetentionService(RetentionServiceOptions{
			Pruner:  store,
			Config:  config.ReaperConfig{Interval: time.Hour, EventMaxAge: 24 * time.Hour},
			Metrics: metrics.NewReaper(prometheus.NewRegistry()),
			Now:     func() time.Time { return now },
		})
		require.NoError(t, err)

		deleted, err := svc.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)
		assert.Equal(t, []domainauth.SecurityEventKind{domainauth.EventSessionEstablished}, store.Kinds())
	})

	t.Run("cutoff is now minus max age", func(t *testing.T) {
		p := &recordingPruner{deleted: 3}
		svc, err := NewRetentionService(RetentionServiceOptions{
			Pruner: p,
			Config: config.ReaperConfig{Interval: time.Hour, EventMaxAge: 7 * 24 * time.Hour},
			Now:    func() time.Time { return now },
		})
		require.NoError(t, err)

		deleted, err := svc.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), deleted)
		require.Len(t, p.cutoffs, 1)
		assert.Equal(t, now.Add(-7*24*time.Hour), p.cutoffs[0])
	})

	t.Run("wraps store errors", func(t *testing.T) {
		p := &recordingPruner{err: errors.New("db down")}
		svc, err := NewRetentionService(RetentionServiceOptions{Pruner: p, Config: fastRetention(time.Hour)})
		require.NoError(t, err)

		_, err = svc.Sweep(context.Background())
		require.Error(t, err)
		assert.ErrorContains(t, err, "db down")
	})
}

func TestRetentionService_Run(t *testing.T) {
	t.Run("cancellation is a clean stop", func(t *testing.T) {
		p := &recordingPruner{}
		svc, err := NewRetentionService(RetentionServiceOptions{Pruner: p, Config: fastRetention(time.Hour)})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Run(ctx) }()

		require.Eventually(t, func() bool { return p.calls() >= 2 }, time.Second, 5*time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("retention loop did not stop")
		}
	})

	t.Run("keeps sweeping after failures", func(t *testing.T) {
		p := &recordingPruner{err: errors.New("transient")}
		svc, err := NewRetentionService(RetentionServiceOptions{Pruner: p, Config: fastRetention(time.Hour)})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- svc.Run(ctx) }()

		require.Eventually(t, func() bool { return p.calls() >= 3 }, time.Second, 5*time.Millisecond)
		cancel()
		assert.NoError(t, <-done)
	})

	t.Run("deadline is reported", func(t *testing.T) {
		svc, err := NewRetentionService(RetentionServiceOptions{
			Pruner: &recordingPruner{},
			Config: config.ReaperConfig{Interval: time.Hour, EventMaxAge: time.Hour},
		})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, svc.Run(ctx), context.DeadlineExceeded)
	})
}

func TestStartDelay(t *testing.T) {
	assert.Zero(t, startDelay(5*time.Nanosecond))
	for range 50 {
		d := startDelay(time.Second)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, 100*time.Millisecond)
	}
}
