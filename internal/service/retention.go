package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/target/mmk-sessiongate/config"
	"github.com/target/mmk-sessiongate/internal/observability/metrics"
)

// EventPruner deletes audit rows older than a cutoff.
type EventPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionServiceOptions groups dependencies for RetentionService.
type RetentionServiceOptions struct {
	Pruner  EventPruner         // Required
	Config  config.ReaperConfig // Required: Interval and EventMaxAge must be positive
	Logger  *slog.Logger        // Optional
	Metrics *metrics.Reaper     // Optional
	Now     func() time.Time    // Optional
}

// RetentionService keeps the security event log inside its retention window.
type RetentionService struct {
	pruner   EventPruner
	interval time.Duration
	maxAge   time.Duration
	logger   *slog.Logger
	metrics  *metrics.Reaper
	now      func() time.Time
}

// NewRetentionService validates opts and builds a RetentionService.
func NewRetentionService(opts RetentionServiceOptions) (*RetentionService, error) {
	if opts.Pruner == nil {
		return nil, errors.New("security event pruner is required")
	}
	if opts.Config.EventMaxAge <= 0 {
		return nil, errors.New("event max age must be positive")
	}
	if opts.Config.Interval <= 0 {
		return nil, errors.New("reaper interval must be positive")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &RetentionService{
		pruner:   opts.Pruner,
		interval: opts.Config.Interval,
		maxAge:   opts.Config.EventMaxAge,
		logger:   logger.With("component", "retention"),
		metrics:  opts.Metrics,
		now:      now,
	}, nil
}

// Run sweeps once after a short random delay and then every interval until
// ctx ends. Cancellation is a clean stop and returns nil; a deadline is returned.
// Sweep failures are logged and the loop keeps going.
func (s *RetentionService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "retention loop started", "interval", s.interval, "max_age", s.maxAge)

	// Replicas that boot together should not sweep together.
	timer := time.NewTimer(startDelay(s.interval))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "retention loop stopped", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-timer.C:
			if _, err := s.Sweep(ctx); err != nil && !isContextDone(err) {
				s.logger.ErrorContext(ctx, "retention sweep failed", "error", err)
			}
			timer.Reset(s.interval)
		}
	}
}

// Sweep deletes every event older than the retention window once.
func (s *RetentionService) Sweep(ctx context.Context) (int64, error) {
	started := time.Now()
	cutoff := s.now().Add(-s.maxAge).UTC()

	deleted, err := s.pruner.DeleteOlderThan(ctx, cutoff)
	if isContextDone(err) {
		s.metrics.ObserveCleanup(deleted, time.Since(started), nil)
	} else {
		s.metrics.ObserveCleanup(deleted, time.Since(started), err)
	}
	if err != nil {
		return deleted, fmt.Errorf("prune security events before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	if deleted > 0 {
		s.logger.InfoContext(ctx, "pruned security events", "count", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}

// startDelay is uniform in [0, interval/10).
func startDelay(interval time.Duration) time.Duration {
	spread := interval / 10
	if spread <= 0 {
		return 0
	}
	return rand.N(spread)
}

func isContextDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
