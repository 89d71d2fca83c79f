// Package reaper provides the adapter that runs security event retention.
package reaper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/mmk-sessiongate/config"
	"github.com/target/mmk-sessiongate/internal/data"
	"github.com/target/mmk-sessiongate/internal/observability/metrics"
	"github.com/target/mmk-sessiongate/internal/service"
)

// Runner wires the PostgreSQL event repository into the retention service and runs its loop.
type Runner struct {
	retention *service.RetentionService
	logger    *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Config config.ReaperConfig
	Logger *slog.Logger

	// Optional dependency injection for testing
	Repo    service.EventPruner
	Metrics *metrics.Reaper
}

// NewRunner creates a new reaper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.DB == nil && opts.Repo == nil {
		return nil, errors.New("database connection is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	repo := opts.Repo
	if repo == nil {
		repo = data.NewSecurityEventRepo(opts.DB, data.SecurityEventRepoOptions{
			BatchSize: opts.Config.BatchSize,
		})
	}

	svc, err := service.NewRetentionService(service.RetentionServiceOptions{
		Pruner:  repo,
		Config:  opts.Config,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("wire retention service: %w", err)
	}

	return &Runner{retention: svc, logger: opts.Logger}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper runner")
	return r.retention.Run(ctx)
}

// PruneOnce runs a single retention pass, for the admin CLI.
func (r *Runner) PruneOnce(ctx context.Context) (int64, error) {
	return r.retention.Sweep(ctx)
}
