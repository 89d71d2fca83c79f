package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-sessiongate/internal/bootstrap"
)

var (
	errDatabaseDisabled = errors.New("security event database is disabled (DB_ENABLED=false)")
	errRedisDisabled    = errors.New("principal store is disabled (REDIS_ENABLED=false)")
)

// backend describes one backing service a command may need.
type backend[T io.Closer] struct {
	name     string
	enabled  bool
	disabled error
	open     func(context.Context) (T, error)
}

// withBackend opens s, runs f under a signal-aware timeout, then closes s.
func withBackend[T io.Closer](cmdCtx *commandContext, timeout time.Duration, s backend[T], f func(context.Context, T) error) error {
	if !s.enabled {
		return s.disabled
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	handle, err := s.open(ctx)
	if err != nil {
		return fmt.Errorf("connect %s: %w", s.name, err)
	}
	defer func() {
		if cerr := handle.Close(); cerr != nil {
			cmdCtx.Logger.Warn("close failed", "store", s.name, "error", cerr)
		}
	}()

	return f(ctx, handle)
}

func withDatabase(cmdCtx *commandContext, timeout time.Duration, f func(context.Context, *sql.DB) error) error {
	return withBackend(cmdCtx, timeout, backend[*sql.DB]{
		name:     "db",
		enabled:  cmdCtx.Config.Postgres.Enabled,
		disabled: errDatabaseDisabled,
		open: func(ctx context.Context) (*sql.DB, error) {
			return bootstrap.ConnectDB(ctx, cmdCtx.Config.Postgres, cmdCtx.Logger)
		},
	}, f)
}

func withRedis(cmdCtx *commandContext, timeout time.Duration, f func(context.Context, redis.UniversalClient) error) error {
	return withBackend(cmdCtx, timeout, backend[redis.UniversalClient]{
		name:     "redis",
		enabled:  cmdCtx.Config.Redis.Enabled,
		disabled: errRedisDisabled,
		open: func(ctx context.Context) (redis.UniversalClient, error) {
			return bootstrap.ConnectRedis(ctx, cmdCtx.Config.Redis, cmdCtx.Logger)
		},
	}, f)
}
