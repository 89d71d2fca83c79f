package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/target/mmk-sessiongate/internal/data/pgxutil"
	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
	apperrors "github.com/target/mmk-sessiongate/internal/errors"
	"github.com/target/mmk-sessiongate/internal/ports"
)

var _ ports.SecurityEventStore = (*SecurityEventRepo)(nil)

// Advisory lock namespace for retention cleanup.
// Using two-arg pg_try_advisory_xact_lock(major, minor) for proper namespacing.
const (
	advisoryLockRetentionMajor       = 1000
	advisoryLockRetentionEventDelete = 1
)

const (
	defaultEventListLimit = 100
	maxEventListLimit     = 1000
	defaultDeleteBatch    = 1000
)

const securityEventColumns = `id, kind, origin, remote_addr, hostname, reason, created_at`

// SecurityEventRepo persists the security audit log in PostgreSQL.
type SecurityEventRepo struct {
	DB        *sql.DB
	batchSize int
	now       func() time.Time
}

// SecurityEventRepoOptions configures SecurityEventRepo.
type SecurityEventRepoOptions struct {
	BatchSize int              // Optional: rows deleted per transaction, defaults to 1000
	Clock     func() time.Time // Optional: stamps events recorded without CreatedAt
}

// NewSecurityEventRepo creates a SecurityEventRepo.
func NewSecurityEventRepo(db *sql.DB, opts SecurityEventRepoOptions) *SecurityEventRepo {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = defaultDeleteBatch
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &SecurityEventRepo{DB: db, batchSize: batch, now: now}
}

// Record inserts one event.
func (r *SecurityEventRepo) Record(ctx context.Context, evt domainauth.SecurityEvent) error {
	if strings.TrimSpace(evt.ID) == "" {
		return ErrEventIDRequired
	}
	if evt.Kind == "" {
		return ErrEventKindRequired
	}
	createdAt := evt.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO security_events (`+securityEventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		evt.ID,
		string(evt.Kind),
		evt.Origin,
		evt.RemoteAddr,
		evt.Hostname,
		evt.Reason,
		createdAt.UTC(),
	)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// List returns events newest first, optionally filtered by kind.
func (r *SecurityEventRepo) List(
	ctx context.Context,
	opts domainauth.ListSecurityEventsOptions,
) ([]domainauth.SecurityEvent, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultEventListLimit
	}
	if limit > maxEventListLimit {
		limit = maxEventListLimit
	}

	query := `SELECT ` + securityEventColumns + ` FROM security_events`
	args := []any{}
	if opts.Kind != "" {
		query += ` WHERE kind = $1`
		args = append(args, string(opts.Kind))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	var out []domainauth.SecurityEvent
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[domainauth.SecurityEvent])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list security events: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// DeleteOlderThan removes events created before cutoff in batches so a large
// backlog never holds one long transaction. Concurrent callers are serialized by
// an advisory lock; a caller that loses the lock deletes nothing.
func (r *SecurityEventRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for {
		n, err := r.deleteBatch(ctx, cutoff)
		if err != nil {
			return total, err
		}
		total += n
		if n < int64(r.batchSize) {
			return total, nil
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
}

func (r *SecurityEventRepo) deleteBatch(ctx context.Context, cutoff time.Time) (int64, error) {
	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)",
				advisoryLockRetentionMajor, advisoryLockRetentionEventDelete).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			res, err := tx.ExecContext(ctx, `
				DELETE FROM security_events
				WHERE id IN (
					SELECT id FROM security_events
					WHERE created_at < $1
					ORDER BY created_at
					LIMIT $2
				)
			`, cutoff.UTC(), r.batchSize)
			if err != nil {
				return fmt.Errorf("delete old security events: %w", err)
			}

			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}
