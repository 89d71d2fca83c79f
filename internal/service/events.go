package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
	"github.com/target/mmk-sessiongate/internal/ports"
)

// recordEvent writes evt to the audit log. Audit failures are logged and dropped;
// they never affect the request that triggered them.
func recordEvent(ctx context.Context, rec ports.SecurityEventRecorder, logger *slog.Logger, evt domainauth.SecurityEvent) {
	if rec == nil {
		return
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}
	if err := rec.Record(ctx, evt); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to record security event",
			"event", string(evt.Kind),
			"error", err,
		)
	}
}
