package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
	"github.com/target/mmk-sessiongate/internal/service"
)

const (
	defaultSecurityEventLimit = 100
	maxSecurityEventLimit     = 1000

	// minPruneAge keeps an online prune from erasing the last day of audit history.
	minPruneAge = 24 * time.Hour
)

// SecurityEventLister reads the audit log.
type SecurityEventLister interface {
	List(ctx context.Context, opts domainauth.ListSecurityEventsOptions) ([]domainauth.SecurityEvent, error)
}

// SecurityEventHandlers serves the admin audit log.
type SecurityEventHandlers struct {
	Store  SecurityEventLister
	Pruner service.EventPruner // Optional: DELETE is not mounted without it
	Now    func() time.Time    // Optional
	Logger *slog.Logger        // Optional
}

// List handles GET /api/admin/security-events?limit=&kind=.
func (h *SecurityEventHandlers) List(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	limit := parseLimit(r, defaultSecurityEventLimit, maxSecurityEventLimit)

	kind := domainauth.SecurityEventKind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_kind",
			Err:     fmt.Errorf("unknown security event kind %q", kind),
		})
		return
	}

	events, err := h.Store.List(r.Context(), domainauth.ListSecurityEventsOptions{Limit: limit, Kind: kind})
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	if events == nil {
		events = []domainauth.SecurityEvent{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"limit":  limit,
	})
}

// Prune handles DELETE /api/admin/security-events?older_than=720h.
// Superadmin only; the age must be at least a day.
func (h *SecurityEventHandlers) Prune(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	raw := r.URL.Query().Get("older_than")
	age, err := time.ParseDuration(raw)
	if err != nil || age < minPruneAge {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_older_than",
			Err:     fmt.Errorf("older_than must be a duration of at least %s, got %q", minPruneAge, raw),
		})
		return
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	cutoff := now().Add(-age).UTC()

	deleted, err := h.Pruner.DeleteOlderThan(r.Context(), cutoff)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"deleted": deleted,
		"cutoff":  cutoff,
	})
}
