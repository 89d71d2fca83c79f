package auth

import "time"

// SecurityEventKind classifies an audit-log entry.
type SecurityEventKind string

const (
	EventCSRFRejected               SecurityEventKind = "csrf_rejected"
	EventSessionEstablished         SecurityEventKind = "session_established"
	EventSessionEstablishRejected   SecurityEventKind = "session_establish_rejected"
	EventSessionTerminated          SecurityEventKind = "session_terminated"
	EventUpstreamInvalidationFailed SecurityEventKind = "upstream_invalidation_failed"
	EventAdminAccessDenied          SecurityEventKind = "admin_access_denied"
)

// Valid reports whether k is one of the known event kinds.
func (k SecurityEventKind) Valid() bool {
	switch k {
	case EventCSRFRejected, EventSessionEstablished, EventSessionEstablishRejected,
		EventSessionTerminated, EventUpstreamInvalidationFailed, EventAdminAccessDenied:
		return true
	default:
		return false
	}
}

// SecurityEvent is a security-relevant occurrence recorded for audit.
// It never carries token values.
type SecurityEvent struct {
	ID         string            `json:"id"                    db:"id"`
	Kind       SecurityEventKind `json:"kind"                  db:"kind"`
	Origin     string            `json:"origin,omitempty"      db:"origin"`
	RemoteAddr string            `json:"remote_addr,omitempty" db:"remote_addr"`
	Hostname   string            `json:"hostname,omitempty"    db:"hostname"`
	Reason     string            `json:"reason,omitempty"      db:"reason"`
	CreatedAt  time.Time         `json:"created_at"            db:"created_at"`
}

// ListSecurityEventsOptions bounds an audit-log query.
type ListSecurityEventsOptions struct {
	Limit int
	Kind  SecurityEventKind
}
