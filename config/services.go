package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeReaper runs the security event reaper.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns every mode SERVICES may name.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeReaper}
}

// ParseServices turns a comma-separated SERVICES value into a set of modes.
// Blank entries are skipped; an unknown name or an empty result is an error.
func ParseServices(raw string) (map[ServiceMode]bool, error) {
	valid := ValidServiceModes()
	enabled := make(map[ServiceMode]bool, len(valid))

	for name := range strings.SplitSeq(raw, ",") {
		mode := ServiceMode(strings.TrimSpace(name))
		if mode == "" {
			continue
		}
		if !slices.Contains(valid, mode) {
			return nil, fmt.Errorf("invalid service name: %q (valid options: %s)", mode, joinModes(valid))
		}
		enabled[mode] = true
	}

	if len(enabled) == 0 {
		return nil, errors.New("at least one service must be specified")
	}
	return enabled, nil
}

func joinModes(modes []ServiceMode) string {
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// ReaperConfig contains security event reaper configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"1h"`

	// EventMaxAge is the retention window for security events.
	EventMaxAge time.Duration `env:"REAPER_EVENT_MAX_AGE" envDefault:"720h"` // 30 days

	// BatchSize bounds the rows removed per delete statement.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"1000"`
}

const (
	minReaperInterval = time.Minute
	minEventMaxAge    = 24 * time.Hour
	maxReaperBatch    = 10000
)

// Sanitize clamps the reaper settings so a bad env value cannot hammer the
// database or wipe the audit log.
func (r *ReaperConfig) Sanitize() {
	r.Interval = max(r.Interval, minReaperInterval)
	r.EventMaxAge = max(r.EventMaxAge, minEventMaxAge)
	r.BatchSize = min(max(r.BatchSize, 1), maxReaperBatch)
}
