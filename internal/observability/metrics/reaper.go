package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	obserrors "github.com/target/mmk-sessiongate/internal/observability/errors"
)

// Reaper holds the collectors for retention cleanup. A nil *Reaper records nothing.
type Reaper struct {
	runs        *prometheus.CounterVec
	deleted     prometheus.Counter
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
}

// NewReaper creates the reaper collectors and registers them with reg.
func NewReaper(reg prometheus.Registerer) *Reaper {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Reaper{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reaper",
			Name:      "cleanup_runs_total",
			Help:      "Retention cleanup runs by result.",
		}, []string{"result", "error_class"}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reaper",
			Name:      "events_deleted_total",
			Help:      "Security events removed by retention cleanup.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reaper",
			Name:      "cleanup_duration_seconds",
			Help:      "Duration of retention cleanup runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reaper",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful cleanup run.",
		}),
	}
	reg.MustRegister(m.runs, m.deleted, m.duration, m.lastSuccess)
	return m
}

// ObserveCleanup records one cleanup run.
func (m *Reaper) ObserveCleanup(deleted int64, elapsed time.Duration, err error) {
	if m == nil {
		return
	}

	result := ResultSuccess
	class := ""
	switch {
	case err != nil:
		result = ResultError
		class = obserrors.Classify(err)
	case deleted == 0:
		result = ResultNoop
	}

	m.runs.WithLabelValues(result, class).Inc()
	if elapsed > 0 {
		m.duration.Observe(elapsed.Seconds())
	}
	if err == nil {
		m.deleted.Add(float64(deleted))
		m.lastSuccess.SetToCurrentTime()
	}
}
