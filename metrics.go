package columndb

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Monitor is the per-operation observability collaborator. ColumnDB
// calls through this narrow interface so it can be wired to whatever
// reporter the surrounding service runs without knowing what it is.
type Monitor interface {
	Observe(op string, dur time.Duration, err error)
}

// NoopMonitor discards every observation. It is the default when
// Options.Monitor is left unset.
type NoopMonitor struct{}

func (NoopMonitor) Observe(string, time.Duration, error) {}

// PrometheusMonitor records operation latency and error counts using
// github.com/prometheus/client_golang.
type PrometheusMonitor struct {
	latency *prometheus.HistogramVec
	errors  *prometheus.CounterVec
}

// NewPrometheusMonitor registers its metrics against reg and returns a
// ready-to-use Monitor.
func NewPrometheusMonitor(reg prometheus.Registerer) *PrometheusMonitor {
	m := &PrometheusMonitor{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "columndb",
			Name:      "op_duration_seconds",
			Help:      "Duration of ColumnDB operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "columndb",
			Name:      "op_errors_total",
			Help:      "Count of ColumnDB operations that returned an error.",
		}, []string{"op"}),
	}
	reg.MustRegister(m.latency, m.errors)
	return m
}

func (m *PrometheusMonitor) Observe(op string, dur time.Duration, err error) {
	m.latency.WithLabelValues(op).Observe(dur.Seconds())
	if err != nil {
		m.errors.WithLabelValues(op).Inc()
	}
}
