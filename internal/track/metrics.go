package track

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports stage outcomes to Prometheus. One Metrics instance is
// shared across runs; labels separate stages and outcomes.
type Metrics struct {
	stagesTotal   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

// NewMetrics builds and registers the stage metrics against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		stagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pipewright",
			Name:      "stages_total",
			Help:      "Stage executions by terminal status.",
		}, []string{"stage", "status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pipewright",
			Name:      "stage_duration_seconds",
			Help:      "Wall time per stage execution.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"stage"}),
	}
	reg.MustRegister(m.stagesTotal, m.stageDuration)
	return m
}

func (m *Metrics) observe(stage string, status Status, d time.Duration) {
	m.stagesTotal.WithLabelValues(stage, string(status)).Inc()
	if status == StatusCompleted || status == StatusFailed {
		m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}
