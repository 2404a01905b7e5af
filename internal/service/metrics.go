package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics - счетчики игровых сессий. nil-значение допустимо и ничего не пишет.
type Metrics struct {
	activeSessions prometheus.Gauge
	operations     *prometheus.CounterVec
	evicted        prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "story_engine",
			Name:      "active_sessions",
			Help:      "Number of live game sessions.",
		}),
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "story_engine",
			Name:      "session_operations_total",
			Help:      "Game session operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		evicted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "story_engine",
			Name:      "sessions_evicted_total",
			Help:      "Idle sessions removed by the janitor.",
		}),
	}
}

func (m *Metrics) setActive(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

func (m *Metrics) observe(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) addEvicted(n int) {
	if m == nil || n == 0 {
		return
	}
	m.evicted.Add(float64(n))
}
