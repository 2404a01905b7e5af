package judgment

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics - счетчики судьи. nil-значение допустимо и ничего не пишет.
type Metrics struct {
	verdicts       *prometheus.CounterVec
	remoteFailures *prometheus.CounterVec
	remoteLatency  *prometheus.HistogramVec
	tokens         *prometheus.CounterVec
}

// NewMetrics регистрирует метрики в reg. В тестах передается свой prometheus.NewRegistry().
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		verdicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "story_engine_judgment_verdicts_total",
			Help: "Free-text judgments by provenance and outcome.",
		}, []string{"provenance", "outcome"}),
		remoteFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "story_engine_judgment_remote_failures_total",
			Help: "Remote classifier failures that fell back to local rules.",
		}, []string{"backend", "reason"}),
		remoteLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "story_engine_judgment_remote_duration_seconds",
			Help:    "Latency of remote classifier calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend"}),
		tokens: f.NewCounterVec(prometheus.CounterOpts{
			Name: "story_engine_judgment_tokens_total",
			Help: "Tokens spent on remote judgments, reported or estimated.",
		}, []string{"backend", "kind"}),
	}
}

func (m *Metrics) observeVerdict(r Result) {
	if m == nil {
		return
	}
	outcome := "fail"
	if r.Passed {
		outcome = "pass"
	}
	m.verdicts.WithLabelValues(string(r.Provenance), outcome).Inc()
}

func (m *Metrics) observeFailure(backend, reason string) {
	if m == nil {
		return
	}
	m.remoteFailures.WithLabelValues(backend, reason).Inc()
}

func (m *Metrics) observeLatency(backend string, d time.Duration) {
	if m == nil {
		return
	}
	m.remoteLatency.WithLabelValues(backend).Observe(d.Seconds())
}

// ObserveTokens is called by backends once per completed request.
func (m *Metrics) ObserveTokens(backend string, prompt, completion int) {
	if m == nil {
		return
	}
	if prompt > 0 {
		m.tokens.WithLabelValues(backend, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		m.tokens.WithLabelValues(backend, "completion").Add(float64(completion))
	}
}
