package debugger

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the run counters exported on /metrics.
type Metrics struct {
	Runs     *prometheus.CounterVec
	Duration prometheus.Histogram
	States   *prometheus.HistogramVec
	Steps    prometheus.Histogram
}

// NewMetrics creates the run metrics and registers them with reg when reg
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stepbyte",
			Name:      "runs_total",
			Help:      "Traced runs by outcome.",
		}, []string{"outcome"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stepbyte",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a traced run, including staging and post-processing.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		States: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stepbyte",
			Name:      "run_states",
			Help:      "States per run at each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 9),
		}, []string{"stage"}),
		Steps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stepbyte",
			Name:      "run_steps",
			Help:      "Line events executed per run.",
			Buckets:   prometheus.ExponentialBuckets(1, 8, 7),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Runs, m.Duration, m.States, m.Steps)
	}
	return m
}
