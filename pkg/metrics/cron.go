package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics tracks per-job timing and outcomes for the scheduled
// workers. A zero value (nil registerer) records nothing, which keeps test
// wiring free of a registry.
type CronJobMetrics struct {
	runSeconds *prometheus.HistogramVec
	runs       *prometheus.CounterVec
}

// NewCronJobMetrics registers the cron collectors on the given registerer.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	runSeconds := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kitloop_cron_run_seconds",
		Help:    "Wall time spent per cron job run.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kitloop_cron_runs_total",
		Help: "Cron job runs partitioned by outcome.",
	}, []string{"job", "outcome"})
	reg.MustRegister(runSeconds, runs)
	return &CronJobMetrics{runSeconds: runSeconds, runs: runs}
}

// ObserveDuration records how long the named job ran.
func (m *CronJobMetrics) ObserveDuration(job string, d time.Duration) {
	if m == nil || m.runSeconds == nil {
		return
	}
	m.runSeconds.WithLabelValues(jobLabel(job)).Observe(d.Seconds())
}

// IncSuccess counts a completed run for the named job.
func (m *CronJobMetrics) IncSuccess(job string) {
	m.incOutcome(job, "success")
}

// IncFailure counts a failed run for the named job.
func (m *CronJobMetrics) IncFailure(job string) {
	m.incOutcome(job, "failure")
}

func (m *CronJobMetrics) incOutcome(job, outcome string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(jobLabel(job), outcome).Inc()
}

func jobLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
