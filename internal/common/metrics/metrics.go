// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scoring_jobs_submitted_total",
			Help: "Total number of scoring jobs queued to the external service",
		},
	)

	JobsHarvested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoring_jobs_harvested_total",
			Help: "Total number of pending jobs resolved, by outcome",
		},
		[]string{"outcome"},
	)

	SubjectsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoring_subjects_skipped_total",
			Help: "Total number of subjects skipped during submission",
		},
		[]string{"reason"},
	)

	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "scoring_phase_duration_seconds",
			Help: "Duration of a pipeline phase in seconds",
		},
		[]string{"phase"},
	)

	PipelineErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoring_pipeline_errors_total",
			Help: "Total per-item pipeline errors, by error category",
		},
		[]string{"category"},
	)

	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoring_provider_calls_total",
			Help: "Total calls to the external scoring service, by operation and result",
		},
		[]string{"operation", "result"},
	)
)
