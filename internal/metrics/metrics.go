package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels Observations evaluated from a well-formed input line.
	OutcomeSuccess = "success"
	// OutcomeMalformed labels Observations evaluated from an unparsable or schema-invalid line.
	OutcomeMalformed = "malformed"
	// OutcomeError labels Observations whose records could not be validated or written.
	OutcomeError = "error"
)

var (
	stageResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atlas",
			Name:      "stage_results_total",
			Help:      "Total number of stage records emitted, partitioned by stage and status.",
		},
		[]string{"stage", "status"},
	)

	observationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atlas",
			Name:      "observations_total",
			Help:      "Total number of Observations evaluated, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	observationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "atlas",
			Name:      "observation_seconds",
			Help:      "Per-Observation evaluation latency in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
	)

	bootstrapResamples = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "atlas",
			Name:      "bootstrap_effective_resamples",
			Help:      "Number of valid bootstrap resamples retained per ROC interval.",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
		},
	)
)

// Collectors lists every atlas collector.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		stageResultsTotal,
		observationsTotal,
		observationDurationSeconds,
		bootstrapResamples,
	}
}

// Register attaches atlas collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	for _, collector := range Collectors() {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveStage counts one emitted stage record.
func ObserveStage(stage, status string) {
	stageResultsTotal.WithLabelValues(stage, status).Inc()
}

// ObserveObservation records an Observation's evaluation latency and outcome label.
func ObserveObservation(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeMalformed, OutcomeError:
	default:
		outcome = OutcomeSuccess
	}
	observationsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	observationDurationSeconds.Observe(duration.Seconds())
}

// ObserveBootstrap records the effective resample count of one bootstrap interval.
func ObserveBootstrap(effective int) {
	bootstrapResamples.Observe(float64(effective))
}

// WriteTextfile gathers reg and writes it in the node-exporter textfile format.
func WriteTextfile(reg prometheus.Gatherer, path string) error {
	return prometheus.WriteToTextfile(path, reg)
}
