package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels source attempts that produced a payload.
	OutcomeSuccess = "success"
	// RedrawExecuted labels redraw requests that ran.
	RedrawExecuted = "executed"
	// RedrawDropped labels redraw requests coalesced into an earlier one.
	RedrawDropped = "dropped"
)

var (
	sourceAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "posture_dashboard",
			Name:      "source_attempts_total",
			Help:      "Dataset fetch attempts, partitioned by dataset, source and outcome.",
		},
		[]string{"dataset", "source", "outcome"},
	)

	fallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "posture_dashboard",
			Name:      "fallbacks_total",
			Help:      "Times the secondary source was tried after the primary failed.",
		},
		[]string{"dataset"},
	)

	unavailableTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "posture_dashboard",
			Name:      "dataset_unavailable_total",
			Help:      "Datasets left stale because both sources failed.",
		},
		[]string{"dataset"},
	)

	staleResultsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "posture_dashboard",
			Name:      "stale_results_discarded_total",
			Help:      "Dataset results discarded because a newer render cycle had started.",
		},
	)

	redrawsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "posture_dashboard",
			Name:      "redraws_total",
			Help:      "Layout-driven redraw requests, partitioned by executed or dropped.",
		},
		[]string{"result"},
	)

	cycleDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "posture_dashboard",
			Name:      "render_cycle_seconds",
			Help:      "Wall time of a full acquisition and render cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)
)

// Register attaches dashboard collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		sourceAttemptsTotal,
		fallbacksTotal,
		unavailableTotal,
		staleResultsTotal,
		redrawsTotal,
		cycleDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveSourceAttempt counts one fetch attempt. outcome is OutcomeSuccess or a failure kind.
func ObserveSourceAttempt(dataset, source, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	sourceAttemptsTotal.WithLabelValues(dataset, source, outcome).Inc()
}

// ObserveFallback counts a switch to the secondary source.
func ObserveFallback(dataset string) {
	fallbacksTotal.WithLabelValues(dataset).Inc()
}

// ObserveUnavailable counts a dataset that neither source could provide.
func ObserveUnavailable(dataset string) {
	unavailableTotal.WithLabelValues(dataset).Inc()
}

// ObserveStaleResult counts a discarded result from a superseded cycle.
func ObserveStaleResult() {
	staleResultsTotal.Inc()
}

// ObserveRedraw counts a redraw request by result label.
func ObserveRedraw(result string) {
	redrawsTotal.WithLabelValues(result).Inc()
}

// ObserveCycle records a render cycle duration.
func ObserveCycle(duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	cycleDurationSeconds.Observe(duration.Seconds())
}
