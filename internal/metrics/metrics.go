// Package metrics exposes Prometheus instrumentation for the model lifecycle.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for training and evaluation runs.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Lifecycle state entries by state name
	Transitions *prometheus.CounterVec

	// Completed iterations by model source ("trained", "loaded")
	Iterations *prometheus.CounterVec

	// Finished runs by outcome ("accepted", "failed")
	Runs *prometheus.CounterVec

	// Accuracy of the most recently evaluated model
	Accuracy prometheus.Gauge

	// Confusion counts of the most recent evaluation
	Confusion *prometheus.GaugeVec

	// Duration of one fit-or-load plus evaluation
	IterationLatency prometheus.Histogram
}

// New creates a Metrics instance registered on its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "frauddetect_lifecycle_transitions_total",
			Help: "Total lifecycle state entries by state",
		}, []string{"state"}),

		Iterations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "frauddetect_lifecycle_iterations_total",
			Help: "Total lifecycle iterations by model source",
		}, []string{"source"}),

		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "frauddetect_lifecycle_runs_total",
			Help: "Total finished lifecycle runs by outcome",
		}, []string{"outcome"}),

		Accuracy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "frauddetect_model_accuracy_ratio",
			Help: "Accuracy of the most recently evaluated model",
		}),

		Confusion: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "frauddetect_model_confusion_rows",
			Help: "Confusion counts of the most recent evaluation",
		}, []string{"kind"}), // kind: "total", "fraud", "detected", "false_positive", "false_negative"

		IterationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "frauddetect_lifecycle_iteration_duration_seconds",
			Help:    "Duration of one training or loading pass plus its evaluation",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900},
		}),
	}
}

// Registry returns the registry holding every lifecycle metric.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveTransition records entry into a lifecycle state.
func (m *Metrics) ObserveTransition(state string) {
	if m != nil {
		m.Transitions.WithLabelValues(state).Inc()
	}
}

// ObserveIteration records a completed iteration and the evaluation it produced.
func (m *Metrics) ObserveIteration(source string, accuracy float64, d time.Duration) {
	if m != nil {
		m.Iterations.WithLabelValues(source).Inc()
		m.Accuracy.Set(accuracy)
		m.IterationLatency.Observe(d.Seconds())
	}
}

// ObserveConfusion records the counts of the latest evaluation.
func (m *Metrics) ObserveConfusion(total, fraud, detected, falsePositive, falseNegative int) {
	if m != nil {
		m.Confusion.WithLabelValues("total").Set(float64(total))
		m.Confusion.WithLabelValues("fraud").Set(float64(fraud))
		m.Confusion.WithLabelValues("detected").Set(float64(detected))
		m.Confusion.WithLabelValues("false_positive").Set(float64(falsePositive))
		m.Confusion.WithLabelValues("false_negative").Set(float64(falseNegative))
	}
}

// IncrementRun records a finished run.
func (m *Metrics) IncrementRun(outcome string) {
	if m != nil {
		m.Runs.WithLabelValues(outcome).Inc()
	}
}

// WriteTextfile writes every metric to path in the Prometheus text format,
// for pickup by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
