// Package metrics exposes Prometheus collectors for the analytics service.
//
// Analysis metrics:
//   - analytics_requests_total: analysis calls (counter), labels: operation, outcome
//   - analytics_request_duration_seconds: analysis latency (histogram), labels: operation
//
// Model metrics:
//   - model_training_runs_total: training runs (counter), labels: outcome
//   - model_training_duration_seconds: training wall time (histogram)
//   - model_ready: 1 once a complete snapshot is serving (gauge)
//   - model_synthetic_data: 1 when the serving snapshot was trained on synthetic rows (gauge)
//   - model_training_samples: rows used by the serving snapshot (gauge)
//   - model_risk_accuracy / model_payment_mse: held-out scores of the serving snapshot (gauge)
//   - model_persistence_failures_total: artifact I/O failures (counter), labels: operation
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysisRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_requests_total",
			Help: "Total number of analysis calls",
		},
		[]string{"operation", "outcome"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytics_request_duration_seconds",
			Help:    "Analysis call duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation"},
	)

	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_training_runs_total",
			Help: "Total number of model training runs",
		},
		[]string{"outcome"},
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "model_training_duration_seconds",
			Help:    "Duration of model training in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	ModelReady = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_ready",
			Help: "Whether a complete model snapshot is serving (1) or not (0)",
		},
	)

	ModelSyntheticData = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_synthetic_data",
			Help: "Whether the serving snapshot was trained on synthetic data",
		},
	)

	ModelTrainingSamples = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_training_samples",
			Help: "Number of rows the serving snapshot was trained on",
		},
	)

	ModelRiskAccuracy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_risk_accuracy",
			Help: "Held-out accuracy of the serving risk classifier",
		},
	)

	ModelPaymentMSE = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_payment_mse",
			Help: "Held-out mean squared error of the serving payment regressor",
		},
	)

	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_persistence_failures_total",
			Help: "Total number of model artifact load/save failures",
		},
		[]string{"operation"},
	)
)

// ObserveAnalysis records the outcome and latency of one analysis call
func ObserveAnalysis(operation string, started time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	AnalysisRequests.WithLabelValues(operation, outcome).Inc()
	AnalysisDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// ObserveServing publishes the telemetry of the snapshot now serving
func ObserveServing(samples int, synthetic bool, accuracy, mse float64) {
	ModelReady.Set(1)
	ModelTrainingSamples.Set(float64(samples))
	ModelRiskAccuracy.Set(accuracy)
	ModelPaymentMSE.Set(mse)
	if synthetic {
		ModelSyntheticData.Set(1)
	} else {
		ModelSyntheticData.Set(0)
	}
}
