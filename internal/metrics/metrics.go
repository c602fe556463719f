// Package metrics provides Prometheus metrics collection for the churn web
// front-end. It defines the prediction, inference stage and HTTP metrics
// exposed on the metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Prediction metrics
	PredictionsTotal  *prometheus.CounterVec // Predict requests by outcome
	PredictionLatency prometheus.Histogram   // End-to-end predict latency
	ChurnProbability  prometheus.Histogram   // Distribution of positive-class probabilities
	ModelAvailable    prometheus.Gauge       // 1 when the model triple loaded

	// Inference stage metrics
	StageLatency  *prometheus.HistogramVec // Latency per pipeline stage
	StageFailures *prometheus.CounterVec   // Failures per pipeline stage

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec // Requests by route
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predict requests by outcome",
		}, []string{"outcome"}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "Predict request latency in seconds (validation and inference)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		ChurnProbability: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "churn_probability",
			Help:    "Distribution of predicted churn probabilities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		ModelAvailable: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_available",
			Help: "Whether the model artifacts loaded (1) or not (0)",
		}),
		StageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "inference_stage_latency_seconds",
			Help:    "Inference latency per pipeline stage in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"stage"}),
		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "inference_failures_total",
			Help: "Total number of inference failures per pipeline stage",
		}, []string{"stage"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route",
		}, []string{"route"}),
	}
}

// SetModelAvailable records whether the model triple is loaded.
func (m *Metrics) SetModelAvailable(ok bool) {
	if ok {
		m.ModelAvailable.Set(1)
		return
	}
	m.ModelAvailable.Set(0)
}
