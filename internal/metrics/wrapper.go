package metrics

// MetricsWrapper adapts Metrics to the narrow interfaces the churn, ml and
// web packages depend on, so none of them import Prometheus.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) PredictionOutcomeInc(outcome string) {
	w.m.PredictionsTotal.WithLabelValues(outcome).Inc()
}

func (w *MetricsWrapper) PredictionLatencyObserve(seconds float64) {
	w.m.PredictionLatency.Observe(seconds)
}

func (w *MetricsWrapper) ChurnProbabilityObserve(p float64) {
	w.m.ChurnProbability.Observe(p)
}

func (w *MetricsWrapper) StageLatencyObserve(stage string, seconds float64) {
	w.m.StageLatency.WithLabelValues(stage).Observe(seconds)
}

func (w *MetricsWrapper) StageFailuresInc(stage string) {
	w.m.StageFailures.WithLabelValues(stage).Inc()
}

func (w *MetricsWrapper) HTTPRequestInc(route string) {
	w.m.HTTPRequests.WithLabelValues(route).Inc()
}

func (w *MetricsWrapper) SetModelAvailable(ok bool) {
	w.m.SetModelAvailable(ok)
}
