package metrics

import (
	"sync"
	"testing"

	"churn-web/internal/churn"
	"churn-web/internal/ml"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Compile-time checks that the wrapper satisfies its consumers.
var (
	_ churn.MetricsInterface = (*MetricsWrapper)(nil)
	_ ml.MetricsInterface    = (*MetricsWrapper)(nil)
)

func TestNewWrapper(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	if wrapper == nil {
		t.Fatal("NewWrapper returned nil")
	}
	if wrapper.m != metrics {
		t.Error("Wrapper does not contain correct metrics instance")
	}
}

func TestMetricsWrapper_PredictionOutcomes(t *testing.T) {
	metrics := NewWithRegistry(prometheus.NewRegistry())
	wrapper := NewWrapper(metrics)

	wrapper.PredictionOutcomeInc("success")
	wrapper.PredictionOutcomeInc("success")
	wrapper.PredictionOutcomeInc("model_unavailable")

	if v := testutil.ToFloat64(metrics.PredictionsTotal.WithLabelValues("success")); v != 2 {
		t.Errorf("Expected 2 successful predictions, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.PredictionsTotal.WithLabelValues("model_unavailable")); v != 1 {
		t.Errorf("Expected 1 model_unavailable prediction, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.PredictionsTotal.WithLabelValues("prediction_error")); v != 0 {
		t.Errorf("Expected 0 prediction errors, got %f", v)
	}
}

func TestMetricsWrapper_Histograms(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	testValues := []float64{0.001, 0.005, 0.01, 0.05, 0.1}
	for _, value := range testValues {
		wrapper.PredictionLatencyObserve(value)
	}
	wrapper.ChurnProbabilityObserve(0.73)

	if n := testutil.CollectAndCount(metrics.PredictionLatency); n != 1 {
		t.Errorf("Expected 1 latency series, got %d", n)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var found bool
	for _, mf := range families {
		if mf.GetName() != "churn_probability" {
			continue
		}
		found = true
		h := mf.GetMetric()[0].GetHistogram()
		if h.GetSampleCount() != 1 {
			t.Errorf("Expected 1 probability sample, got %d", h.GetSampleCount())
		}
		if h.GetSampleSum() != 0.73 {
			t.Errorf("Expected probability sum 0.73, got %f", h.GetSampleSum())
		}
	}
	if !found {
		t.Error("churn_probability not registered")
	}
}

func TestMetricsWrapper_StageMetrics(t *testing.T) {
	metrics := NewWithRegistry(prometheus.NewRegistry())
	wrapper := NewWrapper(metrics)

	wrapper.StageLatencyObserve(ml.StagePreprocess, 0.002)
	wrapper.StageLatencyObserve(ml.StageEncode, 0.004)
	wrapper.StageFailuresInc(ml.StageClassify)

	if n := testutil.CollectAndCount(metrics.StageLatency); n != 2 {
		t.Errorf("Expected 2 stage latency series, got %d", n)
	}
	if v := testutil.ToFloat64(metrics.StageFailures.WithLabelValues(ml.StageClassify)); v != 1 {
		t.Errorf("Expected 1 classify failure, got %f", v)
	}
}

func TestMetricsWrapper_ModelAvailable(t *testing.T) {
	metrics := NewWithRegistry(prometheus.NewRegistry())
	wrapper := NewWrapper(metrics)

	if v := testutil.ToFloat64(metrics.ModelAvailable); v != 0 {
		t.Errorf("Expected model_available 0 before load, got %f", v)
	}
	wrapper.SetModelAvailable(true)
	if v := testutil.ToFloat64(metrics.ModelAvailable); v != 1 {
		t.Errorf("Expected model_available 1, got %f", v)
	}
	wrapper.SetModelAvailable(false)
	if v := testutil.ToFloat64(metrics.ModelAvailable); v != 0 {
		t.Errorf("Expected model_available 0, got %f", v)
	}
}

func TestMetricsWrapper_HTTPRequests(t *testing.T) {
	metrics := NewWithRegistry(prometheus.NewRegistry())
	wrapper := NewWrapper(metrics)

	wrapper.HTTPRequestInc("/")
	wrapper.HTTPRequestInc("/predict")
	wrapper.HTTPRequestInc("/predict")

	if v := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/predict")); v != 2 {
		t.Errorf("Expected 2 /predict requests, got %f", v)
	}
}

func TestMetricsWrapper_ConcurrentAccess(t *testing.T) {
	metrics := NewWithRegistry(prometheus.NewRegistry())
	wrapper := NewWrapper(metrics)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				wrapper.PredictionOutcomeInc("success")
				wrapper.PredictionLatencyObserve(0.01)
				wrapper.StageFailuresInc(ml.StageEncode)
			}
		}()
	}
	wg.Wait()

	expected := 1000.0 // 10 goroutines * 100 increments
	if v := testutil.ToFloat64(metrics.PredictionsTotal.WithLabelValues("success")); v != expected {
		t.Errorf("Expected %f predictions after concurrent access, got %f", expected, v)
	}
	if v := testutil.ToFloat64(metrics.StageFailures.WithLabelValues(ml.StageEncode)); v != expected {
		t.Errorf("Expected %f encode failures after concurrent access, got %f", expected, v)
	}
}

func TestMetricsWrapper_NilGuard(t *testing.T) {
	wrapper := &MetricsWrapper{m: nil}

	// NewWrapper never builds this; dereferencing nil metrics panics.
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic when accessing nil metrics")
		}
	}()

	wrapper.PredictionOutcomeInc("success")
}

func BenchmarkMetricsWrapper_PredictionOutcomeInc(b *testing.B) {
	wrapper := NewWrapper(NewWithRegistry(prometheus.NewRegistry()))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wrapper.PredictionOutcomeInc("success")
	}
}
