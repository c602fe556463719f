package ml

import (
	"context"
	"sync"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu        sync.Mutex
	latencies map[string]int
	failures  map[string]int
}

func (m *MockMetrics) StageLatencyObserve(stage string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latencies == nil {
		m.latencies = make(map[string]int)
	}
	m.latencies[stage]++
}

func (m *MockMetrics) StageFailuresInc(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		m.failures = make(map[string]int)
	}
	m.failures[stage]++
}

// Observed returns how many latency samples were recorded for stage.
func (m *MockMetrics) Observed(stage string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latencies[stage]
}

// Failures returns how many failures were recorded for stage.
func (m *MockMetrics) Failures(stage string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[stage]
}

// StubPreprocessor returns a fixed matrix, or Err.
type StubPreprocessor struct {
	Out Matrix
	Err error
}

func (s StubPreprocessor) Transform(context.Context, Frame) (Matrix, error) {
	return s.Out, s.Err
}

// StubEncoder returns its input unchanged, or Err.
type StubEncoder struct {
	Err error
}

func (s StubEncoder) Predict(_ context.Context, m Matrix) (Matrix, error) {
	return m, s.Err
}

// StubClassifier returns [1-P, P] for every row, or Err.
type StubClassifier struct {
	P   float64
	Err error
}

func (s StubClassifier) PredictProba(_ context.Context, m Matrix) (Proba, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	out := make(Proba, len(m))
	for i := range m {
		out[i] = []float64{1 - s.P, s.P}
	}
	return out, nil
}
