// Package ml provides the inference pipeline used to score customer churn.
// It defines the three-stage contract (preprocessor, encoder, classifier),
// the immutable Models triple shared by all requests, and the adapters that
// load serialized artifacts: a native ColumnTransformer preprocessor, ONNX
// Runtime sessions, and a remote model-server client.
package ml

import "context"

// Preprocessor turns a raw tabular frame into model-ready features.
type Preprocessor interface {
	// Transform maps every frame row to one feature row.
	Transform(ctx context.Context, frame Frame) (Matrix, error)
}

// Encoder maps preprocessed features into the learned representation
// consumed by the classifier.
type Encoder interface {
	Predict(ctx context.Context, features Matrix) (Matrix, error)
}

// Classifier produces per-class probabilities, one row per input row.
type Classifier interface {
	PredictProba(ctx context.Context, encoded Matrix) (Proba, error)
}

// MetricsInterface defines metrics methods needed by the pipeline
type MetricsInterface interface {
	StageLatencyObserve(stage string, seconds float64)
	StageFailuresInc(stage string)
}

// Pipeline stage names used for metrics labels and error messages.
const (
	StagePreprocess = "preprocess"
	StageEncode     = "encode"
	StageClassify   = "classify"
)
