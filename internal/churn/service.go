package churn

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"time"

	"churn-web/internal/ml"

	"github.com/rs/zerolog/log"
)

// The decision policy shipped with the trained artifacts. Both values are
// fixed; the classifier emits [P(no churn), P(churn)].
const (
	DecisionThreshold  = 0.5
	PositiveClassIndex = 1
)

// User-facing notices for the two failure kinds.
const (
	NoticeModelUnavailable = "Model loading failed. Please try again later."
	NoticePredictionError  = "An error occurred during prediction. Please check your inputs."
)

// Label is the rendered churn verdict.
type Label string

const (
	LabelYes Label = "Yes"
	LabelNo  Label = "No"
)

// PredictionResult is what a successful request renders.
type PredictionResult struct {
	Prediction  Label       `json:"prediction"`
	Probability float64     `json:"probability"` // percent, 2 decimals
	Details     InputRecord `json:"details"`
}

// OutcomeKind tags an Outcome.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeModelUnavailable
	OutcomePredictionError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeModelUnavailable:
		return "model_unavailable"
	case OutcomePredictionError:
		return "prediction_error"
	default:
		return "unknown"
	}
}

// Outcome is the result of one predict request. Result is set only for
// OutcomeSuccess and Err only for OutcomePredictionError.
type Outcome struct {
	Kind   OutcomeKind
	Result *PredictionResult
	Err    error
}

// Notice returns the message to flash for a failed outcome, or "".
func (o Outcome) Notice() string {
	switch o.Kind {
	case OutcomeModelUnavailable:
		return NoticeModelUnavailable
	case OutcomePredictionError:
		return NoticePredictionError
	default:
		return ""
	}
}

// MetricsInterface defines metrics methods needed by the service
type MetricsInterface interface {
	PredictionOutcomeInc(outcome string)
	PredictionLatencyObserve(seconds float64)
	ChurnProbabilityObserve(p float64)
}

// HistoryRecorder persists successful predictions.
type HistoryRecorder interface {
	Record(ctx context.Context, result PredictionResult) error
}

// Service runs predictions against an immutable model triple.
type Service struct {
	models  *ml.Models
	metrics MetricsInterface
	history HistoryRecorder
}

// NewService creates a service. A nil models puts the service in degraded
// mode where every prediction reports OutcomeModelUnavailable. metrics and
// history may be nil.
func NewService(models *ml.Models, metrics MetricsInterface, history HistoryRecorder) *Service {
	return &Service{models: models, metrics: metrics, history: history}
}

// Available reports whether the model triple loaded.
func (s *Service) Available() bool {
	return s.models != nil
}

// Predict validates form, runs the pipeline and applies the decision rule.
func (s *Service) Predict(ctx context.Context, form url.Values) Outcome {
	start := time.Now()
	out := s.predict(ctx, form)
	if s.metrics != nil {
		s.metrics.PredictionOutcomeInc(out.Kind.String())
		s.metrics.PredictionLatencyObserve(time.Since(start).Seconds())
	}
	return out
}

func (s *Service) predict(ctx context.Context, form url.Values) Outcome {
	if s.models == nil {
		return Outcome{Kind: OutcomeModelUnavailable}
	}

	rec, err := ParseForm(form)
	if err != nil {
		return Outcome{Kind: OutcomePredictionError, Err: err}
	}

	proba, err := s.models.Run(ctx, rec.Frame())
	if err != nil {
		return Outcome{Kind: OutcomePredictionError, Err: fmt.Errorf("pipeline: %w", err)}
	}

	p, err := PositiveProbability(proba)
	if err != nil {
		return Outcome{Kind: OutcomePredictionError, Err: err}
	}
	if s.metrics != nil {
		s.metrics.ChurnProbabilityObserve(p)
	}

	result := NewResult(p, rec)
	if s.history != nil {
		if err := s.history.Record(ctx, result); err != nil {
			log.Warn().Err(err).Msg("failed to record prediction history")
		}
	}
	return Outcome{Kind: OutcomeSuccess, Result: &result}
}

// PositiveProbability reads the churn probability from the first row of the
// classifier output.
func PositiveProbability(proba ml.Proba) (float64, error) {
	if len(proba) == 0 {
		return 0, fmt.Errorf("classifier returned no rows")
	}
	if len(proba[0]) <= PositiveClassIndex {
		return 0, fmt.Errorf("classifier returned %d classes, need column %d", len(proba[0]), PositiveClassIndex)
	}
	p := proba[0][PositiveClassIndex]
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("positive-class probability %v out of range", p)
	}
	return p, nil
}

// Classify applies the fixed decision threshold. Exactly 0.5 is "No".
func Classify(p float64) Label {
	if p > DecisionThreshold {
		return LabelYes
	}
	return LabelNo
}

// NewResult shapes a probability and its input into a PredictionResult. The
// percentage is rounded half to even at two decimals.
func NewResult(p float64, rec InputRecord) PredictionResult {
	return PredictionResult{
		Prediction:  Classify(p),
		Probability: math.RoundToEven(p*100*100) / 100,
		Details:     rec,
	}
}
