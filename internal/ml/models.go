package ml

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
)

// Models is the loaded preprocessor/encoder/classifier triple. It is built
// once at startup and only read afterwards; a nil *Models means the
// artifacts could not be loaded.
type Models struct {
	preprocessor Preprocessor
	encoder      Encoder
	classifier   Classifier
	metadata     *ModelMetadata
	metrics      MetricsInterface
}

// NewModels assembles a triple. All three stages are required.
func NewModels(p Preprocessor, e Encoder, c Classifier) (*Models, error) {
	if p == nil || e == nil || c == nil {
		return nil, fmt.Errorf("preprocessor, encoder and classifier are all required")
	}
	return &Models{preprocessor: p, encoder: e, classifier: c}, nil
}

// WithMetrics returns a copy of the triple that reports stage metrics to m.
func (ms *Models) WithMetrics(m MetricsInterface) *Models {
	if ms == nil {
		return nil
	}
	cp := *ms
	cp.metrics = m
	return &cp
}

// Metadata returns the artifact metadata, or nil when none was found.
func (ms *Models) Metadata() *ModelMetadata {
	if ms == nil {
		return nil
	}
	return ms.metadata
}

// Run pipes frame through transform, predict and predict_proba in order and
// returns the classifier's probability matrix. Nothing is retried.
func (ms *Models) Run(ctx context.Context, frame Frame) (Proba, error) {
	if ms == nil {
		return nil, fmt.Errorf("models not loaded")
	}

	var processed, encoded Matrix
	var proba Proba
	err := ms.stage(StagePreprocess, func() (err error) {
		processed, err = ms.preprocessor.Transform(ctx, frame)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = ms.stage(StageEncode, func() (err error) {
		encoded, err = ms.encoder.Predict(ctx, processed)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = ms.stage(StageClassify, func() (err error) {
		proba, err = ms.classifier.PredictProba(ctx, encoded)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("features", processed.Cols()).
		Int("encoded", encoded.Cols()).
		Interface("probabilities", proba).
		Msg("pipeline run complete")

	return proba, nil
}

func (ms *Models) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	if ms.metrics != nil {
		ms.metrics.StageLatencyObserve(name, time.Since(start).Seconds())
		if err != nil {
			ms.metrics.StageFailuresInc(name)
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Close releases any stage that holds native or network resources.
func (ms *Models) Close() error {
	if ms == nil {
		return nil
	}
	return closeAll(ms.preprocessor, ms.encoder, ms.classifier)
}

func closeAll(stages ...any) error {
	var errs []error
	for _, s := range stages {
		if c, ok := s.(io.Closer); ok && c != nil {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
