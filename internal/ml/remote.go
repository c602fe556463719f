package ml

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type remoteRequest struct {
	Instances Matrix `json:"instances"`
}

// Outputs are decoded as float64 so classifier probabilities keep the
// precision the server sent.
type remoteResponse struct {
	Outputs Proba  `json:"outputs"`
	Error   string `json:"error,omitempty"`
}

// RemoteStage forwards a matrix to a model server and returns its outputs.
// It satisfies both Encoder and Classifier so either stage can be served
// out of process.
type RemoteStage struct {
	name string
	url  string
	rest *resty.Client
}

// NewRemoteStage creates a client for the stage served at url.
func NewRemoteStage(name, url string, timeout time.Duration) *RemoteStage {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second)
	}
	r.SetHeader("Accept", "application/json")
	return &RemoteStage{name: name, url: url, rest: r}
}

// Predict implements Encoder.
func (s *RemoteStage) Predict(ctx context.Context, features Matrix) (Matrix, error) {
	out, err := s.call(ctx, features)
	if err != nil {
		return nil, err
	}
	m := make(Matrix, len(out))
	for i, row := range out {
		m[i] = make([]float32, len(row))
		for j, v := range row {
			m[i][j] = float32(v)
		}
	}
	return m, nil
}

// PredictProba implements Classifier.
func (s *RemoteStage) PredictProba(ctx context.Context, encoded Matrix) (Proba, error) {
	return s.call(ctx, encoded)
}

func (s *RemoteStage) call(ctx context.Context, m Matrix) (Proba, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	result := &remoteResponse{}
	resp, err := s.rest.R().
		SetContext(ctx).
		SetBody(remoteRequest{Instances: m}).
		SetResult(result).
		SetError(result).
		Post(s.url)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", s.name, err)
	}
	if resp.IsError() {
		if result.Error != "" {
			return nil, fmt.Errorf("%s: %d %s", s.name, resp.StatusCode(), result.Error)
		}
		return nil, fmt.Errorf("%s: unexpected status %d", s.name, resp.StatusCode())
	}
	if result.Error != "" {
		return nil, fmt.Errorf("%s: %s", s.name, result.Error)
	}
	if len(result.Outputs) != len(m) {
		return nil, fmt.Errorf("%s: got %d output rows for %d inputs", s.name, len(result.Outputs), len(m))
	}
	if err := result.Outputs.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	return result.Outputs, nil
}
