package ml

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelServer_RoundTripThroughRemoteStage(t *testing.T) {
	ms := NewModelServer(StubEncoder{}, StubClassifier{P: 0.73}, &ModelMetadata{Version: "v3"}, 0)
	srv := httptest.NewServer(ms.Handler())
	defer srv.Close()

	encoder := NewRemoteStage(StageEncode, srv.URL+ModelServerEncoderPath, time.Second)
	classifier := NewRemoteStage(StageClassify, srv.URL+ModelServerClassifierPath, time.Second)

	models, err := NewModels(StubPreprocessor{Out: Matrix{{1, 2}}}, encoder, classifier)
	require.NoError(t, err)

	proba, err := models.Run(context.Background(), Frame{})
	require.NoError(t, err)
	require.Len(t, proba, 1)
	assert.InDelta(t, 0.73, proba[0][1], 1e-6)
}

func TestModelServer_StageError(t *testing.T) {
	ms := NewModelServer(StubEncoder{Err: errors.New("shape mismatch")}, StubClassifier{}, nil, 0)
	srv := httptest.NewServer(ms.Handler())
	defer srv.Close()

	stage := NewRemoteStage(StageEncode, srv.URL+ModelServerEncoderPath, time.Second)
	_, err := stage.Predict(context.Background(), Matrix{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shape mismatch")
}

func TestModelServer_BadRequest(t *testing.T) {
	ms := NewModelServer(StubEncoder{}, StubClassifier{}, nil, 0)

	for _, body := range []string{"not json", `{"instances": []}`, `{"instances": [[1,2],[3]]}`} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, ModelServerClassifierPath, strings.NewReader(body))
		ms.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestModelServer_RejectsOversizedBody(t *testing.T) {
	ms := NewModelServer(StubEncoder{}, StubClassifier{P: 0.5}, nil, 0)

	body := `{"instances": [[` + strings.Repeat("1,", maxRequestBytes) + `1]]}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, ModelServerEncoderPath, strings.NewReader(body))
	ms.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request")
}

func TestModelServer_Info(t *testing.T) {
	ms := NewModelServer(StubEncoder{}, StubClassifier{}, &ModelMetadata{Version: "2024-05-01", Classes: []string{"No", "Yes"}}, 0)

	rec := httptest.NewRecorder()
	ms.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/model/info", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"2024-05-01"`)

	rec = httptest.NewRecorder()
	ms.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
