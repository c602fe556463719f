package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"churn-web/internal/churn"
	"churn-web/internal/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMetrics struct {
	mu     sync.Mutex
	routes map[string]int
}

func (m *mockMetrics) HTTPRequestInc(route string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.routes == nil {
		m.routes = make(map[string]int)
	}
	m.routes[route]++
}

type panickingPredictor struct{}

func (panickingPredictor) Predict(context.Context, url.Values) churn.Outcome { panic("boom") }
func (panickingPredictor) Available() bool                                  { return true }

func exampleForm() url.Values {
	return url.Values{
		"gender":           {"Female"},
		"SeniorCitizen":    {"0"},
		"Partner":          {"Yes"},
		"Dependents":       {"No"},
		"tenure":           {"12"},
		"PhoneService":     {"Yes"},
		"MultipleLines":    {"No"},
		"InternetService":  {"DSL"},
		"OnlineSecurity":   {"Yes"},
		"OnlineBackup":     {"No"},
		"DeviceProtection": {"No"},
		"TechSupport":      {"No"},
		"StreamingTV":      {"No"},
		"StreamingMovies":  {"No"},
		"Contract":         {"Month-to-month"},
		"PaperlessBilling": {"Yes"},
		"PaymentMethod":    {"Electronic check"},
		"MonthlyCharges":   {"70.35"},
		"TotalCharges":     {"845.50"},
	}
}

func newTestServer(t *testing.T, models *ml.Models) (*Server, *mockMetrics) {
	t.Helper()
	m := &mockMetrics{}
	srv, err := NewServer(churn.NewService(models, nil, nil), m, 0)
	require.NoError(t, err)
	return srv, m
}

func stubModels(t *testing.T, clf ml.Classifier) *ml.Models {
	t.Helper()
	models, err := ml.NewModels(ml.StubPreprocessor{Out: ml.Matrix{{1, 0, 1}}}, ml.StubEncoder{}, clf)
	require.NoError(t, err)
	return models
}

func postForm(t *testing.T, h http.Handler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, RoutePredict, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndex_RendersForm(t *testing.T) {
	srv, metrics := newTestServer(t, stubModels(t, ml.StubClassifier{P: 0.2}))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, RouteIndex, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, `action="/predict"`)
	for _, name := range churn.Columns {
		assert.Contains(t, body, `name="`+name+`"`)
	}
	assert.NotContains(t, body, `id="result"`)
	assert.Equal(t, 1, metrics.routes[RouteIndex])
}

func TestIndex_RendersWithoutModels(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, RouteIndex, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `role="alert"`)
}

func TestPredict_Success(t *testing.T) {
	srv, metrics := newTestServer(t, stubModels(t, ml.StubClassifier{P: 0.73}))

	rec := postForm(t, srv.Handler(), exampleForm())

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="result"`)
	assert.Contains(t, body, "<strong>Yes</strong> (73.00%)")
	assert.Contains(t, body, "Electronic check")
	assert.NotContains(t, body, `role="alert"`)
	assert.Equal(t, 1, metrics.routes[RoutePredict])
}

func TestPredict_ThresholdIsStrict(t *testing.T) {
	srv, _ := newTestServer(t, stubModels(t, ml.StubClassifier{P: 0.5}))

	body := postForm(t, srv.Handler(), exampleForm()).Body.String()
	assert.Contains(t, body, "<strong>No</strong> (50.00%)")
}

func TestPredict_ModelUnavailable(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := postForm(t, srv.Handler(), exampleForm())

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, churn.NoticeModelUnavailable)
	assert.NotContains(t, body, `id="result"`)
}

func TestPredict_ErrorsRenderAs200(t *testing.T) {
	missing := exampleForm()
	missing.Del("tenure")
	nonNumeric := exampleForm()
	nonNumeric.Set("MonthlyCharges", "seventy")

	testCases := []struct {
		name   string
		models *ml.Models
		form   url.Values
	}{
		{"missing field", stubModels(t, ml.StubClassifier{P: 0.9}), missing},
		{"non-numeric field", stubModels(t, ml.StubClassifier{P: 0.9}), nonNumeric},
		{"empty body", stubModels(t, ml.StubClassifier{P: 0.9}), url.Values{}},
		{"classifier failure", stubModels(t, ml.StubClassifier{Err: errors.New("bad shape")}), exampleForm()},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tc.models)
			rec := postForm(t, srv.Handler(), tc.form)

			assert.Equal(t, http.StatusOK, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, churn.NoticePredictionError)
			assert.Contains(t, body, `class="flash flash-error"`)
			assert.NotContains(t, body, `id="result"`)
		})
	}
}

func TestPredict_EchoesSubmittedValues(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	form := exampleForm()
	form.Set("Contract", "Two year")
	body := postForm(t, srv.Handler(), form).Body.String()

	assert.Contains(t, body, `<option value="Two year" selected>`)
	assert.Contains(t, body, `value="845.50"`)
}

func TestPredict_QueryStringIsIgnored(t *testing.T) {
	srv, _ := newTestServer(t, stubModels(t, ml.StubClassifier{P: 0.9}))

	req := httptest.NewRequest(http.MethodPost, RoutePredict+"?"+exampleForm().Encode(), nil)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), churn.NoticePredictionError)
}

func TestPredict_PanicRecovered(t *testing.T) {
	srv, err := NewServer(panickingPredictor{}, nil, 0)
	require.NoError(t, err)

	rec := postForm(t, srv.Handler(), exampleForm())

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), churn.NoticePredictionError)
}

func TestRoutes_MethodMismatch(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, RoutePredict, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_StartStop(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	require.NoError(t, srv.Stop(context.Background()), "stopping a server that never started is a no-op")
	require.NoError(t, srv.Start())
	assert.Error(t, srv.Start(), "second start is rejected")
	require.NoError(t, srv.Stop(context.Background()))
}
