// Package web serves the churn prediction form over HTTP.
//
// Every request renders the same page. Failures show up as flashed notices
// on a 200 response; the status code never distinguishes outcomes.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sync"
	"time"

	"churn-web/internal/churn"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

//go:embed templates/index.html
var templateFS embed.FS

// Route paths.
const (
	RouteIndex   = "/"
	RoutePredict = "/predict"
)

// Predictor is the prediction core the server renders.
type Predictor interface {
	Predict(ctx context.Context, form url.Values) churn.Outcome
	Available() bool
}

// MetricsInterface defines metrics methods needed by the server
type MetricsInterface interface {
	HTTPRequestInc(route string)
}

// Notice is a flashed message with its category.
type Notice struct {
	Category string
	Message  string
}

// pageData is everything index.html renders.
type pageData struct {
	Fields  []inputField
	Values  url.Values
	Notices []Notice
	Result  *churn.PredictionResult
}

// Server renders the prediction form and results.
type Server struct {
	predictor Predictor
	metrics   MetricsInterface
	tmpl      *template.Template
	router    *mux.Router
	server    *http.Server
	isRunning bool
	mu        sync.Mutex
}

// NewServer wires routes for the form page on port. metrics may be nil.
func NewServer(predictor Predictor, metrics MetricsInterface, port int) (*Server, error) {
	tmpl, err := template.New("index.html").
		Funcs(template.FuncMap{"value": formValue}).
		ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		predictor: predictor,
		metrics:   metrics,
		tmpl:      tmpl,
	}

	r := mux.NewRouter()
	r.Use(s.loggingMiddleware, s.recoveryMiddleware)
	r.HandleFunc(RouteIndex, s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc(RoutePredict, s.handlePredict).Methods(http.MethodPost)
	s.router = r

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves in the background until Stop is called.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("web server is already running")
	}

	go func() {
		log.Info().
			Str("address", s.server.Addr).
			Bool("model_available", s.predictor.Available()).
			Msg("Starting web server")

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Web server failed")
		}
	}()

	s.isRunning = true
	return nil
}

// Stop shuts the server down, waiting for in-flight requests until ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	if err := s.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown web server")
		return err
	}

	s.isRunning = false
	log.Info().Msg("Web server stopped")
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, pageData{})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		log.Warn().Err(err).Msg("Malformed form body")
	}
	form := r.PostForm

	out := s.predictor.Predict(r.Context(), form)
	data := pageData{Values: form}

	switch out.Kind {
	case churn.OutcomeSuccess:
		data.Result = out.Result
		log.Info().
			Str("prediction", string(out.Result.Prediction)).
			Float64("probability", out.Result.Probability).
			Msg("Prediction served")
	case churn.OutcomeModelUnavailable:
		log.Warn().Msg("Prediction requested but models are not loaded")
	default:
		log.Error().Err(out.Err).Msg("Prediction error")
	}
	if msg := out.Notice(); msg != "" {
		data.Notices = append(data.Notices, Notice{Category: "error", Message: msg})
	}

	s.render(w, data)
}

// render executes the page into a buffer so a template failure never
// leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, data pageData) {
	data.Fields = formFields

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		log.Error().Err(err).Msg("Template execution failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

// formValue returns the first submitted value for name, or "".
func formValue(values url.Values, name string) string {
	if values == nil {
		return ""
	}
	return values.Get(name)
}
