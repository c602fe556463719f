package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Paths served by ModelServer. RemoteStage clients point at these.
const (
	ModelServerEncoderPath    = "/v1/encoder"
	ModelServerClassifierPath = "/v1/classifier"
)

// maxRequestBytes caps a stage request body.
const maxRequestBytes = 1 << 20

// ModelServer exposes an encoder and a classifier over HTTP using the
// instances/outputs protocol RemoteStage speaks.
type ModelServer struct {
	encoder    Encoder
	classifier Classifier
	metadata   *ModelMetadata
	timeout    time.Duration
	router     *mux.Router
	server     *http.Server
}

// NewModelServer creates a server for the given stages. metadata may be nil.
func NewModelServer(encoder Encoder, classifier Classifier, metadata *ModelMetadata, port int) *ModelServer {
	ms := &ModelServer{
		encoder:    encoder,
		classifier: classifier,
		metadata:   metadata,
		timeout:    5 * time.Second,
	}

	r := mux.NewRouter()
	r.HandleFunc(ModelServerEncoderPath, ms.handleEncode).Methods(http.MethodPost)
	r.HandleFunc(ModelServerClassifierPath, ms.handleClassify).Methods(http.MethodPost)
	r.HandleFunc("/health", ms.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/model/info", ms.handleModelInfo).Methods(http.MethodGet)
	ms.router = r

	ms.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return ms
}

// Handler returns the routed handler.
func (ms *ModelServer) Handler() http.Handler {
	return ms.router
}

// Start begins serving HTTP requests
func (ms *ModelServer) Start() error {
	log.Info().Str("addr", ms.server.Addr).Msg("starting model server")
	return ms.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (ms *ModelServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}

func (ms *ModelServer) handleEncode(w http.ResponseWriter, r *http.Request) {
	ms.serveStage(w, r, StageEncode, func(ctx context.Context, m Matrix) (Proba, error) {
		out, err := ms.encoder.Predict(ctx, m)
		if err != nil {
			return nil, err
		}
		return ProbaFromMatrix(out), nil
	})
}

func (ms *ModelServer) handleClassify(w http.ResponseWriter, r *http.Request) {
	ms.serveStage(w, r, StageClassify, ms.classifier.PredictProba)
}

func (ms *ModelServer) serveStage(w http.ResponseWriter, r *http.Request, stage string, fn func(context.Context, Matrix) (Proba, error)) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req remoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStageError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if err := req.Instances.Validate(); err != nil {
		writeStageError(w, http.StatusBadRequest, fmt.Sprintf("invalid instances: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), ms.timeout)
	defer cancel()

	out, err := fn(ctx, req.Instances)
	if err != nil {
		log.Error().Err(err).Str("stage", stage).Msg("stage inference failed")
		writeStageError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Debug().
		Str("stage", stage).
		Int("rows", req.Instances.Rows()).
		Dur("latency", time.Since(start)).
		Msg("stage request served")

	writeJSON(w, http.StatusOK, remoteResponse{Outputs: out})
}

func writeStageError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, remoteResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Int("status", status).Msg("failed to write model server response")
	}
}

func (ms *ModelServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"healthy": true})
}

func (ms *ModelServer) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{}
	if md := ms.metadata; md != nil {
		info["version"] = md.Version
		info["trained_at"] = md.TrainedAt
		info["features"] = md.Features
		info["classes"] = md.Classes
		info["accuracy"] = md.Accuracy
		info["auc_score"] = md.AUCScore
	}

	writeJSON(w, http.StatusOK, info)
}
