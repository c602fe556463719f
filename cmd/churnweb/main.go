package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"churn-web/internal/cfg"
	"churn-web/internal/churn"
	"churn-web/internal/metrics"
	"churn-web/internal/ml"
	"churn-web/internal/storage"
	"churn-web/internal/web"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		debug    = flag.Bool("debug", false, "Enable debug logging with console output")
		logLevel = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to read .env file")
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if *debug {
		c.Debug = true
	}
	if *logLevel != "" {
		c.LogLevel = *logLevel
	}
	setupLogging(c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	models := initializeModels(c, mw)
	defer func() {
		if err := models.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to release models")
		}
		if err := ml.ShutdownONNXRuntime(); err != nil {
			log.Warn().Err(err).Msg("failed to shut down ONNX runtime")
		}
	}()

	// A nil *storage.Store must not reach the service as a non-nil interface.
	var history churn.HistoryRecorder
	if store := initializeStorage(c); store != nil {
		defer store.Close()
		history = store
	}

	service := churn.NewService(models, mw, history)

	startMetricsServer(ctx, c, service)

	server, err := web.NewServer(service, mw, c.ListenPort)
	if err != nil {
		log.Fatal().Err(err).Msg("web server setup failed")
	}
	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("web server start failed")
	}

	waitForShutdown(ctx, cancel)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("web server did not stop cleanly")
	}
}

// setupLogging applies the configured level; debug mode adds console output.
func setupLogging(c cfg.Settings) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	if c.Debug {
		level = zerolog.DebugLevel
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	zerolog.SetGlobalLevel(level)
}

// initializeModels loads the artifact triple. An invalid model configuration
// or a load failure is logged once and the process keeps serving in degraded
// mode with nil models.
func initializeModels(c cfg.Settings, mw *metrics.MetricsWrapper) *ml.Models {
	if err := c.ValidateModels(); err != nil {
		log.Error().Err(err).Msg("invalid model configuration, serving without models")
		mw.SetModelAvailable(false)
		return nil
	}

	models, err := ml.LoadModels(ml.LoaderConfig{
		Backend:             c.Backend,
		PreprocessorPath:    c.PreprocessorPath,
		EncoderPath:         c.EncoderPath,
		ClassifierPath:      c.ClassifierPath,
		OrtLibPath:          c.OrtLibPath,
		ClassifierOutput:    c.ClassifierOutput,
		RemoteEncoderURL:    c.RemoteEncoderURL,
		RemoteClassifierURL: c.RemoteClassifierURL,
		RemoteTimeout:       c.RemoteTimeout,
	})
	if err != nil {
		log.Error().Err(err).Msg("Error loading models")
		mw.SetModelAvailable(false)
		return nil
	}
	mw.SetModelAvailable(true)
	return models.WithMetrics(mw)
}

// initializeStorage initializes storage if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath != "" {
		store, err := storage.New(c.DataPath)
		if err != nil {
			log.Warn().Err(err).Msg("storage initialization failed, continuing without history")
			return nil
		}
		log.Info().Str("path", c.DataPath).Msg("prediction history enabled")
		return store
	}
	return nil
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(ctx context.Context, c cfg.Settings, service *churn.Service) {
	go func() {
		mux := http.NewServeMux()

		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			if service.Available() {
				w.Write([]byte("OK"))
				return
			}
			w.Write([]byte("OK (models unavailable)"))
		})

		mux.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", c.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			if err := server.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to shutdown metrics server")
			}
		}()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// waitForShutdown blocks until a shutdown signal arrives or ctx ends.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel()
}
