package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"churn-web/internal/cfg"
	"churn-web/internal/ml"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// modelserver serves the ONNX encoder and classifier over HTTP so the web
// front-end can run with MODEL_BACKEND=remote.
func main() {
	var (
		port     = flag.Int("port", 8500, "Port to serve encoder and classifier on")
		logLevel = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	if err := ml.InitONNXRuntime(c.OrtLibPath); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize ONNX runtime")
	}
	defer ml.ShutdownONNXRuntime()

	encoder, err := ml.NewOnnxEncoder(c.EncoderPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load encoder")
	}
	defer encoder.Close()

	classifier, err := ml.NewOnnxClassifier(c.ClassifierPath, c.ClassifierOutput)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load classifier")
	}
	defer classifier.Close()

	metadata, err := ml.LoadModelMetadata(filepath.Dir(c.ClassifierPath))
	if err != nil {
		log.Warn().Err(err).Msg("serving without model metadata")
	}

	server := ml.NewModelServer(encoder, classifier, metadata, *port)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("model server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown model server")
	}
}
