package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"churn-web/internal/common"

	"github.com/rs/zerolog/log"
)

// Backends for the encoder and classifier stages.
const (
	BackendONNX   = common.BackendONNX
	BackendRemote = common.BackendRemote
)

// ModelMetadata describes the artifact set, when the training job wrote it.
type ModelMetadata struct {
	Version   string    `json:"version"`
	TrainedAt time.Time `json:"trained_at"`
	Features  []string  `json:"features"`
	Classes   []string  `json:"classes"`
	Accuracy  float64   `json:"accuracy"`
	AUCScore  float64   `json:"auc_score"`
}

// LoaderConfig locates the three artifacts.
type LoaderConfig struct {
	Backend             string
	PreprocessorPath    string
	EncoderPath         string
	ClassifierPath      string
	OrtLibPath          string
	ClassifierOutput    string
	RemoteEncoderURL    string
	RemoteClassifierURL string
	RemoteTimeout       time.Duration
}

// LoadModels opens all three stages. Either every stage loads or none is
// returned: stages opened before a failure are closed again.
func LoadModels(cfg LoaderConfig) (*Models, error) {
	prep, err := LoadColumnTransformer(cfg.PreprocessorPath)
	if err != nil {
		return nil, err
	}

	var (
		enc Encoder
		cls Classifier
	)
	switch cfg.Backend {
	case BackendONNX, "":
		for _, p := range []string{cfg.EncoderPath, cfg.ClassifierPath} {
			if _, err := os.Stat(p); err != nil {
				return nil, fmt.Errorf("model artifact: %w", err)
			}
		}
		if err := InitONNXRuntime(cfg.OrtLibPath); err != nil {
			return nil, fmt.Errorf("init onnx runtime: %w", err)
		}
		e, err := NewOnnxEncoder(cfg.EncoderPath)
		if err != nil {
			return nil, err
		}
		c, err := NewOnnxClassifier(cfg.ClassifierPath, cfg.ClassifierOutput)
		if err != nil {
			if cerr := e.Close(); cerr != nil {
				log.Warn().Err(cerr).Msg("failed to release encoder session")
			}
			return nil, err
		}
		enc, cls = e, c
	case BackendRemote:
		if cfg.RemoteEncoderURL == "" || cfg.RemoteClassifierURL == "" {
			return nil, fmt.Errorf("remote backend requires encoder and classifier URLs")
		}
		enc = NewRemoteStage(StageEncode, cfg.RemoteEncoderURL, cfg.RemoteTimeout)
		cls = NewRemoteStage(StageClassify, cfg.RemoteClassifierURL, cfg.RemoteTimeout)
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Backend)
	}

	models, err := NewModels(prep, enc, cls)
	if err != nil {
		if cerr := closeAll(enc, cls); cerr != nil {
			log.Warn().Err(cerr).Msg("failed to release model stages")
		}
		return nil, err
	}

	md, err := LoadModelMetadata(filepath.Dir(cfg.PreprocessorPath))
	if err != nil {
		log.Debug().Err(err).Msg("no model metadata found")
	} else {
		models.metadata = md
	}

	log.Info().
		Str("backend", cfg.Backend).
		Int("features", prep.Width()).
		Str("version", models.metadataVersion()).
		Msg("Models loaded successfully")

	return models, nil
}

func (ms *Models) metadataVersion() string {
	if ms.metadata == nil || ms.metadata.Version == "" {
		return "unknown"
	}
	return ms.metadata.Version
}

// LoadModelMetadata reads model_metadata.json from dir, falling back to the
// newest model_metadata_*.json.
func LoadModelMetadata(dir string) (*ModelMetadata, error) {
	primary := filepath.Join(dir, "model_metadata.json")
	if md, err := decodeMetadata(primary); err == nil {
		return md, nil
	}

	// Fallback: pick the newest metadata file by timestamp suffix
	matches, err := filepath.Glob(filepath.Join(dir, "model_metadata_*.json"))
	if err != nil || len(matches) == 0 {
		return nil, fmt.Errorf("no metadata files found in %s", dir)
	}
	sort.Strings(matches)
	return decodeMetadata(matches[len(matches)-1])
}

func decodeMetadata(path string) (*ModelMetadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var md ModelMetadata
	if err := json.NewDecoder(file).Decode(&md); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &md, nil
}
