package cfg

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"churn-web/internal/common"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	ListenPort          int
	MetricsPort         int
	Debug               bool
	LogLevel            string
	ModelDir            string
	PreprocessorPath    string
	EncoderPath         string
	ClassifierPath      string
	Backend             string
	OrtLibPath          string
	ClassifierOutput    string
	RemoteEncoderURL    string
	RemoteClassifierURL string
	RemoteTimeout       time.Duration
	DataPath            string
}

type ConfigFile struct {
	Server struct {
		ListenPort  int    `yaml:"listenPort"`
		MetricsPort int    `yaml:"metricsPort"`
		Debug       bool   `yaml:"debug"`
		LogLevel    string `yaml:"logLevel"`
	} `yaml:"server"`

	Models struct {
		Dir              string `yaml:"dir"`
		Preprocessor     string `yaml:"preprocessor"`
		Encoder          string `yaml:"encoder"`
		Classifier       string `yaml:"classifier"`
		Backend          string `yaml:"backend"`
		OrtLibPath       string `yaml:"ortLibPath"`
		ClassifierOutput string `yaml:"classifierOutput"`
	} `yaml:"models"`

	Remote struct {
		EncoderURL    string `yaml:"encoderURL"`
		ClassifierURL string `yaml:"classifierURL"`
		Timeout       string `yaml:"timeout"`
	} `yaml:"remote"`

	System struct {
		DataPath string `yaml:"dataPath"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	remoteTimeout, err := time.ParseDuration(config.Remote.Timeout)
	if err != nil {
		remoteTimeout = 5 * time.Second
	}
	remoteTimeout = getDurationOrDefault(common.EnvRemoteTimeout, remoteTimeout)

	modelDir := getEnvOrDefault(common.EnvModelDir, orDefault(config.Models.Dir, common.DefaultModelDir))

	settings := Settings{
		ListenPort:          getIntFromEnvOrConfig(common.EnvListenPort, config.Server.ListenPort, common.DefaultListenPort),
		MetricsPort:         getIntFromEnvOrConfig(common.EnvMetricsPort, config.Server.MetricsPort, common.DefaultMetricsPort),
		Debug:               getBoolFromEnvOrConfig(common.EnvDebug, config.Server.Debug),
		LogLevel:            getEnvOrDefault(common.EnvLogLevel, orDefault(config.Server.LogLevel, common.DefaultLogLevel)),
		ModelDir:            modelDir,
		PreprocessorPath:    getEnvOrDefault(common.EnvPreprocessorPath, resolve(modelDir, config.Models.Preprocessor, common.DefaultPreprocessor)),
		EncoderPath:         getEnvOrDefault(common.EnvEncoderPath, resolve(modelDir, config.Models.Encoder, common.DefaultEncoder)),
		ClassifierPath:      getEnvOrDefault(common.EnvClassifierPath, resolve(modelDir, config.Models.Classifier, common.DefaultClassifier)),
		Backend:             strings.ToLower(getEnvOrDefault(common.EnvBackend, orDefault(config.Models.Backend, common.DefaultBackend))),
		OrtLibPath:          getEnvOrDefault(common.EnvOrtLibPath, config.Models.OrtLibPath),
		ClassifierOutput:    getEnvOrDefault(common.EnvClassifierOutput, orDefault(config.Models.ClassifierOutput, common.DefaultClassifierOutput)),
		RemoteEncoderURL:    getEnvOrDefault(common.EnvRemoteEncoderURL, config.Remote.EncoderURL),
		RemoteClassifierURL: getEnvOrDefault(common.EnvRemoteClassifierURL, config.Remote.ClassifierURL),
		RemoteTimeout:       remoteTimeout,
		DataPath:            getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
	}

	if err := validateServer(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	modelDir := getEnvOrDefault(common.EnvModelDir, common.DefaultModelDir)

	settings := Settings{
		ListenPort:          getIntOrDefault(common.EnvListenPort, common.DefaultListenPort),
		MetricsPort:         getIntOrDefault(common.EnvMetricsPort, common.DefaultMetricsPort),
		Debug:               getBoolOrDefault(common.EnvDebug, false),
		LogLevel:            getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		ModelDir:            modelDir,
		PreprocessorPath:    getEnvOrDefault(common.EnvPreprocessorPath, filepath.Join(modelDir, common.DefaultPreprocessor)),
		EncoderPath:         getEnvOrDefault(common.EnvEncoderPath, filepath.Join(modelDir, common.DefaultEncoder)),
		ClassifierPath:      getEnvOrDefault(common.EnvClassifierPath, filepath.Join(modelDir, common.DefaultClassifier)),
		Backend:             strings.ToLower(getEnvOrDefault(common.EnvBackend, common.DefaultBackend)),
		OrtLibPath:          os.Getenv(common.EnvOrtLibPath), // optional, ORT default search path otherwise
		ClassifierOutput:    getEnvOrDefault(common.EnvClassifierOutput, common.DefaultClassifierOutput),
		RemoteEncoderURL:    os.Getenv(common.EnvRemoteEncoderURL),
		RemoteClassifierURL: os.Getenv(common.EnvRemoteClassifierURL),
		RemoteTimeout:       getDurationOrDefault(common.EnvRemoteTimeout, 5*time.Second),
		DataPath:            os.Getenv(common.EnvDataPath), // optional
	}

	if err := validateServer(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// resolve joins a configured artifact name onto the model directory unless it is absolute.
func resolve(dir, configured, def string) string {
	name := orDefault(configured, def)
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getBoolFromEnvOrConfig(key string, configValue bool) bool {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	return configValue
}

// validateSettings performs range and consistency checks on configuration values
func validateSettings(settings *Settings) error {
	if err := validateServer(settings); err != nil {
		return err
	}
	return settings.ValidateModels()
}

// validateServer checks the settings the process cannot start without.
func validateServer(settings *Settings) error {
	if settings.ListenPort < common.MinPort || settings.ListenPort > common.MaxPort {
		return fmt.Errorf("listen port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.ListenPort)
	}
	if settings.MetricsPort < common.MinPort || settings.MetricsPort > common.MaxPort {
		return fmt.Errorf("metrics port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.MetricsPort)
	}
	if settings.MetricsPort == settings.ListenPort {
		return fmt.Errorf("metrics port must differ from listen port (%d)", settings.ListenPort)
	}
	return nil
}

// ValidateModels checks the model backend settings. Load does not call it,
// so a bad model configuration leaves the web front end able to start in
// degraded mode.
func (settings Settings) ValidateModels() error {
	if settings.PreprocessorPath == "" {
		return fmt.Errorf("preprocessor path cannot be empty")
	}

	switch settings.Backend {
	case common.BackendONNX:
		if settings.EncoderPath == "" || settings.ClassifierPath == "" {
			return fmt.Errorf("encoder and classifier paths are required for the %s backend", common.BackendONNX)
		}
		if settings.ClassifierOutput == "" {
			return fmt.Errorf("classifier output name cannot be empty")
		}
	case common.BackendRemote:
		if settings.RemoteEncoderURL == "" || settings.RemoteClassifierURL == "" {
			return fmt.Errorf("remote encoder and classifier URLs are required for the %s backend", common.BackendRemote)
		}
		if settings.RemoteTimeout < 100*time.Millisecond || settings.RemoteTimeout > time.Minute {
			return fmt.Errorf("remote timeout must be between 100ms and 1m, got %v", settings.RemoteTimeout)
		}
	default:
		return fmt.Errorf("unknown model backend %q (want %s or %s)", settings.Backend, common.BackendONNX, common.BackendRemote)
	}

	return nil
}
