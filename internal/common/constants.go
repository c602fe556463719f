package common

// Environment variable keys
const (
	EnvConfigFile          = "CONFIG_FILE"
	EnvListenPort          = "LISTEN_PORT"
	EnvMetricsPort         = "METRICS_PORT"
	EnvDebug               = "DEBUG"
	EnvLogLevel            = "LOG_LEVEL"
	EnvModelDir            = "MODEL_DIR"
	EnvPreprocessorPath    = "PREPROCESSOR_PATH"
	EnvEncoderPath         = "ENCODER_PATH"
	EnvClassifierPath      = "CLASSIFIER_PATH"
	EnvBackend             = "MODEL_BACKEND"
	EnvOrtLibPath          = "ORT_LIB_PATH"
	EnvClassifierOutput    = "CLASSIFIER_OUTPUT"
	EnvRemoteEncoderURL    = "REMOTE_ENCODER_URL"
	EnvRemoteClassifierURL = "REMOTE_CLASSIFIER_URL"
	EnvRemoteTimeout       = "REMOTE_TIMEOUT"
	EnvDataPath            = "DATA_PATH"
)

// Model backends
const (
	BackendONNX   = "onnx"
	BackendRemote = "remote"
)

// Configuration defaults
const (
	DefaultListenPort       = 5000
	DefaultMetricsPort      = 9090
	DefaultLogLevel         = "info"
	DefaultModelDir         = "models"
	DefaultPreprocessor     = "preprocessor.yaml"
	DefaultEncoder          = "encoder.onnx"
	DefaultClassifier       = "classifier.onnx"
	DefaultBackend          = BackendONNX
	DefaultClassifierOutput = "probabilities"
)

// Validation constants
const (
	MinPort = 1024
	MaxPort = 65535
)
