package ml

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortOnce sync.Once
	ortErr  error
)

// InitONNXRuntime loads the ONNX Runtime shared library once per process.
// An empty libPath leaves the library's default search path in effect.
func InitONNXRuntime(libPath string) error {
	ortOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortErr = ort.InitializeEnvironment()
		if ortErr == nil {
			log.Info().Str("lib", libPath).Msg("ONNX runtime initialized")
		}
	})
	return ortErr
}

// ShutdownONNXRuntime tears down the runtime environment if it was started.
func ShutdownONNXRuntime() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// onnxSession runs a single-input, single-output float32 model.
type onnxSession struct {
	path    string
	input   string
	output  string
	session *ort.DynamicAdvancedSession
}

func newOnnxSession(path, wantOutput string) (*onnxSession, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("inspect model %s: %w", path, err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("model %s: expected 1 input, found %d", path, len(inputs))
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("model %s has no outputs", path)
	}

	output := outputs[0].Name
	if wantOutput != "" {
		output = ""
		names := make([]string, 0, len(outputs))
		for _, o := range outputs {
			names = append(names, o.Name)
			if o.Name == wantOutput {
				output = o.Name
			}
		}
		if output == "" {
			return nil, fmt.Errorf("model %s: output %q not found (have %v)", path, wantOutput, names)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(path, []string{inputs[0].Name}, []string{output}, nil)
	if err != nil {
		return nil, fmt.Errorf("create session for %s: %w", path, err)
	}

	log.Info().
		Str("model_path", path).
		Str("input", inputs[0].Name).
		Str("output", output).
		Msg("ONNX model loaded")

	return &onnxSession{path: path, input: inputs[0].Name, output: output, session: session}, nil
}

func (s *onnxSession) run(m Matrix) (Matrix, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	in, err := ort.NewTensor(ort.NewShape(int64(m.Rows()), int64(m.Cols())), m.Flatten())
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer in.Destroy()

	// nil outputs are allocated by onnxruntime and owned by us afterwards
	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{in}, outputs); err != nil {
		return nil, fmt.Errorf("run %s: %w", s.path, err)
	}
	defer outputs[0].Destroy()

	tensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("output %q is %T, expected float32 tensor", s.output, outputs[0])
	}
	shape := tensor.GetShape()
	if len(shape) != 2 || shape[0] != int64(m.Rows()) {
		return nil, fmt.Errorf("output %q has shape %v, expected [%d, n]", s.output, shape, m.Rows())
	}
	return Reshape(tensor.GetData(), int(shape[1]))
}

func (s *onnxSession) Close() error {
	if s == nil || s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return err
}

// OnnxEncoder runs the encoder artifact and returns its first output.
type OnnxEncoder struct {
	*onnxSession
}

// NewOnnxEncoder opens the encoder model at path.
func NewOnnxEncoder(path string) (*OnnxEncoder, error) {
	s, err := newOnnxSession(path, "")
	if err != nil {
		return nil, err
	}
	return &OnnxEncoder{s}, nil
}

// Predict implements Encoder.
func (e *OnnxEncoder) Predict(_ context.Context, features Matrix) (Matrix, error) {
	return e.run(features)
}

// OnnxClassifier runs the classifier artifact and reads its probability output.
type OnnxClassifier struct {
	*onnxSession
}

// NewOnnxClassifier opens the classifier model at path. output names the
// probability tensor; sklearn-onnx exports call it "probabilities".
func NewOnnxClassifier(path, output string) (*OnnxClassifier, error) {
	s, err := newOnnxSession(path, output)
	if err != nil {
		return nil, err
	}
	return &OnnxClassifier{s}, nil
}

// PredictProba implements Classifier.
func (c *OnnxClassifier) PredictProba(_ context.Context, encoded Matrix) (Proba, error) {
	out, err := c.run(encoded)
	if err != nil {
		return nil, err
	}
	return ProbaFromMatrix(out), nil
}
