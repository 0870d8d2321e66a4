// Package inference - ONNX Runtime sessions producing raw YOLOv5 head outputs.
package inference

import (
	"context"
	"os"
	"sync"

	"github.com/nvr-ai/go-yolov5/inference/providers"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"
)

// Config describes the model file and how to run it.
type Config struct {
	// ModelPath is the path to the ONNX model file.
	ModelPath string `json:"modelPath" yaml:"modelPath"`
	// LibraryPath overrides the onnxruntime shared library location.
	LibraryPath string `json:"libraryPath,omitempty" yaml:"libraryPath,omitempty"`
	// InputName selects the model input. Empty means the first input.
	InputName string `json:"inputName,omitempty" yaml:"inputName,omitempty"`
	// OutputNames selects the model outputs, finest stride first. Empty means
	// all outputs in model order.
	OutputNames []string `json:"outputNames,omitempty" yaml:"outputNames,omitempty"`
	// InputWidth and InputHeight fill dynamic spatial input dimensions.
	InputWidth  int `json:"inputWidth,omitempty"  yaml:"inputWidth,omitempty"`
	InputHeight int `json:"inputHeight,omitempty" yaml:"inputHeight,omitempty"`
	// Provider selects the execution provider.
	Provider providers.Config `json:"provider" yaml:"provider"`
}

var envMu sync.Mutex

// initEnvironment loads the shared library and initializes ORT once per process.
func initEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if _, err := os.Stat(libPath); err != nil {
		return errors.Wrapf(err, "onnxruntime library not found at %s", libPath)
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "initialize ORT environment")
	}
	return nil
}

// Session is an ORT session with preallocated input and output tensors.
// Run calls are serialized because the tensors are shared.
type Session struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	outputs []*ort.Tensor[float32]
	names   []string
}

// NewSession loads a model and allocates its tensors.
//
// Order of operations:
//  1. Environment setup: locate the shared library and initialize ORT.
//  2. Model inspection: resolve input and output names and static shapes.
//  3. Tensor allocation: one input tensor and one tensor per output.
//  4. Session creation: bind the tensors with the configured provider.
//
// Arguments:
//   - cfg: The session configuration.
//   - logger: Receives a summary of the loaded model. May be nil.
//
// Returns:
//   - *Session: The session. Close releases its native resources.
//   - error: An error if any step fails.
func NewSession(cfg Config, logger logrus.FieldLogger) (*Session, error) {
	libPath := cfg.LibraryPath
	if libPath == "" {
		var err error
		if libPath, err = providers.GetSharedLibPath(); err != nil {
			return nil, err
		}
	}
	if err := initEnvironment(libPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "inspect model %s", cfg.ModelPath)
	}
	in, err := selectInput(inputs, cfg)
	if err != nil {
		return nil, err
	}
	outs, err := selectOutputs(outputs, cfg.OutputNames)
	if err != nil {
		return nil, err
	}

	s := &Session{}
	if s.input, err = ort.NewEmptyTensor[float32](in.Dimensions); err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}
	values := make([]ort.Value, 0, len(outs))
	for _, info := range outs {
		out, err := ort.NewEmptyTensor[float32](info.Dimensions)
		if err != nil {
			s.Close()
			return nil, errors.Wrapf(err, "create output tensor %s", info.Name)
		}
		s.outputs = append(s.outputs, out)
		s.names = append(s.names, info.Name)
		values = append(values, out)
	}

	options, err := providers.NewSessionOptions(cfg.Provider)
	if err != nil {
		s.Close()
		return nil, err
	}
	defer options.Destroy()

	s.session, err = ort.NewAdvancedSession(cfg.ModelPath,
		[]string{in.Name}, s.names,
		[]ort.Value{s.input}, values,
		options,
	)
	if err != nil {
		s.Close()
		return nil, errors.Wrap(err, "create ORT session")
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"model":    cfg.ModelPath,
			"input":    in.Dimensions,
			"outputs":  s.names,
			"provider": cfg.Provider.Backend,
		}).Info("loaded onnx model")
	}

	return s, nil
}

func selectInput(infos []ort.InputOutputInfo, cfg Config) (ort.InputOutputInfo, error) {
	if len(infos) == 0 {
		return ort.InputOutputInfo{}, errors.New("model has no inputs")
	}
	in := infos[0]
	if cfg.InputName != "" {
		found := false
		for _, info := range infos {
			if info.Name == cfg.InputName {
				in, found = info, true
				break
			}
		}
		if !found {
			return in, errors.Errorf("model has no input %q", cfg.InputName)
		}
	}
	if in.DataType != ort.TensorElementDataTypeFloat {
		return in, errors.Errorf("input %s is %v, want float32", in.Name, in.DataType)
	}

	dims := append(ort.Shape(nil), in.Dimensions...)
	if len(dims) != 4 {
		return in, errors.Errorf("input %s has shape %v, want (1, 3, H, W)", in.Name, dims)
	}
	if dims[0] <= 0 {
		dims[0] = 1
	}
	if dims[2] <= 0 {
		dims[2] = int64(cfg.InputHeight)
	}
	if dims[3] <= 0 {
		dims[3] = int64(cfg.InputWidth)
	}
	if dims[2] <= 0 || dims[3] <= 0 {
		return in, errors.Errorf("input %s has dynamic size %v, set inputWidth and inputHeight", in.Name, in.Dimensions)
	}
	in.Dimensions = dims
	return in, nil
}

func selectOutputs(infos []ort.InputOutputInfo, names []string) ([]ort.InputOutputInfo, error) {
	selected := infos
	if len(names) > 0 {
		byName := make(map[string]ort.InputOutputInfo, len(infos))
		for _, info := range infos {
			byName[info.Name] = info
		}
		selected = make([]ort.InputOutputInfo, 0, len(names))
		for _, name := range names {
			info, ok := byName[name]
			if !ok {
				return nil, errors.Errorf("model has no output %q", name)
			}
			selected = append(selected, info)
		}
	}

	for _, info := range selected {
		if info.DataType != ort.TensorElementDataTypeFloat {
			return nil, errors.Errorf("output %s is %v, want float32", info.Name, info.DataType)
		}
		for _, d := range info.Dimensions {
			if d <= 0 {
				return nil, errors.Errorf("output %s has dynamic shape %v", info.Name, info.Dimensions)
			}
		}
	}
	return selected, nil
}

// InputShape returns the (1, 3, H, W) input shape.
func (s *Session) InputShape() []int {
	return toInts(s.input.GetShape())
}

// OutputNames returns the bound output names in output order.
func (s *Session) OutputNames() []string {
	return append([]string(nil), s.names...)
}

// Run copies input into the input tensor, runs the model and returns a copy
// of every output with its shape.
//
// Arguments:
//   - ctx: Checked before the run starts. A started run is not interrupted.
//   - input: CHW float32 data, as produced by images.PrepareInput.
//
// Returns:
//   - []*tensor.Dense: One tensor per output, owned by the caller.
//   - error: An error if the input size is wrong or the run fails.
func (s *Session) Run(ctx context.Context, input []float32) ([]*tensor.Dense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, errors.New("session is closed")
	}
	dst := s.input.GetData()
	if len(input) != len(dst) {
		return nil, errors.Errorf("input has %d values, model expects %d %v", len(input), len(dst), s.input.GetShape())
	}
	copy(dst, input)

	if err := s.session.Run(); err != nil {
		return nil, errors.Wrap(err, "run ORT session")
	}

	results := make([]*tensor.Dense, len(s.outputs))
	for i, out := range s.outputs {
		data := append([]float32(nil), out.GetData()...)
		results[i] = tensor.New(tensor.WithShape(toInts(out.GetShape())...), tensor.WithBacking(data))
	}
	return results, nil
}

// Close releases the native session and tensors.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.session != nil {
		err = s.session.Destroy()
		s.session = nil
	}
	if s.input != nil {
		s.input.Destroy()
		s.input = nil
	}
	for _, out := range s.outputs {
		out.Destroy()
	}
	s.outputs = nil

	return errors.Wrap(err, "destroy ORT session")
}

func toInts(shape ort.Shape) []int {
	out := make([]int, len(shape))
	for i, d := range shape {
		out[i] = int(d)
	}
	return out
}
