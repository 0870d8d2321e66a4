// Package providers - Execution providers for ONNX Runtime sessions.
package providers

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// ProviderBackend names an ONNX Runtime execution provider.
type ProviderBackend string

// ExecutionProvider is a hardware backend that can be attached to session options.
type ExecutionProvider interface {
	// Backend returns the backend name.
	Backend() ProviderBackend
	// Append registers the provider on the session options.
	Append(options *ort.SessionOptions) error
}

// Config selects and configures the execution provider of a session.
type Config struct {
	// Backend is one of cpu, cuda, coreml or openvino. Empty means cpu.
	Backend ProviderBackend `json:"backend" yaml:"backend"`
	// IntraOpThreads bounds the threads used inside one graph node. Zero lets ORT decide.
	IntraOpThreads int `json:"intraOpThreads" yaml:"intraOpThreads"`
	// InterOpThreads bounds the threads used across independent nodes. Zero lets ORT decide.
	InterOpThreads int `json:"interOpThreads" yaml:"interOpThreads"`

	CUDA     CUDAOptions     `json:"cuda"     yaml:"cuda"`
	CoreML   CoreMLOptions   `json:"coreml"   yaml:"coreml"`
	OpenVINO OpenVINOOptions `json:"openvino" yaml:"openvino"`
}

// NewProvider creates the provider selected by the config.
//
// Arguments:
//   - cfg: The provider configuration.
//
// Returns:
//   - ExecutionProvider: The provider.
//   - error: An error if the backend is unknown.
func NewProvider(cfg Config) (ExecutionProvider, error) {
	switch cfg.Backend {
	case "", CPUProviderBackend:
		return NewCPUProvider(), nil
	case CUDAProviderBackend:
		return NewCUDAProvider(cfg.CUDA), nil
	case CoreMLProviderBackend:
		return NewCoreMLProvider(cfg.CoreML), nil
	case OpenVINOProviderBackend:
		return NewOpenVINOProvider(cfg.OpenVINO), nil
	default:
		return nil, errors.Errorf("unsupported execution provider %q", cfg.Backend)
	}
}

// NewSessionOptions builds session options with threading, extended graph
// optimizations and the configured execution provider.
//
// **The caller must Destroy the returned options.**
//
// Arguments:
//   - cfg: The provider configuration.
//
// Returns:
//   - *ort.SessionOptions: The options.
//   - error: An error if the options cannot be created or the provider fails to attach.
func NewSessionOptions(cfg Config) (*ort.SessionOptions, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "create ORT session options")
	}
	if err := configureOptions(options, cfg, provider); err != nil {
		options.Destroy()
		return nil, err
	}

	return options, nil
}

func configureOptions(options *ort.SessionOptions, cfg Config, provider ExecutionProvider) error {
	if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
		return errors.Wrap(err, "set intra-op threads")
	}
	if err := options.SetInterOpNumThreads(cfg.InterOpThreads); err != nil {
		return errors.Wrap(err, "set inter-op threads")
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		return errors.Wrap(err, "set graph optimization level")
	}
	if err := provider.Append(options); err != nil {
		return errors.Wrapf(err, "enable %s", provider.Backend())
	}
	return nil
}
