// Package providers - CPU based execution provider.
package providers

import ort "github.com/yalue/onnxruntime_go"

// CPUProviderBackend runs on the default ORT CPU kernels.
const CPUProviderBackend ProviderBackend = "cpu"

// CPUProvider is the default provider. It needs no registration.
type CPUProvider struct{}

// NewCPUProvider creates a new CPU provider.
func NewCPUProvider() *CPUProvider {
	return &CPUProvider{}
}

// Backend returns the backend of the CPU provider.
func (p *CPUProvider) Backend() ProviderBackend {
	return CPUProviderBackend
}

// Append is a no-op: ORT always falls back to the CPU.
func (p *CPUProvider) Append(*ort.SessionOptions) error {
	return nil
}
