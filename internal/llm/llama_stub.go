//go:build !llama

package llm

// This file provides a no-CGO stub for the llama adapter. It is compiled
// when the 'llama' build tag is NOT set, keeping default builds and CI
// CGO-free. The real adapter lives in llama.go (tagged 'llama').

import "context"

// llamaBuilt indicates this binary was compiled without real llama support.
var llamaBuilt = false

type llamaAdapter struct{}

// NewLlamaAdapter returns a stub that refuses to run inference without the
// 'llama' build tag.
func NewLlamaAdapter() Adapter { return llamaAdapter{} }

type llamaSession struct{}

func (llamaAdapter) Start(modelPath string, params Params) (Session, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag); set FIX_LLAMA_SERVER to use an external llama-server instead")
}

func (llamaSession) Generate(ctx context.Context, prompt string, onToken func(string) error) (FinalResult, error) {
	select {
	case <-ctx.Done():
		return FinalResult{}, ctx.Err()
	default:
	}
	return FinalResult{}, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag); set FIX_LLAMA_SERVER to use an external llama-server instead")
}

func (llamaSession) Close() error { return nil }
