//go:build llama

package llm

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

type llamaAdapter struct{}

// NewLlamaAdapter returns the in-process llama.cpp backend.
func NewLlamaAdapter() Adapter { return llamaAdapter{} }

// llamaSession owns the loaded model.
type llamaSession struct {
	model  *llama.LLama
	params Params
}

func (llamaAdapter) Start(modelPath string, params Params) (Session, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, ErrModelLoad(modelPath, errors.New("model path is empty"))
	}
	mo := []llama.ModelOption{
		llama.SetContext(zn(params.ContextSize, 512)),
		llama.SetNBatch(zn(params.BatchSize, 512)),
	}
	if params.GPULayers > 0 {
		mo = append(mo, llama.SetGPULayers(params.GPULayers))
	}
	m, err := llama.New(modelPath, mo...)
	if err != nil {
		return nil, ErrModelLoad(modelPath, err)
	}
	logDebug().Str("model", modelPath).Msg("llama model loaded")
	return &llamaSession{model: m, params: params}, nil
}

func (s *llamaSession) Generate(ctx context.Context, prompt string, onToken func(string) error) (FinalResult, error) {
	if s.model == nil {
		return FinalResult{}, ErrInference(errors.New("llama model not initialized"))
	}

	// Bridge token streaming to onToken and respect cancellation.
	s.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if err := onToken(tok); err != nil {
			return false
		}
		return true
	})

	text, err := s.model.Predict(prompt, predictOptions(s.params)...)
	if err != nil {
		if ctx.Err() != nil {
			return FinalResult{}, ctx.Err()
		}
		return FinalResult{}, ErrInference(err)
	}
	return FinalResult{Content: text, FinishReason: "stop"}, nil
}

func (s *llamaSession) Close() error {
	if s.model != nil {
		s.model.Free()
		s.model = nil
	}
	return nil
}

// helpers
func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// predictOptions converts Params into go-llama.cpp options. TopK 1 with
// temperature 0 yields greedy decoding.
func predictOptions(params Params) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, params.MaxTokens)),
		llama.SetThreads(zn(params.Threads, 4)),
		llama.SetTopK(max(1, params.TopK)),
		llama.SetTemperature(params.Temperature),
		llama.SetTopP(zf(params.TopP, llama.DefaultOptions.TopP)),
		llama.SetPenalty(zf(params.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if params.Seed != 0 {
		po = append(po, llama.SetSeed(params.Seed))
	}
	if len(params.Stop) > 0 {
		po = append(po, llama.SetStopWords(params.Stop...))
	}
	return po
}
