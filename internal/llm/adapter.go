// Package llm runs local GGUF models behind a small adapter seam. The
// default backend links llama.cpp in-process (build tag 'llama'); an
// external llama-server subprocess can be selected instead via
// FIX_LLAMA_SERVER. The Engine on top owns one loaded model per process.
package llm

import "context"

// Adapter abstracts the model runtime used by the Engine.
type Adapter interface {
	// Start loads the model at modelPath and prepares a reusable session.
	Start(modelPath string, params Params) (Session, error)
}

// Session is a loaded model ready to generate. One session is reused for
// every generation in the process.
type Session interface {
	// Generate streams tokens for the given prompt through onToken.
	// Implementations must return when the context is canceled.
	Generate(ctx context.Context, prompt string, onToken func(string) error) (FinalResult, error)
	// Close releases any resources associated with the session.
	Close() error
}

// Params captures model and decoding parameters shared by all backends.
type Params struct {
	ContextSize   int
	BatchSize     int
	Threads       int
	GPULayers     int
	Temperature   float32
	TopP          float32
	TopK          int
	MaxTokens     int
	Stop          []string
	Seed          int
	RepeatPenalty float32
}

// FinalResult summarizes the generation after streaming.
type FinalResult struct {
	Content      string
	FinishReason string
}

// Available reports whether in-process llama support was compiled in.
func Available() bool { return llamaBuilt }
