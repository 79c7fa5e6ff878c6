package llm

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/animeshkundu/fix/pkg/chatml"
)

const (
	// DefaultContextSize is the model context window in tokens.
	DefaultContextSize = 512
	// DefaultBatchSize is the prompt processing batch size.
	DefaultBatchSize = 512
	// DefaultMaxTokens bounds each completion.
	DefaultMaxTokens = 128
	// DefaultGPULayers offloads effectively the whole model when a GPU
	// is present; llama.cpp clamps it otherwise.
	DefaultGPULayers = 99
)

// EnvLlamaServer selects the external llama-server backend when set to the
// path of a llama-server binary.
const EnvLlamaServer = "FIX_LLAMA_SERVER"

// DefaultParams returns the decoding defaults used by the CLI. TopK 1 with
// temperature 0 makes decoding greedy and repeatable.
func DefaultParams() Params {
	return Params{
		ContextSize: DefaultContextSize,
		BatchSize:   DefaultBatchSize,
		MaxTokens:   DefaultMaxTokens,
		GPULayers:   DefaultGPULayers,
		TopK:        1,
	}
}

// Engine owns one loaded model for the life of the process. The first
// Generate call loads the model; later calls reuse the same session.
type Engine struct {
	modelPath string
	params    Params
	adapter   Adapter

	once    sync.Once
	session Session
	loadErr error
}

// NewEngine returns an engine over the default backend for this
// environment: llama-server when FIX_LLAMA_SERVER is set, in-process
// llama.cpp otherwise.
func NewEngine(modelPath string, params Params) *Engine {
	return NewEngineWith(defaultAdapter(), modelPath, params)
}

// NewEngineWith returns an engine over an explicit adapter.
func NewEngineWith(adapter Adapter, modelPath string, params Params) *Engine {
	return &Engine{modelPath: modelPath, params: params, adapter: adapter}
}

func defaultAdapter() Adapter {
	if bin := strings.TrimSpace(os.Getenv(EnvLlamaServer)); bin != "" {
		return NewServerAdapter(bin)
	}
	return NewLlamaAdapter()
}

// PromptBudget is the token budget left for the rendered prompt after
// reserving room for the completion.
func (g *Engine) PromptBudget() int {
	budget := g.params.ContextSize - g.params.MaxTokens
	if budget < 1 {
		budget = 1
	}
	return budget
}

// Generate renders the conversation and produces one completion. Turns are
// dropped oldest-first until the prompt fits the budget; the system turn is
// never dropped.
func (g *Engine) Generate(ctx context.Context, conv *chatml.Conversation) (string, error) {
	if err := g.ensureLoaded(); err != nil {
		return "", err
	}

	budget := g.PromptBudget()
	for conv.EstimateTokens() > budget {
		if !conv.DropOldest() {
			return "", ErrContextOverflow(conv.EstimateTokens(), budget)
		}
	}
	prompt := conv.Render()

	var out strings.Builder
	final, err := g.session.Generate(ctx, prompt, func(tok string) error {
		out.WriteString(tok)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if IsInference(err) || IsModelLoad(err) || IsDependencyUnavailable(err) {
			return "", err
		}
		return "", ErrInference(err)
	}

	text := final.Content
	if text == "" {
		text = out.String()
	}
	return trimAtStops(text, g.params.Stop), nil
}

// Close releases the session and any backend process.
func (g *Engine) Close() error {
	var err error
	if g.session != nil {
		err = g.session.Close()
		g.session = nil
	}
	if po, ok := g.adapter.(interface{ StopAll() }); ok {
		po.StopAll()
	}
	return err
}

func (g *Engine) ensureLoaded() error {
	g.once.Do(func() {
		sess, err := g.adapter.Start(g.modelPath, g.params)
		if err != nil {
			if IsModelLoad(err) || IsDependencyUnavailable(err) {
				g.loadErr = err
				return
			}
			g.loadErr = ErrModelLoad(g.modelPath, err)
			return
		}
		g.session = sess
		logDebug().Str("model", g.modelPath).Msg("engine session ready")
	})
	return g.loadErr
}

// trimAtStops cuts text at the earliest stop sequence. Backends already
// honor stop words; this guards against partial flushes around them.
func trimAtStops(text string, stops []string) string {
	cut := len(text)
	for _, s := range stops {
		if s == "" {
			continue
		}
		if i := strings.Index(text, s); i >= 0 && i < cut {
			cut = i
		}
	}
	return text[:cut]
}
