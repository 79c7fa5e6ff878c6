// Package agent runs the bounded correction loop: generate, maybe execute a
// tool, feed the result back, and try again. The loop never spins past its
// iteration ceiling and always comes back with something to print.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/animeshkundu/fix/internal/parse"
	"github.com/animeshkundu/fix/internal/tools"
	"github.com/animeshkundu/fix/pkg/chatml"
)

// MaxIterations caps generate/execute rounds per correction.
const MaxIterations = 3

// GenerateFunc produces one completion for the conversation.
type GenerateFunc func(ctx context.Context, conv *chatml.Conversation) (string, error)

// Result summarizes one agent run.
type Result struct {
	// Command is the corrected command line. Never empty: when the loop
	// aborts it falls back to the last usable generated text, then to the
	// original input.
	Command    string
	Iterations int
	ToolsUsed  []string
	// Aborted is set when the iteration ceiling was hit before the model
	// produced a final answer.
	Aborted bool
}

// Loop drives the model and the tool executor against one conversation.
type Loop struct {
	generate GenerateFunc
	exec     *tools.Executor
	maxIters int
}

// New returns a loop with the default iteration ceiling.
func New(generate GenerateFunc, exec *tools.Executor) *Loop {
	return &Loop{generate: generate, exec: exec, maxIters: MaxIterations}
}

// Run iterates until the model produces a final answer or the ceiling is
// hit. Tool failures are folded back into the conversation for the model to
// recover from; only generation failures end the run with an error.
func (l *Loop) Run(ctx context.Context, conv *chatml.Conversation, input string) (Result, error) {
	var used []string
	var lastText string

	for i := 1; i <= l.maxIters; i++ {
		raw, err := l.generate(ctx, conv)
		if err != nil {
			return Result{}, err
		}

		resp := parse.ParseResponse(raw)
		if resp.Kind == parse.KindFinalAnswer {
			logDebug().Int("iteration", i).Msg("final answer")
			return Result{
				Command:    resp.Text,
				Iterations: i,
				ToolsUsed:  used,
			}, nil
		}

		// Text the model emitted before its tool call is the best
		// degraded answer if the ceiling hits.
		if cleaned := answerBeforeCall(raw); cleaned != "" {
			lastText = cleaned
		}

		conv.AddAssistant(strings.TrimSpace(raw))

		var result tools.Result
		call, ok := tools.FromCall(resp.Name, resp.Arguments)
		if !ok {
			result = tools.Failure("Unknown tool: " + resp.Name)
		} else {
			result = l.exec.Execute(ctx, call)
		}
		used = append(used, resp.Name)
		logDebug().Int("iteration", i).Str("tool", resp.Name).Bool("ok", result.OK).Msg("tool round")

		if result.OK {
			conv.AddToolResult(fmt.Sprintf("[%s]: %s", resp.Name, result.Output))
		} else {
			conv.AddToolResult(fmt.Sprintf("[%s] failed: %s", resp.Name, result.Err))
		}
	}

	command := lastText
	if command == "" {
		command = strings.TrimSpace(input)
	}
	logDebug().Str("command", command).Msg("iteration ceiling hit, best-effort answer")
	return Result{
		Command:    command,
		Iterations: l.maxIters,
		ToolsUsed:  used,
		Aborted:    true,
	}, nil
}

// answerBeforeCall cleans any answer text preceding a tool call marker.
func answerBeforeCall(raw string) string {
	if i := strings.Index(raw, chatml.ToolCallOpen); i >= 0 {
		raw = raw[:i]
	}
	return parse.Clean(raw)
}
