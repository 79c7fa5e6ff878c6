package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/animeshkundu/fix/internal/tools"
	"github.com/animeshkundu/fix/pkg/chatml"
)

func scriptedGenerate(prompts *[]string, responses ...string) GenerateFunc {
	i := 0
	return func(ctx context.Context, conv *chatml.Conversation) (string, error) {
		if prompts != nil {
			*prompts = append(*prompts, conv.Render())
		}
		if i >= len(responses) {
			return "", errors.New("script exhausted")
		}
		r := responses[i]
		i++
		return r, nil
	}
}

func newConv(input string) *chatml.Conversation {
	conv := chatml.NewConversation(chatml.AgentSystemPrompt("bash"))
	conv.AddUser(input)
	return conv
}

func TestRunAnswersImmediately(t *testing.T) {
	l := New(scriptedGenerate(nil, "git status"), tools.NewExecutor(tools.Bash))

	res, err := l.Run(context.Background(), newConv("gti status"), "gti status")
	if err != nil {
		t.Fatal(err)
	}
	if res.Command != "git status" || res.Iterations != 1 || res.Aborted {
		t.Errorf("res = %+v", res)
	}
	if len(res.ToolsUsed) != 0 {
		t.Errorf("ToolsUsed = %v, want none", res.ToolsUsed)
	}
}

func TestRunExecutesToolThenAnswers(t *testing.T) {
	t.Setenv("FIX_AGENT_PROBE", "hello")
	var prompts []string
	l := New(scriptedGenerate(&prompts,
		`<tool_call>{"name":"get_env_var","arguments":{"name":"FIX_AGENT_PROBE"}}</tool_call>`,
		"git status",
	), tools.NewExecutor(tools.Bash))

	res, err := l.Run(context.Background(), newConv("gti status"), "gti status")
	if err != nil {
		t.Fatal(err)
	}
	if res.Command != "git status" || res.Iterations != 2 || res.Aborted {
		t.Errorf("res = %+v", res)
	}
	if len(res.ToolsUsed) != 1 || res.ToolsUsed[0] != "get_env_var" {
		t.Errorf("ToolsUsed = %v", res.ToolsUsed)
	}
	if len(prompts) != 2 {
		t.Fatalf("recorded %d prompts, want 2", len(prompts))
	}
	if !strings.Contains(prompts[1], "[get_env_var]: hello") {
		t.Errorf("second prompt should carry the tool result:\n%s", prompts[1])
	}
}

func TestRunToolFailureIsRecoverable(t *testing.T) {
	var prompts []string
	l := New(scriptedGenerate(&prompts,
		`<tool_call>{"name":"get_env_var","arguments":{"name":"FIX_AGENT_ABSENT"}}</tool_call>`,
		"git push",
	), tools.NewExecutor(tools.Bash))

	res, err := l.Run(context.Background(), newConv("gti push"), "gti push")
	if err != nil {
		t.Fatal(err)
	}
	if res.Command != "git push" {
		t.Errorf("Command = %q", res.Command)
	}
	if !strings.Contains(prompts[1], "[get_env_var] failed: Environment variable 'FIX_AGENT_ABSENT' not set") {
		t.Errorf("second prompt should carry the failure:\n%s", prompts[1])
	}
}

func TestRunUnknownToolIsRecoverable(t *testing.T) {
	var prompts []string
	l := New(scriptedGenerate(&prompts,
		`<tool_call>{"name":"run_shell","arguments":{"command":"rm -rf /"}}</tool_call>`,
		"git status",
	), tools.NewExecutor(tools.Bash))

	res, err := l.Run(context.Background(), newConv("gti status"), "gti status")
	if err != nil {
		t.Fatal(err)
	}
	if res.Command != "git status" {
		t.Errorf("Command = %q", res.Command)
	}
	if !strings.Contains(prompts[1], "[run_shell] failed: Unknown tool: run_shell") {
		t.Errorf("second prompt should report the unknown tool:\n%s", prompts[1])
	}
}

func TestRunCeilingAbortsWithInputFallback(t *testing.T) {
	call := `<tool_call>{"name":"get_env_var","arguments":{"name":"FIX_AGENT_ABSENT"}}</tool_call>`
	l := New(scriptedGenerate(nil, call, call, call), tools.NewExecutor(tools.Bash))

	res, err := l.Run(context.Background(), newConv("gti status"), "gti status")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Aborted || res.Iterations != MaxIterations {
		t.Errorf("res = %+v", res)
	}
	if res.Command != "gti status" {
		t.Errorf("Command = %q, want the original input", res.Command)
	}
	if len(res.ToolsUsed) != MaxIterations {
		t.Errorf("ToolsUsed = %v", res.ToolsUsed)
	}
}

func TestRunCeilingKeepsLastGeneratedText(t *testing.T) {
	call := "git status\n" + `<tool_call>{"name":"get_env_var","arguments":{"name":"FIX_AGENT_ABSENT"}}</tool_call>`
	l := New(scriptedGenerate(nil, call, call, call), tools.NewExecutor(tools.Bash))

	res, err := l.Run(context.Background(), newConv("gti status"), "gti status")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Aborted {
		t.Fatalf("res = %+v", res)
	}
	if res.Command != "git status" {
		t.Errorf("Command = %q, want the text before the tool call", res.Command)
	}
}

func TestRunPropagatesGenerateError(t *testing.T) {
	boom := errors.New("backend down")
	l := New(func(ctx context.Context, conv *chatml.Conversation) (string, error) {
		return "", boom
	}, tools.NewExecutor(tools.Bash))

	_, err := l.Run(context.Background(), newConv("gti status"), "gti status")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
