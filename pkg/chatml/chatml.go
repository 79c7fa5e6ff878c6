// Package chatml defines the chat-markup wire format the correction model is
// fine-tuned on: turn markers, role labels, and the structured
// tool-call/answer/reasoning brackets embedded in generated text. The
// rendered format must match the training data byte for byte; a mismatch
// degrades answer quality silently rather than raising an error.
package chatml

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Turn markers.
const (
	TurnStart = "<|im_start|>"
	TurnEnd   = "<|im_end|>"
)

// Structured-output markers carried inside assistant turns.
const (
	ToolCallOpen  = "<tool_call>"
	ToolCallClose = "</tool_call>"
	AnswerOpen    = "<answer>"
	AnswerClose   = "</answer>"
	ThinkOpen     = "<think>"
	ThinkClose    = "</think>"
)

// Role labels a conversation turn.
type Role string

const (
	RoleSystem     Role = "system"
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolResult Role = "tool_result"
)

// Message is a single conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation accumulates the turns of one correction request. The system
// turn is held separately so truncation can never remove it.
type Conversation struct {
	System string
	Turns  []Message
}

// NewConversation starts a conversation with the given system turn.
func NewConversation(system string) *Conversation {
	return &Conversation{System: system}
}

// AddUser appends a user turn.
func (c *Conversation) AddUser(content string) {
	c.Turns = append(c.Turns, Message{Role: RoleUser, Content: content})
}

// AddAssistant appends an assistant turn.
func (c *Conversation) AddAssistant(content string) {
	c.Turns = append(c.Turns, Message{Role: RoleAssistant, Content: content})
}

// AddToolResult appends a tool_result turn.
func (c *Conversation) AddToolResult(content string) {
	c.Turns = append(c.Turns, Message{Role: RoleToolResult, Content: content})
}

// AddError attaches observed error output to the conversation. It is
// appended to the most recent user turn when one ends the conversation,
// otherwise it becomes its own user turn.
func (c *Conversation) AddError(errText string) {
	if n := len(c.Turns); n > 0 && c.Turns[n-1].Role == RoleUser {
		c.Turns[n-1].Content += "\nError: " + errText
		return
	}
	c.Turns = append(c.Turns, Message{Role: RoleUser, Content: "Error: " + errText})
}

// Render produces the prompt string in the training-time format: each turn
// as <|im_start|>{role}\n{content}<|im_end|>\n, ending with an open
// assistant turn for the model to continue. Output is byte-identical for
// identical conversation content.
func (c *Conversation) Render() string {
	var b strings.Builder
	writeTurn(&b, RoleSystem, c.System)
	for _, m := range c.Turns {
		writeTurn(&b, m.Role, m.Content)
	}
	b.WriteString(TurnStart)
	b.WriteString(string(RoleAssistant))
	b.WriteByte('\n')
	return b.String()
}

func writeTurn(b *strings.Builder, role Role, content string) {
	b.WriteString(TurnStart)
	b.WriteString(string(role))
	b.WriteByte('\n')
	b.WriteString(content)
	b.WriteString(TurnEnd)
	b.WriteByte('\n')
}

// EstimateTokens reports a conservative token estimate for the rendered
// conversation: roughly one token per 4 bytes of content for this tokenizer
// family, plus fixed overhead per turn for the markers and role label.
func (c *Conversation) EstimateTokens() int {
	const bytesPerToken = 4
	const turnOverhead = 8
	n := turnOverhead + len(c.System)/bytesPerToken + 1
	for _, m := range c.Turns {
		n += turnOverhead + len(m.Content)/bytesPerToken + 1
	}
	// Open assistant turn.
	n += turnOverhead
	return n
}

// DropOldest removes the oldest turn that is not the most recent user turn
// and reports whether one was removed. The system turn is stored outside
// Turns and is never a candidate.
func (c *Conversation) DropOldest() bool {
	lastUser := -1
	for i := len(c.Turns) - 1; i >= 0; i-- {
		if c.Turns[i].Role == RoleUser {
			lastUser = i
			break
		}
	}
	for i := range c.Turns {
		if i == lastUser {
			continue
		}
		c.Turns = append(c.Turns[:i], c.Turns[i+1:]...)
		return true
	}
	return false
}

// SystemPrompt is the system turn for single-shot correction. The phrasing
// is part of the fine-tune contract.
func SystemPrompt(shell string) string {
	return fmt.Sprintf("You are a shell command corrector for %s. Output only the corrected command.", shell)
}

// AgentSystemPrompt is the system turn used when tool calls are allowed.
func AgentSystemPrompt(shell string) string {
	return fmt.Sprintf("You are a shell command corrector for %s. You can use tools to help determine the correct command. When you have the answer, output only the corrected command.", shell)
}

// ToolCallPayload is the JSON object carried between ToolCallOpen and
// ToolCallClose. The fine-tune emits "arguments"; older checkpoints emitted
// "args". Both are accepted, and "arguments" wins when both are present.
type ToolCallPayload struct {
	Name      string                     `json:"name"`
	Arguments map[string]json.RawMessage `json:"arguments"`
	Args      map[string]json.RawMessage `json:"args"`
}

// ArgumentStrings flattens the preferred argument map to strings. JSON
// strings are unquoted; any other value keeps its raw JSON text.
func (p ToolCallPayload) ArgumentStrings() map[string]string {
	raw := p.Arguments
	if len(raw) == 0 {
		raw = p.Args
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		out[k] = string(v)
	}
	return out
}
