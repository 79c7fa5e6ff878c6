// Package parse classifies raw model output. Generated text is treated as
// potentially malformed: a broken tool call is downgraded to a final answer
// over the cleaned text rather than failing the correction request.
package parse

import (
	"encoding/json"
	"strings"

	"github.com/animeshkundu/fix/pkg/chatml"
)

// Kind discriminates a Response.
type Kind int

const (
	// KindFinalAnswer carries the corrected command text.
	KindFinalAnswer Kind = iota
	// KindToolCall carries a tool name and its arguments.
	KindToolCall
)

// Response is the classification of one generation.
type Response struct {
	Kind      Kind
	Name      string
	Arguments map[string]string
	Text      string
}

// ParseResponse classifies raw generated text: a well-formed
// <tool_call>{...}</tool_call> wins, then an <answer>...</answer> block,
// otherwise the cleaned text itself is the final answer.
func ParseResponse(output string) Response {
	trimmed := strings.TrimSpace(output)

	if r, ok := extractToolCall(trimmed); ok {
		return r
	}
	if answer, ok := extractAnswer(trimmed); ok {
		return Response{Kind: KindFinalAnswer, Text: answer}
	}
	return Response{Kind: KindFinalAnswer, Text: Clean(trimmed)}
}

func extractToolCall(output string) (Response, bool) {
	start := strings.Index(output, chatml.ToolCallOpen)
	if start < 0 {
		return Response{}, false
	}
	end := strings.Index(output, chatml.ToolCallClose)
	if end < 0 || end <= start {
		return Response{}, false
	}

	body := strings.TrimSpace(output[start+len(chatml.ToolCallOpen) : end])
	var payload chatml.ToolCallPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil || payload.Name == "" {
		return Response{}, false
	}
	return Response{
		Kind:      KindToolCall,
		Name:      payload.Name,
		Arguments: payload.ArgumentStrings(),
	}, true
}

func extractAnswer(output string) (string, bool) {
	start := strings.Index(output, chatml.AnswerOpen)
	if start < 0 {
		return "", false
	}
	end := strings.Index(output, chatml.AnswerClose)
	if end < 0 || end <= start {
		return "", false
	}
	body := strings.TrimSpace(output[start+len(chatml.AnswerOpen) : end])
	return Clean(body), true
}

// artifactPrefixes are echoes of the training data occasionally emitted
// ahead of the actual command.
var artifactPrefixes = []string{
	"command >",
	"command>",
	"command 2>&1",
	"Command:",
	"Output:",
	">>>",
}

// Clean strips generation artifacts: trailing turn markers, a reasoning
// block (text after the block is preferred, the text before is kept when
// nothing follows), known prefixes, and everything past the first line.
func Clean(output string) string {
	result := strings.TrimSpace(output)

	if idx := strings.Index(result, chatml.TurnEnd); idx >= 0 {
		result = strings.TrimSpace(result[:idx])
	}
	if idx := strings.Index(result, chatml.TurnStart); idx >= 0 {
		result = strings.TrimSpace(result[:idx])
	}

	if start := strings.Index(result, chatml.ThinkOpen); start >= 0 {
		if end := strings.Index(result, chatml.ThinkClose); end >= start {
			before := result[:start]
			after := result[end+len(chatml.ThinkClose):]
			if strings.TrimSpace(after) == "" {
				result = strings.TrimSpace(before)
			} else {
				result = strings.TrimSpace(after)
			}
		}
	}

	for _, prefix := range artifactPrefixes {
		if rest, ok := strings.CutPrefix(result, prefix); ok {
			result = strings.TrimSpace(rest)
		}
	}

	if idx := strings.IndexByte(result, '\n'); idx >= 0 {
		result = strings.TrimSpace(result[:idx])
	}
	return result
}
