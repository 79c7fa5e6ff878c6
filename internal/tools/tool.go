package tools

// Tool is one of the closed set of operations the model may request. The
// set is fixed at compile time; unknown names never construct a Tool and
// are handled by the executor's fallback arm.
type Tool interface {
	// Name is the wire name the model uses to request the tool.
	Name() string
	isTool()
}

// HelpOutput fetches a short help/usage excerpt for a command.
type HelpOutput struct{ Command string }

// WhichBinary resolves whether a binary exists on the search path.
type WhichBinary struct{ Command string }

// ListSimilar lists installed commands sharing a name prefix.
type ListSimilar struct{ Prefix string }

// GetEnvVar reads one environment variable.
type GetEnvVar struct{ VarName string }

// ManPage fetches a brief man-page description or synopsis.
type ManPage struct{ Command string }

func (HelpOutput) Name() string  { return "help_output" }
func (WhichBinary) Name() string { return "which_binary" }
func (ListSimilar) Name() string { return "list_similar" }
func (GetEnvVar) Name() string   { return "get_env_var" }
func (ManPage) Name() string     { return "man_page" }

func (HelpOutput) isTool()  {}
func (WhichBinary) isTool() {}
func (ListSimilar) isTool() {}
func (GetEnvVar) isTool()   {}
func (ManPage) isTool()     {}

// FromCall builds the Tool for a parsed tool call. It returns false for
// unknown names and for calls missing their required argument; the caller
// turns that into a recoverable tool result rather than an error.
func FromCall(name string, args map[string]string) (Tool, bool) {
	switch name {
	case "help_output":
		if c, ok := args["command"]; ok {
			return HelpOutput{Command: c}, true
		}
	case "which_binary":
		if c, ok := args["command"]; ok {
			return WhichBinary{Command: c}, true
		}
	case "list_similar":
		if p, ok := args["prefix"]; ok {
			return ListSimilar{Prefix: p}, true
		}
	case "get_env_var":
		if n, ok := args["name"]; ok {
			return GetEnvVar{VarName: n}, true
		}
	case "man_page":
		if c, ok := args["command"]; ok {
			return ManPage{Command: c}, true
		}
	}
	return nil, false
}

// Result is the outcome of executing one tool.
type Result struct {
	OK     bool
	Output string
	Err    string
}

// Success wraps tool output.
func Success(output string) Result { return Result{OK: true, Output: output} }

// Failure wraps a tool error message.
func Failure(err string) Result { return Result{OK: false, Err: err} }
