// Package tools maps the closed set of model-requested helper operations to
// concrete local probes: binary resolution, help excerpts, similar-command
// listing, environment lookup, and man-page synopses. Every operation is
// read-only and bounded by a short timeout.
package tools

import (
	"os"
	"runtime"
	"strings"
)

// Shell identifies the user's shell; it selects the per-shell strategy for
// help and completion probes.
type Shell string

const (
	Bash       Shell = "bash"
	Zsh        Shell = "zsh"
	Fish       Shell = "fish"
	PowerShell Shell = "powershell"
	Cmd        Shell = "cmd"
)

// ParseShell maps a shell name to its Shell value. Accepts pwsh and
// cmd.exe aliases; matching is case-insensitive.
func ParseShell(s string) (Shell, bool) {
	switch strings.ToLower(s) {
	case "bash":
		return Bash, true
	case "zsh":
		return Zsh, true
	case "fish":
		return Fish, true
	case "powershell", "pwsh":
		return PowerShell, true
	case "cmd", "cmd.exe":
		return Cmd, true
	}
	return "", false
}

func (s Shell) String() string { return string(s) }

// IsUnixLike reports whether the shell is bash, zsh or fish.
func (s Shell) IsUnixLike() bool { return s == Bash || s == Zsh || s == Fish }

// IsWindowsNative reports whether the shell is cmd or powershell.
func (s Shell) IsWindowsNative() bool { return s == Cmd || s == PowerShell }

// DetectShell resolves the current shell name from the environment: the
// basename of $SHELL, then a PowerShell marker, then a platform fallback.
// The returned name may be a shell outside the Shell set (e.g. tcsh); the
// prompt uses it verbatim while tooling falls back to bash semantics.
func DetectShell() string {
	if p := os.Getenv("SHELL"); p != "" {
		if idx := strings.LastIndexByte(p, '/'); idx >= 0 {
			return p[idx+1:]
		}
		return p
	}
	if _, ok := os.LookupEnv("PSModulePath"); ok {
		return "powershell"
	}
	if runtime.GOOS == "windows" {
		return "cmd"
	}
	return "bash"
}
