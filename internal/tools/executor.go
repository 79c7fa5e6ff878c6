package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
)

const (
	// DefaultTimeout bounds each tool subprocess.
	DefaultTimeout = 500 * time.Millisecond
	// DefaultCacheTTL keeps repeated probes within one correction cheap.
	DefaultCacheTTL = 60 * time.Second
	// maxHelpLines caps the help_output excerpt.
	maxHelpLines = 30
	// maxSimilar caps the list_similar result.
	maxSimilar = 20
)

type cacheEntry struct {
	result Result
	at     time.Time
}

// Executor runs tools for one shell, caching results for a short TTL.
type Executor struct {
	shell    Shell
	timeout  time.Duration
	cacheTTL time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewExecutor returns an executor for the given shell with default timeout
// and cache TTL.
func NewExecutor(shell Shell) *Executor {
	return &Executor{
		shell:    shell,
		timeout:  DefaultTimeout,
		cacheTTL: DefaultCacheTTL,
		cache:    make(map[string]cacheEntry),
	}
}

// WithTimeout overrides the per-tool subprocess timeout.
func (e *Executor) WithTimeout(d time.Duration) *Executor {
	e.timeout = d
	return e
}

// WithCacheTTL overrides the result cache TTL.
func (e *Executor) WithCacheTTL(d time.Duration) *Executor {
	e.cacheTTL = d
	return e
}

// Shell returns the executor's shell.
func (e *Executor) Shell() Shell { return e.shell }

// Execute dispatches over the closed tool set. Failures are reported in the
// Result, never as an executor error: the model recovers by reading them.
func (e *Executor) Execute(ctx context.Context, tool Tool) Result {
	if tool == nil {
		return Failure("unknown tool")
	}

	key := fmt.Sprintf("%s:%s:%+v", e.shell, tool.Name(), tool)
	if r, ok := e.cached(key); ok {
		return r
	}

	var res Result
	switch t := tool.(type) {
	case WhichBinary:
		res = e.whichBinary(t.Command)
	case HelpOutput:
		res = e.helpOutput(ctx, t.Command)
	case ListSimilar:
		res = e.listSimilar(ctx, t.Prefix)
	case GetEnvVar:
		res = e.getEnvVar(t.VarName)
	case ManPage:
		res = e.manPage(ctx, t.Command)
	default:
		res = Failure("unknown tool: " + tool.Name())
	}

	e.store(key, res)
	return res
}

// ClearCache drops all cached results.
func (e *Executor) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]cacheEntry)
}

func (e *Executor) cached(key string) (Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.cache[key]
	if !ok || time.Since(entry.at) >= e.cacheTTL {
		return Result{}, false
	}
	return entry.result, true
}

func (e *Executor) store(key string, r Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache[key] = cacheEntry{result: r, at: time.Now()}
}

func (e *Executor) whichBinary(command string) Result {
	path, err := exec.LookPath(command)
	if err != nil || strings.TrimSpace(path) == "" {
		return Failure(fmt.Sprintf("Command '%s' not found", command))
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return Success(path)
}

func (e *Executor) helpOutput(ctx context.Context, command string) Result {
	var out string
	var err error
	switch e.shell {
	case PowerShell:
		out, err = e.runPowerShell(ctx, fmt.Sprintf("Get-Help %s | Select-Object -First %d", command, maxHelpLines))
		if err != nil {
			out, err = e.run(ctx, command, "--help")
		}
	case Cmd:
		out, err = e.run(ctx, command, "/?")
		if err != nil {
			out, err = e.run(ctx, command, "--help")
		}
	default:
		out, err = e.run(ctx, command, "--help")
		if err != nil {
			out, err = e.run(ctx, command, "-h")
		}
	}
	if err != nil {
		return Failure(err.Error())
	}

	lines := strings.Split(out, "\n")
	if len(lines) > maxHelpLines {
		lines = lines[:maxHelpLines]
	}
	return Success(strings.Join(lines, "\n"))
}

func (e *Executor) listSimilar(ctx context.Context, prefix string) Result {
	var out string
	var err error
	switch e.shell {
	case Bash:
		out, err = e.runBash(ctx, "compgen -c "+prefix)
	case Zsh:
		out, err = e.runBash(ctx, "compgen -c "+prefix)
		if err != nil {
			out, err = e.scanPathForPrefix(prefix)
		}
	case Fish:
		out, err = e.run(ctx, "fish", "-c", fmt.Sprintf("complete -C '%s'", prefix))
		if err != nil {
			out, err = e.scanPathForPrefix(prefix)
		}
	case PowerShell:
		out, err = e.runPowerShell(ctx, fmt.Sprintf("Get-Command '%s*' -ErrorAction SilentlyContinue | Select-Object -ExpandProperty Name", prefix))
	default:
		out, err = e.scanPathForPrefix(prefix)
	}
	if err != nil {
		return Failure(err.Error())
	}

	seen := make(map[string]struct{})
	var commands []string
	for _, line := range strings.Split(out, "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		commands = append(commands, name)
	}
	sort.Strings(commands)
	if len(commands) > maxSimilar {
		commands = commands[:maxSimilar]
	}
	return Success(strings.Join(commands, "\n"))
}

func (e *Executor) getEnvVar(name string) Result {
	if v, ok := os.LookupEnv(name); ok {
		return Success(v)
	}
	return Failure(fmt.Sprintf("Environment variable '%s' not set", name))
}

func (e *Executor) manPage(ctx context.Context, command string) Result {
	if runtime.GOOS == "windows" || e.shell.IsWindowsNative() {
		return Failure("man pages not available on this platform")
	}

	if out, err := e.run(ctx, "man", "-f", command); err == nil {
		if synopsis := strings.TrimSpace(out); synopsis != "" {
			return Success(synopsis)
		}
		return Failure(fmt.Sprintf("No man page found for '%s'", command))
	}

	out, err := e.run(ctx, "man", command)
	if err != nil {
		return Failure(err.Error())
	}
	synopsis := extractManSynopsis(out)
	if synopsis == "" {
		return Failure(fmt.Sprintf("No man page found for '%s'", command))
	}
	return Success(synopsis)
}

// run executes one subprocess under the executor timeout, returning stdout.
func (e *Executor) run(ctx context.Context, name string, args ...string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(cctx.Err(), context.DeadlineExceeded) {
		return "", errors.New("command timed out")
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
				msg = msg[:idx]
			}
			return "", fmt.Errorf("%s: %s", name, msg)
		}
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return stdout.String(), nil
}

func (e *Executor) runBash(ctx context.Context, script string) (string, error) {
	return e.run(ctx, "bash", "-c", script)
}

func (e *Executor) runPowerShell(ctx context.Context, script string) (string, error) {
	out, err := e.run(ctx, "pwsh", "-NoProfile", "-Command", script)
	if err != nil {
		return e.run(ctx, "powershell", "-NoProfile", "-Command", script)
	}
	return out, nil
}

// scanPathForPrefix walks PATH for executables whose name starts with
// prefix. Used where no shell-native completion exists.
func (e *Executor) scanPathForPrefix(prefix string) (string, error) {
	path, ok := os.LookupEnv("PATH")
	if !ok {
		return "", errors.New("PATH not set")
	}

	prefixLower := strings.ToLower(prefix)
	var matches []string
	for _, dir := range filepath.SplitList(path) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if !strings.HasPrefix(strings.ToLower(name), prefixLower) {
				continue
			}
			if !isExecutable(filepath.Join(dir, name)) {
				continue
			}
			for _, ext := range []string{".exe", ".cmd", ".bat", ".com"} {
				if trimmed, found := strings.CutSuffix(name, ext); found {
					name = trimmed
					break
				}
			}
			matches = append(matches, name)
		}
	}

	sort.Strings(matches)
	matches = dedupSorted(matches)
	if len(matches) > maxSimilar {
		matches = matches[:maxSimilar]
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("No commands found matching prefix '%s'", prefix)
	}
	return strings.Join(matches, "\n"), nil
}

func dedupSorted(in []string) []string {
	out := in[:0]
	var prev string
	for i, s := range in {
		if i > 0 && s == prev {
			continue
		}
		out = append(out, s)
		prev = s
	}
	return out
}

func isExecutable(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS == "windows" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".exe", ".cmd", ".bat", ".com", ".ps1":
			return true
		}
		return false
	}
	return fi.Mode().Perm()&0o111 != 0
}

// extractManSynopsis pulls the SYNOPSIS section out of a rendered man page,
// capped at 10 lines.
func extractManSynopsis(manOutput string) string {
	inSynopsis := false
	var lines []string
	for _, line := range strings.Split(manOutput, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "SYNOPSIS" || trimmed == "Synopsis" {
			inSynopsis = true
			continue
		}
		if !inSynopsis {
			continue
		}
		if isSectionHeader(trimmed) {
			break
		}
		lines = append(lines, line)
		if len(lines) == 10 {
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func isSectionHeader(trimmed string) bool {
	if trimmed == "" {
		return false
	}
	for _, r := range trimmed {
		if unicode.IsUpper(r) || unicode.IsSpace(r) {
			continue
		}
		return false
	}
	return true
}
