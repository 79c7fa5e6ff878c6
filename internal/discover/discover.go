// Package discover scans PATH for installed CLI tools and caches a short
// description for each, extracted from help or version output. The scan is
// bounded so it stays cheap enough to run in the background of a normal
// correction.
package discover

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	// helpTimeout bounds each description probe.
	helpTimeout = 200 * time.Millisecond
	// maxHelpLines caps how much probe output is considered.
	maxHelpLines = 5
	// maxDescLen rejects lines too long to be a one-line description.
	maxDescLen = 100
	// maxToolsToProcess caps non-priority probes per scan.
	maxToolsToProcess = 50
)

// priorityTools are probed before anything else on PATH.
var priorityTools = []string{
	"git", "docker", "kubectl", "npm", "pip", "python", "node", "cargo", "rustc", "go", "java",
	"mvn", "gradle", "make", "gcc", "clang", "curl", "wget",
}

// ScanPath returns one executable path per tool name found on PATH, first
// directory wins.
func ScanPath() []string {
	pathEnv, ok := os.LookupEnv("PATH")
	if !ok {
		return nil
	}

	seen := make(map[string]struct{})
	var executables []string
	for _, dir := range filepath.SplitList(pathEnv) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			p := filepath.Join(dir, entry.Name())
			if !isExecutable(p) {
				continue
			}
			name := toolName(p)
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			executables = append(executables, p)
		}
	}
	return executables
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

// toolName extracts the tool name from an executable path. Windows
// executable extensions are stripped.
func toolName(path string) string {
	name := filepath.Base(path)
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	if runtime.GOOS == "windows" {
		for _, ext := range []string{".exe", ".cmd", ".bat", ".com", ".ps1"} {
			if trimmed, found := strings.CutSuffix(name, ext); found {
				return trimmed
			}
		}
	}
	return name
}

// ExtractDescription probes the tool for a one-line description, trying
// --help, -h, then --version.
func ExtractDescription(ctx context.Context, toolPath string) (string, bool) {
	for _, flag := range []string{"--help", "-h", "--version"} {
		if desc, ok := extractFromFlag(ctx, toolPath, flag); ok {
			return desc, true
		}
	}
	return "", false
}

func extractFromFlag(ctx context.Context, toolPath, flag string) (string, bool) {
	cctx, cancel := context.WithTimeout(ctx, helpTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, toolPath, flag)
	var out bytes.Buffer
	cmd.Stdout = &out
	// Exit status does not matter; whatever was printed before a timeout
	// or failure is still usable.
	_ = cmd.Run()

	sc := bufio.NewScanner(&out)
	for i := 0; i < maxHelpLines && sc.Scan(); i++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" ||
			strings.HasPrefix(line, "Usage:") ||
			strings.HasPrefix(line, "usage:") ||
			len(line) >= maxDescLen {
			continue
		}
		return line, true
	}
	return "", false
}

// Discover probes PATH and builds a fresh cache: priority tools first, then
// up to maxToolsToProcess others.
func Discover(ctx context.Context) *Cache {
	executables := ScanPath()
	cache := NewCache()

	prioritySet := make(map[string]struct{}, len(priorityTools))
	for _, name := range priorityTools {
		prioritySet[name] = struct{}{}
	}

	for _, p := range executables {
		name := toolName(p)
		if _, ok := prioritySet[name]; !ok {
			continue
		}
		if desc, ok := ExtractDescription(ctx, p); ok {
			cache.Tools[name] = ToolInfo{Path: p, Desc: desc}
		}
	}

	processed := 0
	for _, p := range executables {
		if processed >= maxToolsToProcess {
			break
		}
		name := toolName(p)
		if _, exists := cache.Tools[name]; exists {
			continue
		}
		if desc, ok := ExtractDescription(ctx, p); ok {
			cache.Tools[name] = ToolInfo{Path: p, Desc: desc}
			processed++
		}
	}

	cache.UpdateTimestamp()
	return cache
}
