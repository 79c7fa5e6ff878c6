package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/animeshkundu/fix/internal/config"
	"github.com/animeshkundu/fix/internal/discover"
)

func isolateConfigDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("AppData", dir)
	t.Setenv("FIX_CONFIG", "")
}

func TestPrintConfigWithoutCache(t *testing.T) {
	isolateConfigDir(t)

	var out bytes.Buffer
	printConfig(&out, config.Default())

	got := out.String()
	for _, line := range []string{
		"Configuration:",
		"  Default model: " + config.DefaultModel,
		"  Model path: (not downloaded)",
		"  Cache path: ",
		"  Cached tools: (cache not initialized)",
	} {
		if !strings.Contains(got, line) {
			t.Errorf("output missing %q:\n%s", line, got)
		}
	}
	if strings.Contains(got, "Cache age:") {
		t.Errorf("uninitialized cache should not report an age:\n%s", got)
	}
}

func TestPrintConfigWithFreshCache(t *testing.T) {
	isolateConfigDir(t)

	cache := discover.NewCache()
	cache.Tools["git"] = discover.ToolInfo{Path: "/usr/bin/git", Desc: "version control"}
	if err := discover.SaveCache(cache); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	printConfig(&out, config.Default())

	got := out.String()
	for _, line := range []string{
		"  Cached tools: 1",
		"  Cache age: 0 hours",
		"  Cache status: fresh",
	} {
		if !strings.Contains(got, line) {
			t.Errorf("output missing %q:\n%s", line, got)
		}
	}
}

func TestPrintConfigWithStaleCache(t *testing.T) {
	isolateConfigDir(t)

	cache := discover.NewCache()
	cache.LastUpdated = time.Now().UTC().Add(-30 * time.Hour).Format(time.RFC3339)
	if err := discover.SaveCache(cache); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	printConfig(&out, config.Default())

	got := out.String()
	if !strings.Contains(got, "  Cache age: 30 hours") {
		t.Errorf("output missing stale age:\n%s", got)
	}
	if !strings.Contains(got, "  Cache status: stale (needs refresh)") {
		t.Errorf("output missing stale status:\n%s", got)
	}
}
