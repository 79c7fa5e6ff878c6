package e2e

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/animeshkundu/fix/internal/config"
	"github.com/animeshkundu/fix/internal/registry"
)

// TestAcquireThenLocate walks the first-run flow: no local weights, download
// from the hub, then the locator finds what was just written.
func TestAcquireThenLocate(t *testing.T) {
	isolateConfigDir(t)
	hub := newFakeHub(t, hubModel{name: config.DefaultModel, data: []byte("weights-bytes")})
	client := registry.NewClient()
	client.BaseURL = hub.URL

	if _, err := registry.Locate("", config.DefaultModel); !registry.IsModelNotFound(err) {
		t.Fatalf("fresh machine locate err = %v, want model-not-found", err)
	}

	var calls int
	path, cfg, err := registry.EnsureModel(context.Background(), client, config.Default(), "", func(done, total int64) {
		calls++
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultModel != config.DefaultModel {
		t.Errorf("updated config default = %q", cfg.DefaultModel)
	}
	if calls == 0 {
		t.Error("progress callback never fired")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "weights-bytes" {
		t.Errorf("weights = %q", b)
	}

	got, err := registry.Locate("", config.DefaultModel)
	if err != nil {
		t.Fatal(err)
	}
	if got != path {
		t.Errorf("locate after acquire = %q, want %q", got, path)
	}
}

// TestAcquireUnknownModelLeavesNoTrace asks for a name the hub does not
// carry: the failure must name the alternatives and write nothing.
func TestAcquireUnknownModelLeavesNoTrace(t *testing.T) {
	isolateConfigDir(t)
	hub := newFakeHub(t,
		hubModel{name: "qwen3-correct-0.6B", data: []byte("a")},
		hubModel{name: "qwen3-correct-1.7B", data: []byte("b")},
	)
	client := registry.NewClient()
	client.BaseURL = hub.URL

	_, cfg, err := registry.EnsureModel(context.Background(), client, config.Default(), "qwen3-correct-9000B", nil)
	if !registry.IsNotInCatalog(err) {
		t.Fatalf("err = %v, want not-in-catalog", err)
	}
	if !strings.Contains(err.Error(), "qwen3-correct-0.6B, qwen3-correct-1.7B") {
		t.Errorf("error should list the catalog: %v", err)
	}
	if cfg.DefaultModel != config.DefaultModel {
		t.Errorf("failed acquisition changed config to %q", cfg.DefaultModel)
	}

	for _, pattern := range []string{"*.gguf", "*.tmp", "*.json"} {
		matches, _ := filepath.Glob(filepath.Join(config.Dir(), pattern))
		if len(matches) != 0 {
			t.Errorf("failure left %v behind", matches)
		}
	}
}
