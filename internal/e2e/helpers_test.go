package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/animeshkundu/fix/internal/llm"
)

// scriptedSession replays one canned completion per Generate call, recording
// each prompt it was handed.
type scriptedSession struct {
	completions []string
	prompts     []string
}

func (s *scriptedSession) Generate(ctx context.Context, prompt string, onToken func(string) error) (llm.FinalResult, error) {
	s.prompts = append(s.prompts, prompt)
	i := len(s.prompts) - 1
	if i >= len(s.completions) {
		return llm.FinalResult{}, nil
	}
	return llm.FinalResult{Content: s.completions[i], FinishReason: "stop"}, nil
}

func (s *scriptedSession) Close() error { return nil }

type scriptedAdapter struct {
	session *scriptedSession
}

func (a *scriptedAdapter) Start(modelPath string, params llm.Params) (llm.Session, error) {
	return a.session, nil
}

// newScriptedEngine wires canned completions behind a real engine so tests
// exercise the full prompt render, budget, and stop-trimming path.
func newScriptedEngine(completions ...string) (*llm.Engine, *scriptedSession) {
	session := &scriptedSession{completions: completions}
	params := llm.DefaultParams()
	params.Stop = []string{"<|im_end|>", "<|im_start|>"}
	return llm.NewEngineWith(&scriptedAdapter{session: session}, "/models/scripted.gguf", params), session
}

type hubModel struct {
	name string
	data []byte
}

// newFakeHub serves the two endpoints the registry client uses: the repo
// tree listing and per-file resolve downloads.
func newFakeHub(t *testing.T, models ...hubModel) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/api/models/{owner}/{repo}/tree/{rev}", func(w http.ResponseWriter, req *http.Request) {
		entries := []map[string]any{
			{"path": "README.md", "size": 120},
		}
		for _, m := range models {
			entries = append(entries, map[string]any{"path": m.name + ".gguf", "size": len(m.data)})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entries)
	})
	r.Get("/{owner}/{repo}/resolve/{rev}/{file}", func(w http.ResponseWriter, req *http.Request) {
		file := chi.URLParam(req, "file")
		for _, m := range models {
			if m.name+".gguf" == file {
				w.Header().Set("Content-Length", strconv.Itoa(len(m.data)))
				w.Write(m.data)
				return
			}
		}
		http.NotFound(w, req)
	})
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

// isolateConfigDir points the per-user config root at a temp dir and pins
// the working directory so the locator search order stays deterministic.
func isolateConfigDir(t *testing.T) {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, ".config"))
	t.Setenv("AppData", filepath.Join(tmp, "AppData"))
	t.Setenv("FIX_CONFIG", "")

	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(old) })
}
