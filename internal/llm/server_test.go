package llm

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newSSEServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, l := range lines {
			fmt.Fprintf(w, "data: %s\n\n", l)
		}
	}))
}

func testServerSession(baseURL string, params Params) *serverSession {
	return &serverSession{
		adapter: &serverAdapter{httpClient: &http.Client{}},
		baseURL: baseURL,
		params:  params,
	}
}

func TestServerSessionStreamsDeltas(t *testing.T) {
	ts := newSSEServer(t,
		`{"object":"text_completion","choices":[{"delta":{"content":"git"}}]}`,
		`{"object":"text_completion","choices":[{"delta":{"content":" status"},"finish_reason":"stop"}]}`,
		`[DONE]`,
	)
	defer ts.Close()

	var got strings.Builder
	s := testServerSession(ts.URL, DefaultParams())
	final, err := s.Generate(context.Background(), "prompt", func(tok string) error {
		got.WriteString(tok)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "git status" {
		t.Errorf("streamed %q, want git status", got.String())
	}
	if final.FinishReason != "stop" {
		t.Errorf("FinishReason = %q, want stop", final.FinishReason)
	}
}

func TestServerSessionTextChoices(t *testing.T) {
	ts := newSSEServer(t,
		`{"choices":[{"text":"docker ps"}]}`,
		`[DONE]`,
	)
	defer ts.Close()

	var got strings.Builder
	s := testServerSession(ts.URL, DefaultParams())
	if _, err := s.Generate(context.Background(), "prompt", func(tok string) error {
		got.WriteString(tok)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if got.String() != "docker ps" {
		t.Errorf("streamed %q, want docker ps", got.String())
	}
}

func TestServerSessionBareContentLines(t *testing.T) {
	ts := newSSEServer(t,
		`{"content":"ls"}`,
		`{"content":" -la"}`,
		`[DONE]`,
	)
	defer ts.Close()

	var got strings.Builder
	s := testServerSession(ts.URL, DefaultParams())
	if _, err := s.Generate(context.Background(), "prompt", func(tok string) error {
		got.WriteString(tok)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if got.String() != "ls -la" {
		t.Errorf("streamed %q, want ls -la", got.String())
	}
}

func TestServerSessionHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model melted", http.StatusInternalServerError)
	}))
	defer ts.Close()

	s := testServerSession(ts.URL, DefaultParams())
	_, err := s.Generate(context.Background(), "prompt", func(string) error { return nil })
	if !IsInference(err) {
		t.Fatalf("err = %v, want inference error", err)
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("err %q should carry the status", err)
	}
}

func TestServerSessionHonorsCancellation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"content\":\"slow\"}\n\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	s := testServerSession(ts.URL, DefaultParams())
	_, err := s.Generate(ctx, "prompt", func(string) error { return nil })
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if !strings.Contains(err.Error(), "deadline") && !IsInference(err) {
		t.Errorf("err = %v, want deadline or inference error", err)
	}
}

func TestServerArgs(t *testing.T) {
	args := serverArgs("/models/m.gguf", "127.0.0.1", 8093, DefaultParams())
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-m /models/m.gguf",
		"--host 127.0.0.1",
		"--port 8093",
		"-c 512",
		"-b 512",
		"-ngl 99",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}

	bare := serverArgs("/m.gguf", "127.0.0.1", 1, Params{})
	if strings.Contains(strings.Join(bare, " "), "-c ") {
		t.Error("zero params should not emit size flags")
	}
}

func TestPickFreePort(t *testing.T) {
	port, err := pickFreePort("127.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	if port <= 0 {
		t.Fatalf("port = %d", port)
	}
	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatalf("picked port not bindable: %v", err)
	}
	l.Close()
}

func TestIsHealthy(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	a := &serverAdapter{httpClient: &http.Client{}}
	if !a.isHealthy(ts.URL, time.Second) {
		t.Error("live server should be healthy")
	}
	ts.Close()
	if a.isHealthy(ts.URL, 200*time.Millisecond) {
		t.Error("closed server should be unhealthy")
	}
}

func TestStopAllWithoutProcess(t *testing.T) {
	a := &serverAdapter{httpClient: &http.Client{}}
	a.StopAll() // must not panic
}
