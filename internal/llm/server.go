package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	serverReadyTimeout = 30 * time.Second
	serverPollInterval = 100 * time.Millisecond
	serverStopGrace    = 2 * time.Second
)

// serverAdapter spawns a llama-server binary and proxies generations to its
// OpenAI-compatible HTTP API. One process serves the whole CLI run.
type serverAdapter struct {
	bin        string
	host       string
	httpClient *http.Client

	mu   sync.Mutex
	proc *serverProc
}

type serverProc struct {
	cmd     *exec.Cmd
	baseURL string
	waitErr chan error
	stderr  *bytes.Buffer
}

// NewServerAdapter returns an adapter backed by the llama-server binary at
// bin. The process is started lazily on the first Start call.
func NewServerAdapter(bin string) Adapter {
	// Timeout stays 0: every request carries a context deadline.
	return &serverAdapter{
		bin:        bin,
		host:       "127.0.0.1",
		httpClient: &http.Client{Timeout: 0},
	}
}

// serverSession represents a session against a running llama-server.
type serverSession struct {
	adapter *serverAdapter
	baseURL string
	params  Params
}

func (a *serverAdapter) Start(modelPath string, params Params) (Session, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, ErrModelLoad(modelPath, errors.New("model path is empty"))
	}
	baseURL, err := a.ensureProcess(modelPath, params)
	if err != nil {
		return nil, err
	}
	return &serverSession{adapter: a, baseURL: baseURL, params: params}, nil
}

// openAICompletionRequest is the payload for /v1/completions.
type openAICompletionRequest struct {
	Model       string   `json:"model,omitempty"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float32  `json:"temperature"`
	TopP        float32  `json:"top_p,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Seed        int      `json:"seed,omitempty"`
	Stream      bool     `json:"stream"`
	// Not standard OpenAI; llama.cpp servers accept it and others ignore it.
	RepeatPenalty float32 `json:"repeat_penalty,omitempty"`
}

// openAIStreamChoiceDelta is a minimal subset of the streaming response.
type openAIStreamChoiceDelta struct {
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

type openAIStreamResponse struct {
	Object  string                    `json:"object"`
	Choices []openAIStreamChoiceDelta `json:"choices"`
}

func (s *serverSession) Generate(ctx context.Context, prompt string, onToken func(string) error) (FinalResult, error) {
	payload := openAICompletionRequest{
		Prompt:        prompt,
		MaxTokens:     s.params.MaxTokens,
		Temperature:   s.params.Temperature,
		TopP:          s.params.TopP,
		TopK:          s.params.TopK,
		Stop:          s.params.Stop,
		Seed:          s.params.Seed,
		Stream:        true,
		RepeatPenalty: s.params.RepeatPenalty,
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return FinalResult{}, ErrInference(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.adapter.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return FinalResult{}, ctx.Err()
		}
		return FinalResult{}, ErrInference(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return FinalResult{}, ErrInference(fmt.Errorf("llama server http error: %s: %s", resp.Status, string(b)))
	}

	r := bufio.NewReader(resp.Body)
	var final FinalResult
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			l := strings.TrimSpace(line)
			if l != "" && strings.HasPrefix(strings.ToLower(l), "data:") {
				data := strings.TrimSpace(l[len("data:"):])
				if data == "[DONE]" {
					break
				}
				if cbErr := feedStreamChunk(data, onToken, &final); cbErr != nil {
					return final, cbErr
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				return final, ctx.Err()
			}
			return final, ErrInference(err)
		}
	}
	return final, nil
}

// feedStreamChunk parses one SSE data payload and forwards any token text.
// llama-server emits OpenAI deltas; some builds stream bare objects with a
// top-level content field instead.
func feedStreamChunk(data string, onToken func(string) error, final *FinalResult) error {
	var msg openAIStreamResponse
	if err := json.Unmarshal([]byte(data), &msg); err == nil && len(msg.Choices) > 0 {
		frag := msg.Choices[0].Delta.Content
		if frag == "" {
			frag = msg.Choices[0].Text
		}
		if frag != "" {
			if cbErr := onToken(frag); cbErr != nil {
				return cbErr
			}
		}
		if fr := msg.Choices[0].FinishReason; fr != "" {
			final.FinishReason = fr
		}
		return nil
	}
	var generic map[string]any
	if err := json.Unmarshal([]byte(data), &generic); err == nil {
		if tok, ok := generic["content"].(string); ok && tok != "" {
			return onToken(tok)
		}
	}
	logWarn().Str("line", data).Msg("unknown stream line")
	return nil
}

func (s *serverSession) Close() error { return nil }

// ensureProcess starts (or reuses) the llama-server and waits for readiness.
func (a *serverAdapter) ensureProcess(modelPath string, params Params) (string, error) {
	a.mu.Lock()
	existing := a.proc
	a.mu.Unlock()
	if existing != nil {
		if a.isHealthy(existing.baseURL, time.Second) {
			return existing.baseURL, nil
		}
		a.StopAll()
	}

	port, err := pickFreePort(a.host)
	if err != nil {
		return "", ErrModelLoad(modelPath, err)
	}
	baseURL := fmt.Sprintf("http://%s:%d", a.host, port)

	cmd := exec.Command(a.bin, serverArgs(modelPath, a.host, port, params)...)
	// Capture stderr for diagnostics; the tail is included on failure.
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return "", ErrModelLoad(modelPath, fmt.Errorf("start llama-server: %w", err))
	}
	logDebug().Str("model", modelPath).Int("pid", cmd.Process.Pid).Int("port", port).Msg("llama-server spawned")

	waitErrCh := make(chan error, 1)
	go func() {
		waitErrCh <- cmd.Wait()
	}()

	a.mu.Lock()
	a.proc = &serverProc{cmd: cmd, baseURL: baseURL, waitErr: waitErrCh, stderr: &stderr}
	a.mu.Unlock()

	deadline := time.Now().Add(serverReadyTimeout)
	for {
		if time.Now().After(deadline) {
			a.StopAll()
			return "", ErrModelLoad(modelPath, fmt.Errorf("llama-server not ready in time: %s", baseURL))
		}
		select {
		case werr := <-waitErrCh:
			a.mu.Lock()
			a.proc = nil
			a.mu.Unlock()
			tail := stderr.String()
			if len(tail) > 4096 {
				tail = tail[len(tail)-4096:]
			}
			if werr != nil {
				return "", ErrModelLoad(modelPath, fmt.Errorf("llama-server exited early: %v; stderr tail: %s", werr, tail))
			}
			return "", ErrModelLoad(modelPath, fmt.Errorf("llama-server exited before ready: %s", baseURL))
		default:
		}
		if a.isHealthy(baseURL, time.Second) {
			logDebug().Str("url", baseURL).Msg("llama-server ready")
			return baseURL, nil
		}
		time.Sleep(serverPollInterval)
	}
}

// isHealthy checks if the llama-server at baseURL responds OK to /v1/models.
func (a *serverAdapter) isHealthy(baseURL string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// StopAll terminates the managed llama-server process. Best effort.
func (a *serverAdapter) StopAll() {
	a.mu.Lock()
	p := a.proc
	a.proc = nil
	a.mu.Unlock()
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return
	}
	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-p.waitErr:
	case <-time.After(serverStopGrace):
		_ = p.cmd.Process.Kill()
		select {
		case <-p.waitErr:
		case <-time.After(time.Second):
		}
	}
}

func serverArgs(modelPath, host string, port int, params Params) []string {
	args := []string{
		"-m", modelPath,
		"--host", host,
		"--port", fmt.Sprint(port),
	}
	if params.ContextSize > 0 {
		args = append(args, "-c", fmt.Sprint(params.ContextSize))
	}
	if params.BatchSize > 0 {
		args = append(args, "-b", fmt.Sprint(params.BatchSize))
	}
	if params.GPULayers > 0 {
		args = append(args, "-ngl", fmt.Sprint(params.GPULayers))
	}
	if params.Threads > 0 {
		args = append(args, "-t", fmt.Sprint(params.Threads))
	}
	return args
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", host+":0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	addr := l.Addr().String()
	lastColon := strings.LastIndex(addr, ":")
	if lastColon < 0 {
		return 0, fmt.Errorf("unexpected addr: %s", addr)
	}
	return strconv.Atoi(addr[lastColon+1:])
}
