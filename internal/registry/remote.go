// Package registry locates model weights on disk and acquires them from the
// remote catalog. Downloads land in the per-user config directory and are
// written through a temp file so an interrupted transfer never leaves a
// half-written model behind.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Hugging Face endpoint serving the catalog.
	DefaultBaseURL = "https://huggingface.co"
	// Repo is the repository holding the correction models.
	Repo = "animeshkundu/cmd-correct"

	// EnvBaseURL overrides the catalog endpoint, e.g. for a mirror.
	EnvBaseURL = "FIX_HF_BASE_URL"

	listTimeout     = 30 * time.Second
	downloadTimeout = time.Hour
	copyBufSize     = 8 * 1024
)

const connectFailedMsg = "Failed to connect to HuggingFace. Check your internet connection."

// Client talks to the model catalog. BaseURL and Repo are overridable so
// tests can point it at a local server.
type Client struct {
	BaseURL string
	Repo    string

	httpClient *http.Client
}

// NewClient returns a catalog client against the public endpoint, or the
// EnvBaseURL override when set.
func NewClient() *Client {
	base := DefaultBaseURL
	if v := os.Getenv(EnvBaseURL); v != "" {
		base = v
	}
	// Timeout stays 0: List and Download carry their own deadlines.
	return &Client{
		BaseURL:    base,
		Repo:       Repo,
		httpClient: &http.Client{Timeout: 0},
	}
}

type treeEntry struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// List fetches the remote listing and returns the models it offers, in
// listing order. Only .gguf entries count; the extension is stripped from
// names.
func (c *Client) List(ctx context.Context) ([]Spec, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/models/%s/tree/main", strings.TrimRight(c.BaseURL, "/"), c.Repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, ErrNetwork(connectFailedMsg)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ErrNetwork(connectFailedMsg)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, ErrNetwork(fmt.Sprintf("Failed to fetch models: HTTP %d", resp.StatusCode))
	}

	var entries []treeEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, ErrNetwork(connectFailedMsg)
	}
	var models []Spec
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Path, ".gguf")
		if !ok {
			continue
		}
		models = append(models, Spec{
			Name:      name,
			Remote:    e.Path,
			Filename:  ModelFileName(name),
			SizeBytes: e.Size,
		})
	}
	logDebug().Int("models", len(models)).Str("repo", c.Repo).Msg("catalog listed")
	return models, nil
}

// Download fetches the spec's artifact into destDir and returns the final
// path. The transfer goes through a .tmp neighbor and is renamed only once
// complete, so a crash or disconnect cannot leave a truncated model in
// place. progress may be nil; total is -1 when the server does not announce
// a length.
func (c *Client) Download(ctx context.Context, spec Spec, destDir string, progress func(done, total int64)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/resolve/main/%s", strings.TrimRight(c.BaseURL, "/"), c.Repo, spec.Remote)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", ErrNetwork(connectFailedMsg)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", ErrNetwork(connectFailedMsg)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", ErrNetwork(fmt.Sprintf("Download failed: HTTP %d", resp.StatusCode))
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", ErrDiskWrite(err)
	}
	dest := filepath.Join(destDir, spec.Filename)
	tmp := dest + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", ErrDiskWrite(err)
	}

	total := resp.ContentLength
	logDebug().Str("model", spec.Name).Int64("bytes", total).Msg("download started")

	buf := make([]byte, copyBufSize)
	var done int64
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				f.Close()
				os.Remove(tmp)
				return "", ErrDiskWrite(werr)
			}
			done += int64(n)
			if progress != nil {
				progress(done, total)
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				break
			}
			f.Close()
			os.Remove(tmp)
			return "", ErrNetwork(connectFailedMsg)
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", ErrDiskWrite(err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", ErrDiskWrite(err)
	}
	logDebug().Str("model", spec.Name).Str("path", dest).Int64("bytes", done).Msg("download complete")
	return dest, nil
}
