package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/animeshkundu/fix/internal/config"
)

// cacheFile is the discovery record under the config directory.
const cacheFile = "tools_cache.json"

// CacheTTL is how long a scan stays fresh.
const CacheTTL = 24 * time.Hour

// ToolInfo describes one discovered executable.
type ToolInfo struct {
	Path string `json:"path"`
	Desc string `json:"desc"`
}

// Cache is the persisted discovery result.
type Cache struct {
	LastUpdated string              `json:"last_updated"`
	Tools       map[string]ToolInfo `json:"tools"`
}

// NewCache returns an empty cache stamped now.
func NewCache() *Cache {
	return &Cache{
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
		Tools:       make(map[string]ToolInfo),
	}
}

// Age returns how old the cache is. A malformed timestamp is an error so
// callers treat the cache as stale.
func (c *Cache) Age() (time.Duration, error) {
	at, err := time.Parse(time.RFC3339, c.LastUpdated)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp: %w", err)
	}
	age := time.Since(at)
	if age < 0 {
		age = 0
	}
	return age, nil
}

// NeedsRefresh reports whether the cache is past its TTL or unreadable.
func (c *Cache) NeedsRefresh() bool {
	age, err := c.Age()
	if err != nil {
		return true
	}
	return age >= CacheTTL
}

// UpdateTimestamp stamps the cache with the current time.
func (c *Cache) UpdateTimestamp() {
	c.LastUpdated = time.Now().UTC().Format(time.RFC3339)
}

// CachePath returns the discovery record location.
func CachePath() string {
	return filepath.Join(config.Dir(), cacheFile)
}

// LoadCache reads the discovery record from disk.
func LoadCache() (*Cache, error) {
	b, err := os.ReadFile(CachePath())
	if err != nil {
		return nil, fmt.Errorf("read tools cache: %w", err)
	}
	var c Cache
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse tools cache: %w", err)
	}
	if c.Tools == nil {
		c.Tools = make(map[string]ToolInfo)
	}
	return &c, nil
}

// SaveCache writes the discovery record, creating the config directory if
// needed.
func SaveCache(c *Cache) error {
	dir := config.Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize tools cache: %w", err)
	}
	if err := os.WriteFile(CachePath(), b, 0o644); err != nil {
		return fmt.Errorf("write tools cache: %w", err)
	}
	return nil
}

// LoadOrCreate returns the on-disk cache, or a fresh empty one when there is
// nothing usable on disk.
func LoadOrCreate() *Cache {
	c, err := LoadCache()
	if err != nil {
		return NewCache()
	}
	return c
}

// RefreshBackground rescans PATH and rewrites the cache off the hot path.
// The returned channel closes when the refresh is done.
func RefreshBackground(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		cache := Discover(ctx)
		if err := SaveCache(cache); err != nil {
			logWarn().Err(err).Msg("background tool discovery: cache not saved")
			return
		}
		logDebug().Int("tools", len(cache.Tools)).Msg("background tool discovery refreshed")
	}()
	return done
}
