package registry

import (
	"context"

	"github.com/animeshkundu/fix/internal/config"
)

// Spec describes one model artifact: the name users refer to it by, the
// repo-relative identifier it is fetched under, the filename it is stored
// under locally, and an approximate size for display.
type Spec struct {
	Name      string
	Remote    string
	Filename  string
	SizeBytes int64
}

// SizeMB returns the artifact size in megabytes for display.
func (s Spec) SizeMB() float64 { return float64(s.SizeBytes) / (1024 * 1024) }

// SpecFor builds the spec for a model following the repository's standard
// layout, where the artifact lives at the top level as <name>.gguf.
func SpecFor(name string) Spec {
	return Spec{
		Name:     name,
		Remote:   name + ".gguf",
		Filename: ModelFileName(name),
	}
}

// builtinCatalog seeds the catalog so the shipped default is a known name
// even when the remote listing omits it.
var builtinCatalog = []Spec{
	{
		Name:      config.DefaultModel,
		Remote:    config.DefaultModel + ".gguf",
		Filename:  ModelFileName(config.DefaultModel),
		SizeBytes: 640 << 20,
	},
}

// Catalog returns every known model spec: the remote listing in its own
// order, followed by any seeded entries the listing did not mention. Remote
// entries win on size.
func (c *Client) Catalog(ctx context.Context) ([]Spec, error) {
	listed, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(listed))
	for _, s := range listed {
		seen[s.Name] = true
	}
	specs := listed
	for _, s := range builtinCatalog {
		if !seen[s.Name] {
			specs = append(specs, s)
		}
	}
	return specs, nil
}
