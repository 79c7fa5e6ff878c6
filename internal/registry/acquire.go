package registry

import (
	"context"

	"github.com/animeshkundu/fix/internal/config"
)

// EnsureModel downloads the named model (the configured default when name is
// empty) and returns its path together with the updated configuration. The
// catalog is consulted first so an unknown name fails with the available
// alternatives. The returned configuration carries the new default only
// after the weights are fully on disk; on any error the input configuration
// comes back unchanged.
func EnsureModel(ctx context.Context, c *Client, cfg config.Config, name string, progress func(done, total int64)) (string, config.Config, error) {
	if name == "" {
		name = cfg.DefaultModel
	}

	specs, err := c.Catalog(ctx)
	if err != nil {
		return "", cfg, err
	}
	names := make([]string, 0, len(specs))
	var spec Spec
	found := false
	for _, s := range specs {
		names = append(names, s.Name)
		if s.Name == name {
			spec = s
			found = true
		}
	}
	if !found {
		return "", cfg, ErrNotInCatalog(name, names)
	}

	path, err := c.Download(ctx, spec, config.Dir(), progress)
	if err != nil {
		return "", cfg, err
	}
	cfg.DefaultModel = name
	return path, cfg, nil
}
