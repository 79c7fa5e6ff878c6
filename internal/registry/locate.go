package registry

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/animeshkundu/fix/internal/common/fsutil"
	"github.com/animeshkundu/fix/internal/config"
)

// ModelFileName returns the on-disk filename for a model name.
func ModelFileName(name string) string { return name + ".gguf" }

// ModelPath returns where acquired weights live for this user.
func ModelPath(name string) string {
	return filepath.Join(config.Dir(), ModelFileName(name))
}

// Locate resolves the weights for the named model. An explicit override
// path must exist as given and never falls through to the search order.
// Otherwise the working directory, the executable's directory, and the
// per-user config directory are tried in that order.
func Locate(override, name string) (string, error) {
	if strings.TrimSpace(override) != "" {
		p, err := fsutil.ExpandHome(override)
		if err != nil {
			p = override
		}
		if fsutil.FileExists(p) {
			return p, nil
		}
		return "", ErrOverrideMissing(override)
	}

	file := ModelFileName(name)
	if wd, err := os.Getwd(); err == nil {
		if p := filepath.Join(wd, file); fsutil.FileExists(p) {
			return p, nil
		}
	}
	if dir, err := fsutil.ExecutableDir(); err == nil {
		if p := filepath.Join(dir, file); fsutil.FileExists(p) {
			return p, nil
		}
	}
	if p := ModelPath(name); fsutil.FileExists(p) {
		return p, nil
	}
	return "", ErrModelNotFound(name)
}
