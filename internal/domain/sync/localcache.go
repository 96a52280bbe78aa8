package sync

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"

	"vetrina-server-go/internal/platform/errors"
)

// LocalCache persists the mirror across process restarts. The schema version
// invalidates the whole file at once: any mismatch discards the cache, there
// is no per-field migration.
type LocalCache struct {
	path    string
	version string
}

type cacheFile struct {
	Version string    `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	Mirror  Mirror    `json:"mirror"`
}

func NewLocalCache(path, version string) *LocalCache {
	return &LocalCache{path: path, version: version}
}

// Load returns the cached mirror, or ok=false when the file is missing,
// unreadable or written by a different schema version. A bad cache is never
// an error: the caller falls back to defaults.
func (c *LocalCache) Load() (Mirror, bool) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return Mirror{}, false
	}

	var file cacheFile
	if err := sonic.Unmarshal(raw, &file); err != nil {
		return Mirror{}, false
	}
	if file.Version != c.version {
		return Mirror{}, false
	}
	return file.Mirror, true
}

// Save writes the mirror atomically via a temp file rename.
func (c *LocalCache) Save(mirror Mirror) error {
	const op = "sync.localcache.save"
	raw, err := sonic.Marshal(cacheFile{
		Version: c.version,
		SavedAt: time.Now(),
		Mirror:  mirror,
	})
	if err != nil {
		return errors.Wrap(errors.KindDomain, op, "encode mirror", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return errors.Wrap(errors.KindStorage, op, "create cache dir", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return errors.Wrap(errors.KindStorage, op, "write cache", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return errors.Wrap(errors.KindStorage, op, "replace cache", err)
	}
	return nil
}

// Clear deletes the cache file. Missing files are fine.
func (c *LocalCache) Clear() error {
	err := os.Remove(c.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.KindStorage, "sync.localcache.clear", "remove cache", err)
	}
	return nil
}
