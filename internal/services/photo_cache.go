package services

import (
	"os"
	"path/filepath"
	"strings"
)

// PhotoCache is the local cache store: one <key>.jpg file per entry under a
// single directory. Entries are written opportunistically and never
// invalidated or expired; a stale profile photo is accepted.
type PhotoCache struct {
	dir string
}

// NewPhotoCache creates the cache directory if needed.
func NewPhotoCache(dir string) (*PhotoCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &PhotoCache{dir: dir}, nil
}

func (c *PhotoCache) path(key string) string {
	// Keys are user ids or uuids; strip separators so a key can never
	// escape the cache directory.
	key = strings.ReplaceAll(key, string(os.PathSeparator), "_")
	return filepath.Join(c.dir, key+".jpg")
}

// Write stores data under key, replacing any previous entry.
func (c *PhotoCache) Write(key string, data []byte) error {
	return os.WriteFile(c.path(key), data, 0o644)
}

// Read returns the cached bytes for key and whether the entry exists.
func (c *PhotoCache) Read(key string) ([]byte, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}
