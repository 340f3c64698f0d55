package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Cache fronts a Source with an in-memory map and an optional directory.
// Concurrent misses for one key share a single fetch.
type Cache struct {
	src Source
	dir string
	log zerolog.Logger
	mu  sync.RWMutex
	mem map[string][]byte
	sf  singleflight.Group
}

// NewCache returns a cache over src. dir may be empty for memory-only caching.
func NewCache(src Source, dir string, log zerolog.Logger) *Cache {
	return &Cache{src: src, dir: dir, log: log, mem: make(map[string][]byte)}
}

func cacheKey(modelID, file string) string { return modelID + "/" + file }

// diskPath maps a model file onto the cache directory, flattening the
// namespace separator so ids never create nested trees.
func (c *Cache) diskPath(modelID, file string) string {
	return filepath.Join(c.dir, "models--"+strings.ReplaceAll(modelID, "/", "--"), file)
}

// Has reports whether the artifact is available without contacting the source.
func (c *Cache) Has(modelID, file string) bool {
	c.mu.RLock()
	_, ok := c.mem[cacheKey(modelID, file)]
	c.mu.RUnlock()
	if ok {
		return true
	}
	if c.dir == "" {
		return false
	}
	_, err := os.Stat(c.diskPath(modelID, file))
	return err == nil
}

// Get returns the artifact bytes. hit is true when no source fetch happened.
// progress is only invoked on a miss, and only for the caller that performs
// the fetch.
func (c *Cache) Get(ctx context.Context, modelID, file string, progress ProgressFunc) (data []byte, hit bool, err error) {
	key := cacheKey(modelID, file)
	c.mu.RLock()
	b, ok := c.mem[key]
	c.mu.RUnlock()
	if ok {
		return b, true, nil
	}
	if c.dir != "" {
		if b, err := os.ReadFile(c.diskPath(modelID, file)); err == nil {
			c.store(key, b)
			return b, true, nil
		}
	}
	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		b, err := c.src.Fetch(ctx, modelID, file, progress)
		if err != nil {
			return nil, err
		}
		c.store(key, b)
		c.persist(modelID, file, b)
		return b, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), false, nil
}

// Forget drops every cached file of a model, in memory and on disk.
func (c *Cache) Forget(modelID string) {
	prefix := modelID + "/"
	c.mu.Lock()
	for k := range c.mem {
		if strings.HasPrefix(k, prefix) {
			delete(c.mem, k)
		}
	}
	c.mu.Unlock()
	if c.dir != "" {
		_ = os.RemoveAll(filepath.Dir(c.diskPath(modelID, "x")))
	}
}

func (c *Cache) store(key string, b []byte) {
	c.mu.Lock()
	c.mem[key] = b
	c.mu.Unlock()
}

// persist writes through to disk via tmp+rename. Failures only cost a future
// refetch, so they are logged and dropped.
func (c *Cache) persist(modelID, file string, b []byte) {
	if c.dir == "" {
		return
	}
	dest := c.diskPath(modelID, file)
	if err := writeAtomic(dest, b); err != nil {
		c.log.Warn().Err(err).Str("model", modelID).Str("file", file).Msg("artifact cache write failed")
	}
}

func writeAtomic(dest string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
