package job

import (
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
)

// cacheKey identifies one compiled spec. Mode is part of the key since
// the same jobfile compiles differently per mode.
type cacheKey struct {
	mode Mode
	path string
}

// Cache holds compiled specs keyed by mode and jobfile path. Purely a
// performance knob: a disabled cache re-parses the file on every Load
// with identical results, since Compile is deterministic over immutable
// file contents.
type Cache struct {
	enabled bool

	mu    sync.RWMutex
	specs map[cacheKey]Spec
}

func NewCache(enabled bool) *Cache {
	return &Cache{enabled: enabled, specs: make(map[cacheKey]Spec)}
}

func compileFile(mode Mode, path string) (Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("read jobfile %s: %w", path, err)
	}
	return Compile(mode, string(raw))
}

// Load returns the compiled spec for path, from cache when warmed.
func (c *Cache) Load(mode Mode, path string) (Spec, error) {
	key := cacheKey{mode: mode, path: path}
	if c.enabled {
		c.mu.RLock()
		spec, ok := c.specs[key]
		c.mu.RUnlock()
		if ok {
			return spec, nil
		}
	}
	spec, err := compileFile(mode, path)
	if err != nil {
		return Spec{}, err
	}
	if c.enabled {
		c.mu.Lock()
		c.specs[key] = spec
		c.mu.Unlock()
	}
	return spec, nil
}

// Warm pre-compiles the given jobfiles before dispatch so workers never
// touch the filesystem. A no-op when the cache is disabled.
func (c *Cache) Warm(ctx context.Context, mode Mode, paths ...string) error {
	if !c.enabled {
		return nil
	}
	g, _ := errgroup.WithContext(ctx)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			_, err := c.Load(mode, path)
			return err
		})
	}
	return g.Wait()
}
