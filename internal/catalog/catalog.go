// Package catalog keeps an in-memory copy of the menu for resolving
// operation names into priced cart lines. The menu itself is owned and
// edited elsewhere; this is a read-side cache with an advisory disk copy
// for boot before the first fetch.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/vuen/kiosk/internal/types"
)

const cacheFile = "menu.json"

// Catalog is a name-keyed menu cache. Lookup is case- and
// whitespace-insensitive.
type Catalog struct {
	backend types.Backend
	dataDir string

	mu    sync.RWMutex
	items []types.MenuItem
	index map[string]int
}

var _ types.Catalog = (*Catalog)(nil)

// New creates an empty catalog. Call Refresh (or Restore) before resolving.
func New(backend types.Backend, dataDir string) *Catalog {
	return &Catalog{
		backend: backend,
		dataDir: dataDir,
		index:   make(map[string]int),
	}
}

// Refresh fetches the menu from the backend and replaces the cache. On
// failure the previous contents (or the disk cache) stay in effect.
func (c *Catalog) Refresh(ctx context.Context) error {
	items, err := c.backend.Menu(ctx)
	if err != nil {
		return fmt.Errorf("fetch menu: %w", err)
	}
	c.replace(items)
	c.persist(items)
	return nil
}

// Restore loads the advisory disk cache. Missing cache is not an error.
func (c *Catalog) Restore() error {
	data, err := os.ReadFile(filepath.Join(c.dataDir, cacheFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read menu cache: %w", err)
	}
	var items []types.MenuItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("unmarshal menu cache: %w", err)
	}
	c.replace(items)
	return nil
}

// Resolve returns the catalog entry for a name, if any.
func (c *Catalog) Resolve(name string) (types.MenuItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[types.NormalizeName(name)]
	if !ok {
		return types.MenuItem{}, false
	}
	return c.items[i], true
}

// Len returns the number of cached entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Catalog) replace(items []types.MenuItem) {
	index := make(map[string]int, len(items))
	for i, it := range items {
		index[types.NormalizeName(it.Name)] = i
	}
	c.mu.Lock()
	c.items = items
	c.index = index
	c.mu.Unlock()
}

func (c *Catalog) persist(items []types.MenuItem) {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return
	}
	path := filepath.Join(c.dataDir, cacheFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		slog.Debug("menu cache write failed", "error", err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		slog.Debug("menu cache rename failed", "error", err)
	}
}
