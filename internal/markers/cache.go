package markers

import (
	"encoding/hex"
	"sort"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// HashContent returns the hex BLAKE2b-256 digest of a file's content.
func HashContent(src []byte) string {
	sum := blake2b.Sum256(src)
	return hex.EncodeToString(sum[:])
}

// Cache keeps the last extraction result per file, keyed by root-relative
// path and validated by content hash.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*FileResult
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*FileResult)}
}

// Get returns the cached result for file when its hash still matches.
func (c *Cache) Get(file, hash string) (*FileResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[file]
	if !ok || r.Hash != hash {
		return nil, false
	}
	return r, true
}

// Put stores a result. Results without a hash are not cached.
func (c *Cache) Put(r *FileResult) {
	if r == nil || r.Hash == "" {
		return
	}
	c.mu.Lock()
	c.entries[r.File] = r
	c.mu.Unlock()
}

// Invalidate drops the entry for one file and reports whether one existed.
func (c *Cache) Invalidate(file string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[file]; !ok {
		return false
	}
	delete(c.entries, file)
	return true
}

// Retain drops every entry whose file is not in keep and returns how many
// entries were removed.
func (c *Cache) Retain(keep []string) int {
	set := make(map[string]struct{}, len(keep))
	for _, f := range keep {
		set[f] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for f := range c.entries {
		if _, ok := set[f]; !ok {
			delete(c.entries, f)
			removed++
		}
	}
	return removed
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*FileResult)
	c.mu.Unlock()
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Files returns the cached file paths in sorted order.
func (c *Cache) Files() []string {
	c.mu.RLock()
	files := make([]string, 0, len(c.entries))
	for f := range c.entries {
		files = append(files, f)
	}
	c.mu.RUnlock()
	sort.Strings(files)
	return files
}
