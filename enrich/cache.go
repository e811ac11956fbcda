package enrich

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"C90FM/logger"
)

// Entry is a resolved metadata record, keyed in the cache by the
// normalized form of the track title it was resolved for.
type Entry struct {
	Artist    string `json:"artist"`
	CoverURL  string `json:"coverUrl"`
	Timestamp int64  `json:"timestamp"`
}

// Cache is the on-disk metadata cache. Entries are append-only and
// overwrite-by-key; nothing is ever evicted, so size is bounded by library
// size. Every write persists the whole file; a failed write is logged and
// the in-memory state stays authoritative for the rest of the process.
type Cache struct {
	mu      sync.RWMutex
	path    string
	entries map[string]Entry
}

// LoadCache reads the cache file at path, treating a missing or corrupt
// file as empty.
func LoadCache(path string) *Cache {
	c := &Cache{path: path, entries: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read metadata cache", logger.String("path", path), logger.ErrorField(err))
		}
		return c
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		logger.Warn("corrupt metadata cache, starting empty", logger.String("path", path), logger.ErrorField(err))
		c.entries = make(map[string]Entry)
	}
	return c
}

// Has reports whether a cache entry exists for the given raw title.
func (c *Cache) Has(rawTitle string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[NormalizeTitle(rawTitle)]
	return ok
}

// Get returns the entry for the given raw title, if any.
func (c *Cache) Get(rawTitle string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[NormalizeTitle(rawTitle)]
	return entry, ok
}

// Put upserts an entry under the normalized title and persists the cache.
// Last writer to a key wins.
func (c *Cache) Put(rawTitle, artist, coverURL string) {
	key := NormalizeTitle(rawTitle)
	if key == "" {
		return
	}

	c.mu.Lock()
	c.entries[key] = Entry{
		Artist:    artist,
		CoverURL:  coverURL,
		Timestamp: time.Now().Unix(),
	}
	c.persistLocked()
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) persistLocked() {
	if c.path == "" {
		return
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		logger.Error("failed to marshal metadata cache", logger.ErrorField(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		logger.Warn("failed to create cache directory", logger.ErrorField(err))
		return
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		logger.Warn("failed to persist metadata cache", logger.String("path", c.path), logger.ErrorField(err))
	}
}
