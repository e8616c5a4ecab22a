package pptxtpl

import (
	"container/list"
	"os"
	"sync"
	"time"
)

// CacheConfig contains configuration options for the source cache.
type CacheConfig struct {
	// MaxSize is the maximum number of template sources to cache. 0 disables caching.
	MaxSize int
	// TTL is the time-to-live for cached sources. 0 means no expiration.
	TTL time.Duration
}

// SourceCache keeps the raw bytes of template files so repeated renders of
// the same template skip the disk read. Rendering mutates a Template in
// place, so the parsed form cannot be shared; the bytes are the widest
// safely-reusable artifact.
type SourceCache struct {
	mu     sync.RWMutex
	cache  map[string]*sourceEntry
	lru    *list.List
	config CacheConfig
}

type sourceEntry struct {
	key     string
	data    []byte
	expiry  time.Time
	element *list.Element
}

// NewSourceCache creates a source cache from the global configuration.
func NewSourceCache() *SourceCache {
	config := GetGlobalConfig()
	return NewSourceCacheWithConfig(CacheConfig{
		MaxSize: config.CacheMaxSize,
		TTL:     config.CacheTTL,
	})
}

// NewSourceCacheWithConfig creates a source cache with the given configuration.
func NewSourceCacheWithConfig(config CacheConfig) *SourceCache {
	return &SourceCache{
		cache:  make(map[string]*sourceEntry),
		lru:    list.New(),
		config: config,
	}
}

// Load returns the file's bytes, from cache when possible.
func (sc *SourceCache) Load(path string) ([]byte, error) {
	if sc.config.MaxSize == 0 {
		return os.ReadFile(path)
	}

	if data, ok := sc.Get(path); ok {
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc.Set(path, data)
	return data, nil
}

// Get retrieves cached bytes without reading the file.
func (sc *SourceCache) Get(key string) ([]byte, bool) {
	sc.mu.RLock()
	entry, exists := sc.cache[key]
	sc.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if sc.config.TTL > 0 && time.Now().After(entry.expiry) {
		sc.Remove(key)
		return nil, false
	}

	sc.mu.Lock()
	sc.lru.MoveToFront(entry.element)
	sc.mu.Unlock()

	return entry.data, true
}

// Set stores bytes in the cache, evicting the least recently used entry
// when full.
func (sc *SourceCache) Set(key string, data []byte) {
	if sc.config.MaxSize == 0 {
		return
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if existing, exists := sc.cache[key]; exists {
		existing.data = data
		if sc.config.TTL > 0 {
			existing.expiry = time.Now().Add(sc.config.TTL)
		}
		sc.lru.MoveToFront(existing.element)
		return
	}

	if sc.lru.Len() >= sc.config.MaxSize {
		oldest := sc.lru.Back()
		if oldest != nil {
			oldEntry := oldest.Value.(*sourceEntry)
			delete(sc.cache, oldEntry.key)
			sc.lru.Remove(oldest)
		}
	}

	expiry := time.Time{}
	if sc.config.TTL > 0 {
		expiry = time.Now().Add(sc.config.TTL)
	}

	entry := &sourceEntry{
		key:    key,
		data:   data,
		expiry: expiry,
	}
	entry.element = sc.lru.PushFront(entry)
	sc.cache[key] = entry
}

// Remove drops one entry from the cache.
func (sc *SourceCache) Remove(key string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	entry, exists := sc.cache[key]
	if !exists {
		return
	}
	delete(sc.cache, key)
	sc.lru.Remove(entry.element)
}

// Clear drops every entry.
func (sc *SourceCache) Clear() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.cache = make(map[string]*sourceEntry)
	sc.lru = list.New()
}

// Size returns the current number of cached sources.
func (sc *SourceCache) Size() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.cache)
}

// defaultCache is a global cache instance for convenience.
var defaultCache = NewSourceCache()
