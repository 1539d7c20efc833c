package momoscript

import (
	"context"
	"sync"
	"time"
)

// CachedStorage wraps any PackStorage with an in-memory cache of Get
// results, including "not found" results for a shorter TTL.
type CachedStorage struct {
	storage PackStorage
	config  CacheConfig

	mu     sync.Mutex
	cache  map[string]*cacheEntry
	closed bool
}

// CacheConfig configures the caching behavior.
type CacheConfig struct {
	// TTL is how long cached packs remain valid.
	// Default: 5 minutes.
	TTL time.Duration

	// MaxEntries is the maximum number of cached packs.
	// When exceeded, the least recently used entry is evicted.
	// Default: 100.
	MaxEntries int

	// NegativeCacheTTL is how long to cache "not found" results.
	// Set to 0 to disable negative caching.
	// Default: 30 seconds.
	NegativeCacheTTL time.Duration
}

// DefaultCacheConfig returns the default caching configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:              CacheDefaultTTL,
		MaxEntries:       CacheDefaultMaxEntries,
		NegativeCacheTTL: CacheDefaultNegativeCacheTTL,
	}
}

type cacheEntry struct {
	pack       *StoredPack
	err        error
	cachedAt   time.Time
	accessedAt time.Time
	key        string
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Entries         int
	ValidEntries    int
	NegativeEntries int
}

// NewCachedStorage wraps a storage with caching.
func NewCachedStorage(storage PackStorage, config CacheConfig) *CachedStorage {
	if config.TTL == 0 {
		config.TTL = CacheDefaultTTL
	}
	if config.MaxEntries == 0 {
		config.MaxEntries = CacheDefaultMaxEntries
	}

	return &CachedStorage{
		storage: storage,
		config:  config,
		cache:   make(map[string]*cacheEntry),
	}
}

// Get retrieves a pack, using the cache when available.
func (s *CachedStorage) Get(ctx context.Context, name string) (*StoredPack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, NewStorageClosedError()
	}
	if entry, ok := s.cache[name]; ok && s.isValid(entry) {
		entry.accessedAt = time.Now()
		pack, err := copyStoredPack(entry.pack), entry.err
		s.mu.Unlock()
		return pack, err
	}
	s.mu.Unlock()

	pack, err := s.storage.Get(ctx, name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}
	if err != nil {
		if s.config.NegativeCacheTTL > 0 && IsPackNotFound(err) {
			s.addEntry(name, nil, err)
		}
		return nil, err
	}

	s.addEntry(name, pack, nil)
	return copyStoredPack(pack), nil
}

// Save stores a pack and invalidates its cache entry.
func (s *CachedStorage) Save(ctx context.Context, pack *StoredPack) error {
	if err := s.storage.Save(ctx, pack); err != nil {
		return err
	}
	s.Invalidate(pack.Name)
	return nil
}

// Delete removes a pack and invalidates its cache entry.
func (s *CachedStorage) Delete(ctx context.Context, name string) error {
	if err := s.storage.Delete(ctx, name); err != nil {
		return err
	}
	s.Invalidate(name)
	return nil
}

// List returns packs matching the query (bypasses cache).
func (s *CachedStorage) List(ctx context.Context, query *PackQuery) ([]*StoredPack, error) {
	return s.storage.List(ctx, query)
}

// Exists checks if a pack exists, answering from the cache when possible.
func (s *CachedStorage) Exists(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, NewStorageClosedError()
	}
	if entry, ok := s.cache[name]; ok && s.isValid(entry) {
		s.mu.Unlock()
		return entry.err == nil, nil
	}
	s.mu.Unlock()

	return s.storage.Exists(ctx, name)
}

// Close clears the cache and closes the underlying storage.
func (s *CachedStorage) Close() error {
	s.mu.Lock()
	s.closed = true
	s.cache = nil
	s.mu.Unlock()

	return s.storage.Close()
}

// Invalidate removes a pack from the cache.
func (s *CachedStorage) Invalidate(name string) {
	s.mu.Lock()
	delete(s.cache, name)
	s.mu.Unlock()
}

// InvalidateAll clears the entire cache.
func (s *CachedStorage) InvalidateAll() {
	s.mu.Lock()
	s.cache = make(map[string]*cacheEntry)
	s.mu.Unlock()
}

// Stats returns cache statistics.
func (s *CachedStorage) Stats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := CacheStats{Entries: len(s.cache)}
	for _, entry := range s.cache {
		if !s.isValid(entry) {
			continue
		}
		if entry.err != nil {
			stats.NegativeEntries++
		} else {
			stats.ValidEntries++
		}
	}
	return stats
}

func (s *CachedStorage) isValid(entry *cacheEntry) bool {
	ttl := s.config.TTL
	if entry.err != nil {
		ttl = s.config.NegativeCacheTTL
	}
	return time.Since(entry.cachedAt) < ttl
}

// addEntry caches a result, evicting the least recently used entry when
// full. Caller must hold the lock.
func (s *CachedStorage) addEntry(name string, pack *StoredPack, err error) {
	if _, exists := s.cache[name]; !exists && len(s.cache) >= s.config.MaxEntries {
		s.evictOldest()
	}

	now := time.Now()
	s.cache[name] = &cacheEntry{
		pack:       copyStoredPack(pack),
		err:        err,
		cachedAt:   now,
		accessedAt: now,
		key:        name,
	}
}

func (s *CachedStorage) evictOldest() {
	var oldest *cacheEntry
	for _, entry := range s.cache {
		if oldest == nil || entry.accessedAt.Before(oldest.accessedAt) {
			oldest = entry
		}
	}
	if oldest != nil {
		delete(s.cache, oldest.key)
	}
}
