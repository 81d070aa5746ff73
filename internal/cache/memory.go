package cache

import (
	"strconv"
	"sync"
	"time"

	"github.com/crossplane/function-crd-record/pkg/descriptor"
	"github.com/crossplane/function-crd-record/pkg/interfaces"
	"github.com/crossplane/function-crd-record/pkg/schema"
)

type cachedSchema struct {
	schema    *schema.Schema
	timestamp time.Time
}

// MemoryCache keeps generated schemas in memory for a bounded time. Schemas
// are immutable, so a cached schema is shared between callers.
type MemoryCache struct {
	cache map[string]*cachedSchema
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
}

var (
	_ interfaces.CacheProvider  = &MemoryCache{}
	_ interfaces.SchemaProvider = &MemoryCache{}
)

// NewMemoryCache creates a new memory-based cache. A zero TTL disables
// caching.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: make(map[string]*cachedSchema),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get retrieves a cached schema if not expired
func (m *MemoryCache) Get(key string) (*schema.Schema, bool) {
	m.mu.RLock()
	cached, exists := m.cache[key]
	m.mu.RUnlock()
	if !exists {
		return nil, false
	}

	if m.now().Sub(cached.timestamp) > m.ttl {
		m.mu.Lock()
		if current, ok := m.cache[key]; ok && current == cached {
			delete(m.cache, key)
		}
		m.mu.Unlock()
		return nil, false
	}

	return cached.schema, true
}

// Set stores a schema in cache with timestamp
func (m *MemoryCache) Set(key string, s *schema.Schema) {
	if m.ttl <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache[key] = &cachedSchema{
		schema:    s,
		timestamp: m.now(),
	}
}

// Size returns the current number of cached items
func (m *MemoryCache) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cache)
}

// Clear removes all cached items
func (m *MemoryCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]*cachedSchema)
}

// Schema returns the cached schema of d or builds and caches it. Generation
// is deterministic, so a hit is structurally equal to a rebuild. Malformed
// descriptors are never cached.
func (m *MemoryCache) Schema(d *descriptor.Descriptor, maxDepth int) (*schema.Schema, bool, error) {
	if err := descriptor.Validate(d, maxDepth); err != nil {
		return nil, false, err
	}

	fp, err := descriptor.Fingerprint(d)
	if err != nil {
		return nil, false, err
	}
	key := fp + "/" + strconv.Itoa(maxDepth)

	if s, ok := m.Get(key); ok {
		return s, true, nil
	}

	s, err := schema.Build(d, schema.WithMaxDepth(maxDepth))
	if err != nil {
		return nil, false, err
	}
	m.Set(key, s)
	return s, false, nil
}

// Cleanup removes expired entries from the cache
func (m *MemoryCache) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, cached := range m.cache {
		if now.Sub(cached.timestamp) > m.ttl {
			delete(m.cache, key)
		}
	}
}

// StartCleanupRoutine removes expired entries every interval until stop is
// closed
func (m *MemoryCache) StartCleanupRoutine(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Cleanup()
			case <-stop:
				return
			}
		}
	}()
}
