package cache

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"ai-teaching-be/pkg/vectorstore"
)

// evictOldest makes room in a full go-cache by dropping the entry closest to
// expiry. With a constant TTL that is also the oldest entry.
func evictOldest(c *gocache.Cache, maxSize int) {
	if c.ItemCount() < maxSize {
		return
	}
	c.DeleteExpired()
	for c.ItemCount() >= maxSize {
		oldestKey := ""
		var oldestExp int64
		for key, item := range c.Items() {
			if oldestKey == "" || item.Expiration < oldestExp {
				oldestKey = key
				oldestExp = item.Expiration
			}
		}
		if oldestKey == "" {
			return
		}
		c.Delete(oldestKey)
	}
}

// MemoryRetrievalCache is the single-instance default.
type MemoryRetrievalCache struct {
	cache   *gocache.Cache
	maxSize int
}

var _ RetrievalCache = &MemoryRetrievalCache{}

func NewMemoryRetrievalCache() *MemoryRetrievalCache {
	return NewMemoryRetrievalCacheWithTTL(RetrievalTTL)
}

// NewMemoryRetrievalCacheWithTTL overrides the entry lifetime; expiry is
// checked lazily on Get.
func NewMemoryRetrievalCacheWithTTL(ttl time.Duration) *MemoryRetrievalCache {
	return &MemoryRetrievalCache{
		cache:   gocache.New(ttl, 10*time.Minute),
		maxSize: RetrievalMaxSize,
	}
}

func (m *MemoryRetrievalCache) Get(key RetrievalKey) ([]vectorstore.ScoredDocument, bool) {
	if x, found := m.cache.Get(key.hash()); found {
		return x.([]vectorstore.ScoredDocument), true
	}
	return nil, false
}

func (m *MemoryRetrievalCache) Set(key RetrievalKey, docs []vectorstore.ScoredDocument) {
	evictOldest(m.cache, m.maxSize)
	m.cache.Set(key.hash(), docs, gocache.DefaultExpiration)
}

func (m *MemoryRetrievalCache) FlushCollection(collectionID string) {
	prefix := collectionID + "|"
	for key := range m.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			m.cache.Delete(key)
		}
	}
}

func (m *MemoryRetrievalCache) Flush() {
	m.cache.Flush()
}

// MemoryEmbeddingCache satisfies embedding.Cache.
type MemoryEmbeddingCache struct {
	cache   *gocache.Cache
	maxSize int
}

func NewMemoryEmbeddingCache() *MemoryEmbeddingCache {
	return &MemoryEmbeddingCache{
		cache:   gocache.New(EmbeddingTTL, 10*time.Minute),
		maxSize: EmbeddingMaxSize,
	}
}

func embeddingKey(text, taskType string) string {
	return taskType + "|" + text
}

func (m *MemoryEmbeddingCache) Get(text, taskType string) ([]float32, bool) {
	if x, found := m.cache.Get(embeddingKey(text, taskType)); found {
		return x.([]float32), true
	}
	return nil, false
}

func (m *MemoryEmbeddingCache) Set(text, taskType string, vector []float32) {
	evictOldest(m.cache, m.maxSize)
	m.cache.Set(embeddingKey(text, taskType), vector, gocache.DefaultExpiration)
}
