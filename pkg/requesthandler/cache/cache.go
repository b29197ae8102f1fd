package cache

import (
	"github.com/VictoriaMetrics/fastcache"
)

// Cache is a size-bounded cache of serialized responses.
type Cache struct {
	cache *fastcache.Cache
}

// NewCache creates a new Cache that holds at most maxSize bytes.
func NewCache(maxSize int) *Cache {
	return &Cache{
		cache: fastcache.New(maxSize),
	}
}

func (c *Cache) Set(key, value []byte) {
	c.cache.Set(key, value)
}

func (c *Cache) Get(key []byte) []byte {
	if c.cache.Has(key) {
		value := make([]byte, 0)

		return c.cache.Get(value, key)
	}

	return nil
}

func (c *Cache) Reset() {
	c.cache.Reset()
}

// GetOrCreate returns the cached value of the given key or stores the value that is created by the given function.
func (c *Cache) GetOrCreate(key []byte, createValue func() ([]byte, error)) (value []byte, err error) {
	if value = c.Get(key); value != nil {
		return value, nil
	}

	if value, err = createValue(); err != nil {
		return nil, err
	}

	c.Set(key, value)

	return value, nil
}

// Size returns the number of cached entries.
func (c *Cache) Size() uint64 {
	var stats fastcache.Stats
	c.cache.UpdateStats(&stats)

	return stats.EntriesCount
}
