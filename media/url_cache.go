package media

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// URLCache memoizes public URLs of stored images, keyed by relative path.
// Entries expire after the configured TTL and are dropped when the image is deleted.
type URLCache struct {
	cache *cache.Cache
	build func(relativePath string) string
}

// NewURLCache creates a cache whose misses are filled by build
func NewURLCache(ttl time.Duration, build func(relativePath string) string) *URLCache {
	return &URLCache{
		cache: cache.New(ttl, 2*ttl),
		build: build,
	}
}

// URL returns the public URL for relativePath
func (c *URLCache) URL(relativePath string) string {
	if relativePath == "" {
		return ""
	}
	if v, ok := c.cache.Get(relativePath); ok {
		return v.(string)
	}
	u := c.build(relativePath)
	c.cache.SetDefault(relativePath, u)
	return u
}

// Invalidate drops the cached URL for relativePath
func (c *URLCache) Invalidate(relativePath string) {
	c.cache.Delete(relativePath)
}

// Len reports how many URLs are cached
func (c *URLCache) Len() int {
	return c.cache.ItemCount()
}
