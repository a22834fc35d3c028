package decode

import (
	"sync"

	"github.com/zeebo/blake3"
)

const defaultCacheCapacity = 256

// cacheKey derives the content address of a decode input. Two requests
// with identical destination, value, payload, and chain id render the
// same pending approval, so they share one cached result.
func cacheKey(parts ...string) [32]byte {
	h := blake3.New()
	for _, p := range parts {
		h.WriteString(p)
		h.Write([]byte{0})
	}
	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}

// cache is a bounded insertion-ordered result cache. When full, the
// oldest entry is evicted.
type cache struct {
	mu      sync.Mutex
	entries map[[32]byte]Result
	order   [][32]byte
	cap     int
}

func newCache(capacity int) *cache {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &cache{
		entries: map[[32]byte]Result{},
		cap:     capacity,
	}
}

func (c *cache) get(key [32]byte) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[key]
	return r, ok
}

func (c *cache) put(key [32]byte, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = r
		return
	}
	if len(c.order) >= c.cap {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = r
	c.order = append(c.order, key)
}

func (c *cache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[[32]byte]Result{}
	c.order = nil
}
