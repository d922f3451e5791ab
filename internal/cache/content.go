package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/rhodovan/picire/internal/dd"
)

// ContentCache keys verdicts on a digest of the serialised candidate,
// the same bytes the oracle would see. Distinct unit sets that serialise
// identically share a single entry.
type ContentCache struct {
	mu      sync.RWMutex
	builder func(dd.Config) string
	s       store
}

// NewContent creates a content-keyed cache. builder must produce exactly
// the bytes the oracle adapter writes for a candidate. size > 0 bounds
// the cache with LRU eviction.
func NewContent(builder func(dd.Config) string, size int) *ContentCache {
	return &ContentCache{builder: builder, s: newStore(size)}
}

// SetTestBuilder replaces the serialisation function. All existing
// entries are invalidated: digests under the old builder say nothing
// about candidates under the new one.
func (c *ContentCache) SetTestBuilder(builder func(dd.Config) string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builder = builder
	c.s = newStore(c.size())
}

func (c *ContentCache) key(cfg dd.Config) string {
	sum := sha256.Sum256([]byte(c.builder(cfg)))
	return hex.EncodeToString(sum[:])
}

func (c *ContentCache) Lookup(cfg dd.Config) (dd.Outcome, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s.get(c.key(cfg))
}

func (c *ContentCache) Insert(cfg dd.Config, outcome dd.Outcome) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	insert(c.s, c.key(cfg), outcome)
}

func (c *ContentCache) size() int {
	if ls, ok := c.s.(*lruStore); ok {
		return ls.bound
	}
	return 0
}
