// Package cache memoises oracle verdicts across the whole reduction so
// that a configuration probed once is never handed to the oracle again.
// A single cache instance is shared by all workers; lookups and inserts
// are safe for concurrent callers.
package cache

import (
	"strconv"
	"strings"
	"sync"

	"github.com/rhodovan/picire/internal/dd"
	"github.com/rhodovan/picire/internal/debug"
)

// Cache maps candidate configurations to oracle verdicts. Entries are
// monotonic: once set they are never overwritten, and Cancelled is never
// stored.
type Cache interface {
	// Lookup reports the cached verdict for cfg, if any.
	Lookup(cfg dd.Config) (dd.Outcome, bool)
	// Insert records the verdict for cfg. Inserting the same verdict
	// twice is a no-op; a contradicting verdict is ignored and logged,
	// since it means the oracle violated its determinism contract.
	Insert(cfg dd.Config, outcome dd.Outcome)
}

// Nop is a Cache that remembers nothing.
type Nop struct{}

func (Nop) Lookup(dd.Config) (dd.Outcome, bool) { return 0, false }
func (Nop) Insert(dd.Config, dd.Outcome)        {}

// store is the backing verdict table. add keeps the existing verdict on
// key collision and returns it, so contradiction detection is atomic
// with insertion.
type store interface {
	get(key string) (dd.Outcome, bool)
	add(key string, outcome dd.Outcome) dd.Outcome
}

type mapStore struct {
	mu sync.RWMutex
	m  map[string]dd.Outcome
}

func newMapStore() *mapStore {
	return &mapStore{m: make(map[string]dd.Outcome)}
}

func (s *mapStore) get(key string) (dd.Outcome, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, ok := s.m[key]
	return out, ok
}

func (s *mapStore) add(key string, outcome dd.Outcome) dd.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.m[key]; ok {
		return existing
	}
	s.m[key] = outcome
	return outcome
}

// insert applies the shared insertion contract to a store.
func insert(s store, key string, outcome dd.Outcome) {
	if outcome == dd.Cancelled {
		return
	}
	if kept := s.add(key, outcome); kept != outcome {
		debug.Logf("picire: oracle verdict conflict for %s: keeping %s, ignoring %s\n", key, kept, outcome)
	}
}

// configKey is the sorted tuple of unit identifiers. Configurations
// always preserve input order, so joining in sequence is already sorted.
func configKey(cfg dd.Config) string {
	var b strings.Builder
	for i, u := range cfg {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(u))
	}
	return b.String()
}

// ConfigCache keys verdicts on configuration identity.
type ConfigCache struct {
	s store
}

// NewConfig creates a config-identity keyed cache. size > 0 bounds the
// cache with LRU eviction; otherwise it grows without bound.
func NewConfig(size int) *ConfigCache {
	return &ConfigCache{s: newStore(size)}
}

func (c *ConfigCache) Lookup(cfg dd.Config) (dd.Outcome, bool) {
	return c.s.get(configKey(cfg))
}

func (c *ConfigCache) Insert(cfg dd.Config, outcome dd.Outcome) {
	insert(c.s, configKey(cfg), outcome)
}
