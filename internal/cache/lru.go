package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rhodovan/picire/internal/dd"
)

// lruStore bounds the verdict table with LRU eviction. Evicting an entry
// only costs a repeated oracle call, so correctness is unaffected.
type lruStore struct {
	bound int
	c     *lru.Cache[string, dd.Outcome]
}

func newStore(size int) store {
	if size <= 0 {
		return newMapStore()
	}
	c, err := lru.New[string, dd.Outcome](size)
	if err != nil {
		// Only reachable with a non-positive size, which is handled above.
		return newMapStore()
	}
	return &lruStore{bound: size, c: c}
}

func (s *lruStore) get(key string) (dd.Outcome, bool) {
	return s.c.Get(key)
}

func (s *lruStore) add(key string, outcome dd.Outcome) dd.Outcome {
	prev, ok, _ := s.c.PeekOrAdd(key, outcome)
	if ok {
		return prev
	}
	return outcome
}
