// Package race evaluates ordered lists of candidate probes and selects
// the lowest-indexed interesting one. The sequential executor probes one
// candidate at a time; the pool executor probes many concurrently while
// preserving the same winner the sequential executor would pick.
package race

import (
	"context"

	"github.com/rhodovan/picire/internal/cache"
	"github.com/rhodovan/picire/internal/dd"
)

// Sequential evaluates probes strictly in candidate order and stops at
// the first interesting verdict.
type Sequential struct {
	tester dd.Tester
	cache  cache.Cache
	stats  *Counters
}

// NewSequential creates a sequential executor. cache and stats may be
// nil.
func NewSequential(tester dd.Tester, c cache.Cache, stats *Counters) *Sequential {
	if c == nil {
		c = cache.Nop{}
	}
	if stats == nil {
		stats = NewCounters()
	}
	return &Sequential{tester: tester, cache: c, stats: stats}
}

func (s *Sequential) Race(ctx context.Context, probes []dd.Probe) (int, error) {
	for i, p := range probes {
		if err := ctx.Err(); err != nil {
			return -1, err
		}
		s.stats.addProbe(ctx)
		if out, ok := s.cache.Lookup(p.Config); ok {
			s.stats.addCacheHit(ctx)
			if out == dd.Interesting {
				return i, nil
			}
			continue
		}
		s.stats.addOracleRun(ctx)
		out := s.tester.Test(ctx, p.Config, p.Path)
		if out == dd.Cancelled {
			if err := ctx.Err(); err != nil {
				return -1, err
			}
			s.stats.addCancelled(ctx)
			continue
		}
		s.cache.Insert(p.Config, out)
		if out == dd.Interesting {
			return i, nil
		}
	}
	return -1, nil
}
