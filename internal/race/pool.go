package race

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/rhodovan/picire/internal/cache"
	"github.com/rhodovan/picire/internal/dd"
)

// Pool evaluates probes concurrently, at most workers at a time.
//
// The winner is order-deterministic: the returned index is the lowest
// candidate index with an interesting verdict, not the first interesting
// verdict to arrive. When an interesting verdict lands at index w, every
// still-running probe above w is cancelled (it cannot beat w) and the
// race keeps driving probes below w; a lower interesting verdict
// supersedes w under the same rule. Once the winner is settled, late
// verdicts are dropped without touching the cache.
type Pool struct {
	tester  dd.Tester
	cache   cache.Cache
	workers int64
	stats   *Counters
}

// NewPool creates a parallel executor with the given concurrency limit.
// cache and stats may be nil.
func NewPool(tester dd.Tester, c cache.Cache, workers int, stats *Counters) *Pool {
	if c == nil {
		c = cache.Nop{}
	}
	if stats == nil {
		stats = NewCounters()
	}
	if workers < 1 {
		workers = 1
	}
	return &Pool{tester: tester, cache: c, workers: int64(workers), stats: stats}
}

type verdict struct {
	idx int
	out dd.Outcome
}

func (p *Pool) Race(ctx context.Context, probes []dd.Probe) (int, error) {
	if len(probes) == 0 {
		return -1, nil
	}

	rctx, stop := context.WithCancel(ctx)
	defer stop()

	var (
		mu      sync.Mutex
		winner  = -1
		decided bool
		cancels = make([]context.CancelFunc, len(probes))
	)
	// Buffered to the probe count so neither workers nor the dispatcher
	// ever block on publishing; the race can return while cancelled
	// probes are still winding down.
	verdicts := make(chan verdict, len(probes))

	beaten := func(i int) bool {
		mu.Lock()
		defer mu.Unlock()
		return winner != -1 && i > winner
	}

	sem := semaphore.NewWeighted(p.workers)
	go func() {
		for i := range probes {
			if beaten(i) {
				verdicts <- verdict{i, dd.Cancelled}
				continue
			}
			p.stats.addProbe(rctx)
			if out, ok := p.cache.Lookup(probes[i].Config); ok {
				p.stats.addCacheHit(rctx)
				verdicts <- verdict{i, out}
				continue
			}
			if err := sem.Acquire(rctx, 1); err != nil {
				verdicts <- verdict{i, dd.Cancelled}
				continue
			}
			mu.Lock()
			if winner != -1 && i > winner {
				mu.Unlock()
				sem.Release(1)
				verdicts <- verdict{i, dd.Cancelled}
				continue
			}
			pctx, cancel := context.WithCancel(rctx)
			cancels[i] = cancel
			mu.Unlock()

			go func(i int) {
				defer sem.Release(1)
				p.stats.addOracleRun(pctx)
				out := p.tester.Test(pctx, probes[i].Config, probes[i].Path)
				mu.Lock()
				if out != dd.Cancelled && !decided {
					p.cache.Insert(probes[i].Config, out)
				}
				mu.Unlock()
				verdicts <- verdict{i, out}
			}(i)
		}
	}()

	resolved := make([]bool, len(probes))
	for pending := len(probes); pending > 0; {
		select {
		case <-ctx.Done():
			mu.Lock()
			decided = true
			mu.Unlock()
			return -1, ctx.Err()
		case v := <-verdicts:
			pending--
			resolved[v.idx] = true
			switch v.out {
			case dd.Cancelled:
				p.stats.addCancelled(ctx)
			case dd.Interesting:
				mu.Lock()
				if winner == -1 || v.idx < winner {
					winner = v.idx
					for j := winner + 1; j < len(probes); j++ {
						if cancels[j] != nil {
							cancels[j]()
						}
					}
				}
				mu.Unlock()
			}
		}

		// The race is settled once every probe below the current winner
		// has resolved: none of them can produce a lower winner anymore.
		mu.Lock()
		w := winner
		mu.Unlock()
		if w != -1 {
			settled := true
			for j := 0; j < w; j++ {
				if !resolved[j] {
					settled = false
					break
				}
			}
			if settled {
				mu.Lock()
				decided = true
				mu.Unlock()
				return w, nil
			}
		}
	}

	mu.Lock()
	decided = true
	w := winner
	mu.Unlock()
	return w, nil
}
