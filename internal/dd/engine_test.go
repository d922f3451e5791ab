package dd_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhodovan/picire/internal/cache"
	"github.com/rhodovan/picire/internal/dd"
	"github.com/rhodovan/picire/internal/race"
)

// oracle is an in-process deterministic tester that counts its calls.
type oracle struct {
	mu    sync.Mutex
	calls int
	fn    func(cfg dd.Config) dd.Outcome
}

func (o *oracle) Test(ctx context.Context, cfg dd.Config, path string) dd.Outcome {
	o.mu.Lock()
	o.calls++
	o.mu.Unlock()
	if ctx.Err() != nil {
		return dd.Cancelled
	}
	return o.fn(cfg)
}

func (o *oracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

// contains reports whether cfg includes every unit in want.
func contains(cfg dd.Config, want ...int) bool {
	have := make(map[int]bool, len(cfg))
	for _, u := range cfg {
		have[u] = true
	}
	for _, u := range want {
		if !have[u] {
			return false
		}
	}
	return true
}

func universe(n int) dd.Config {
	c := make(dd.Config, n)
	for i := range c {
		c[i] = i
	}
	return c
}

func reduce(t *testing.T, o *oracle, n int, opts ...dd.Option) dd.Config {
	t.Helper()
	engine := dd.New(race.NewSequential(o, cache.NewConfig(0), nil), opts...)
	result, err := engine.Reduce(context.Background(), universe(n))
	require.NoError(t, err)
	return result
}

// The classic Zeller example: eight units, interesting iff units 2 and 5
// are both present. The unique 1-minimal witness is {2, 5}, regardless
// of strategy combination.
func TestReduceClassicZeller(t *testing.T) {
	iterators := map[string]dd.Iterator{"forward": dd.Forward, "backward": dd.Backward}

	for subName, subIt := range iterators {
		for comName, comIt := range iterators {
			for _, combined := range []bool{false, true} {
				for _, complementFirst := range []bool{false, true} {
					name := fmt.Sprintf("sub=%s/com=%s/combined=%v/complementFirst=%v",
						subName, comName, combined, complementFirst)
					t.Run(name, func(t *testing.T) {
						o := &oracle{fn: func(cfg dd.Config) dd.Outcome {
							if contains(cfg, 2, 5) {
								return dd.Interesting
							}
							return dd.Uninteresting
						}}
						result := reduce(t, o, 8,
							dd.WithSubsetIterator(subIt),
							dd.WithComplementIterator(comIt),
							dd.WithCombineLoops(combined),
							dd.WithComplementFirst(complementFirst),
						)
						assert.Equal(t, dd.Config{2, 5}, result)
					})
				}
			}
		}
	}
}

// Multiple valid 1-minima: interesting iff at least three units remain
// and the first is unit 0. Any result must be a true 1-minimum.
func TestReduceAcceptsAnyOneMinimum(t *testing.T) {
	fn := func(cfg dd.Config) dd.Outcome {
		if len(cfg) >= 3 && cfg[0] == 0 {
			return dd.Interesting
		}
		return dd.Uninteresting
	}
	o := &oracle{fn: fn}
	result := reduce(t, o, 8)

	require.Len(t, result, 3)
	assert.Equal(t, 0, result[0])
	assert.Equal(t, dd.Interesting, fn(result), "result must be interesting")
	for i := range result {
		smaller := append(append(dd.Config{}, result[:i]...), result[i+1:]...)
		assert.Equal(t, dd.Uninteresting, fn(smaller),
			"removing unit %d must make the result uninteresting", result[i])
	}
}

// A single-unit input is trivially minimal: only the initial probe runs.
func TestReduceSingleton(t *testing.T) {
	o := &oracle{fn: func(dd.Config) dd.Outcome { return dd.Interesting }}
	result := reduce(t, o, 1)
	assert.Equal(t, dd.Config{0}, result)
	assert.Equal(t, 1, o.Calls())
}

// An always-interesting oracle drives the reduction down to one unit.
func TestReduceAlwaysInteresting(t *testing.T) {
	o := &oracle{fn: func(dd.Config) dd.Outcome { return dd.Interesting }}
	result := reduce(t, o, 3)
	assert.Len(t, result, 1)
}

func TestReduceInitialUninteresting(t *testing.T) {
	o := &oracle{fn: func(dd.Config) dd.Outcome { return dd.Uninteresting }}
	engine := dd.New(race.NewSequential(o, nil, nil))
	_, err := engine.Reduce(context.Background(), universe(4))
	assert.ErrorIs(t, err, dd.ErrInitialUninteresting)
	assert.Equal(t, 1, o.Calls())
}

func TestReduceSubsetSkipStillConverges(t *testing.T) {
	o := &oracle{fn: func(cfg dd.Config) dd.Outcome {
		if contains(cfg, 2, 5) {
			return dd.Interesting
		}
		return dd.Uninteresting
	}}
	result := reduce(t, o, 8, dd.WithSubsetIterator(dd.Skip))
	assert.Equal(t, dd.Config{2, 5}, result)
}

func TestReduceSplitFactorThree(t *testing.T) {
	o := &oracle{fn: func(cfg dd.Config) dd.Outcome {
		if contains(cfg, 3, 10) {
			return dd.Interesting
		}
		return dd.Uninteresting
	}}
	result := reduce(t, o, 16, dd.WithSplitFactor(3))
	assert.Equal(t, dd.Config{3, 10}, result)
}

func TestReduceGranularityOverride(t *testing.T) {
	o := &oracle{fn: func(cfg dd.Config) dd.Outcome {
		if contains(cfg, 6) {
			return dd.Interesting
		}
		return dd.Uninteresting
	}}
	result := reduce(t, o, 8, dd.WithGranularity(8))
	assert.Equal(t, dd.Config{6}, result)
}

// Every promoted configuration must be no larger than its predecessor
// and must itself be interesting.
func TestReduceMonotone(t *testing.T) {
	fn := func(cfg dd.Config) dd.Outcome {
		if contains(cfg, 1, 11) {
			return dd.Interesting
		}
		return dd.Uninteresting
	}
	o := &oracle{fn: fn}
	prev := 16
	engine := dd.New(race.NewSequential(o, cache.NewConfig(0), nil),
		dd.WithReduceHook(func(cfg dd.Config, path string) {
			assert.LessOrEqual(t, len(cfg), prev)
			assert.Equal(t, dd.Interesting, fn(cfg))
			assert.NotEmpty(t, path)
			prev = len(cfg)
		}),
	)
	result, err := engine.Reduce(context.Background(), universe(16))
	require.NoError(t, err)
	assert.Equal(t, dd.Config{1, 11}, result)
}

// Content keying collapses candidates that serialise identically, so
// repeated contents cost a single oracle call.
func TestReduceContentCacheDeduplicates(t *testing.T) {
	// Four identical atoms: every candidate of the same size has the
	// same content.
	build := func(cfg dd.Config) string {
		out := ""
		for range cfg {
			out += "a"
		}
		return out
	}
	fn := func(cfg dd.Config) dd.Outcome {
		switch build(cfg) {
		case "aaaa", "a":
			return dd.Interesting
		default:
			return dd.Uninteresting
		}
	}

	run := func(c cache.Cache) int {
		o := &oracle{fn: fn}
		engine := dd.New(race.NewSequential(o, c, nil))
		result, err := engine.Reduce(context.Background(), universe(4))
		require.NoError(t, err)
		require.Len(t, result, 1)
		return o.Calls()
	}

	contentCalls := run(cache.NewContent(build, 0))
	configCalls := run(cache.NewConfig(0))

	// Content: "aaaa", "aa", "a" probed once each. Config keying cannot
	// collapse the two distinct "aa" candidates.
	assert.Equal(t, 3, contentCalls)
	assert.Greater(t, configCalls, contentCalls)
}

func TestReduceCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	o := &oracle{}
	o.fn = func(cfg dd.Config) dd.Outcome {
		if o.Calls() > 1 {
			cancel()
		}
		return dd.Interesting
	}
	engine := dd.New(race.NewSequential(o, nil, nil))
	_, err := engine.Reduce(ctx, universe(8))
	assert.ErrorIs(t, err, context.Canceled)
}
