package dd

import (
	"context"
	"errors"
	"fmt"

	"github.com/rhodovan/picire/internal/debug"
)

// ErrInitialUninteresting is returned when the full starting
// configuration fails the oracle, so there is nothing to minimise.
var ErrInitialUninteresting = errors.New("the initial configuration is not interesting")

// Engine runs the minimising delta debugging loop. The zero value is not
// usable; construct with New.
type Engine struct {
	exec            Executor
	splitFactor     int
	subsetIter      Iterator
	complementIter  Iterator
	complementFirst bool
	combineLoops    bool
	granularity     int

	// onReduce, when set, is invoked after every promotion of a new
	// working configuration, with the winning probe's path.
	onReduce func(cfg Config, path string)
}

// Option configures an Engine.
type Option func(*Engine)

// WithSplitFactor sets the granularity multiplier (default 2).
func WithSplitFactor(factor int) Option {
	return func(e *Engine) {
		if factor >= 2 {
			e.splitFactor = factor
		}
	}
}

// WithSubsetIterator sets the probing order of the subset loop.
func WithSubsetIterator(it Iterator) Option {
	return func(e *Engine) { e.subsetIter = it }
}

// WithComplementIterator sets the probing order of the complement loop.
func WithComplementIterator(it Iterator) Option {
	return func(e *Engine) { e.complementIter = it }
}

// WithComplementFirst probes complements before subsets.
func WithComplementFirst(v bool) Option {
	return func(e *Engine) { e.complementFirst = v }
}

// WithCombineLoops races subsets and complements in a single candidate
// list instead of two phases.
func WithCombineLoops(v bool) Option {
	return func(e *Engine) { e.combineLoops = v }
}

// WithGranularity overrides the initial number of chunks (default: the
// split factor).
func WithGranularity(n int) Option {
	return func(e *Engine) {
		if n >= 2 {
			e.granularity = n
		}
	}
}

// WithReduceHook registers a callback invoked on every reduction of the
// working configuration.
func WithReduceHook(fn func(cfg Config, path string)) Option {
	return func(e *Engine) { e.onReduce = fn }
}

// New creates an engine that races candidates through exec.
func New(exec Executor, opts ...Option) *Engine {
	e := &Engine{
		exec:           exec,
		splitFactor:    2,
		subsetIter:     Forward,
		complementIter: Forward,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.granularity == 0 {
		e.granularity = e.splitFactor
	}
	return e
}

// Reduce shrinks initial to a 1-minimal configuration; with the
// complement iterator set to Skip the result is not guaranteed to be
// 1-minimal, since no complement is ever probed. The initial
// configuration is probed first and must be interesting; every
// configuration the engine promotes afterwards is interesting by
// construction.
func (e *Engine) Reduce(ctx context.Context, initial Config) (Config, error) {
	w, err := e.exec.Race(ctx, []Probe{{Config: initial, Kind: KindInitial, Path: "initial"}})
	if err != nil {
		return nil, err
	}
	if w != 0 {
		return nil, ErrInitialUninteresting
	}

	cfg := initial
	n := e.granularity
	for iter := 0; len(cfg) > 1; iter++ {
		if n > len(cfg) {
			n = len(cfg)
		}
		chunks := Split(cfg, n)
		debug.Logf("picire: iteration %d: %d units in %d chunks\n", iter, len(cfg), n)

		winner, err := e.raceIteration(ctx, iter, cfg, chunks)
		if err != nil {
			return nil, err
		}
		if winner != nil {
			cfg = winner.Config
			switch winner.Kind {
			case KindSubset:
				n = 2
			case KindComplement:
				n = n - e.splitFactor + 1
				if n < 2 {
					n = 2
				}
			}
			if e.onReduce != nil {
				e.onReduce(cfg, winner.Path)
			}
			continue
		}

		// No winner at maximum granularity: unless the complement loop is
		// skipped, every singleton chunk was probed as a complement, so
		// cfg is 1-minimal.
		if n >= len(cfg) {
			break
		}
		n *= e.splitFactor
		if n > len(cfg) {
			n = len(cfg)
		}
	}
	return cfg, nil
}

// raceIteration probes one outer iteration of the loop and returns the
// winning probe, or nil when nothing was interesting.
func (e *Engine) raceIteration(ctx context.Context, iter int, cfg Config, chunks []Config) (*Probe, error) {
	if e.combineLoops {
		first, second := KindSubset, KindComplement
		if e.complementFirst {
			first, second = second, first
		}
		probes := e.buildProbes(iter, first, cfg, chunks, nil)
		probes = e.buildProbes(iter, second, cfg, chunks, probes)
		return e.race(ctx, probes)
	}

	phases := []Kind{KindSubset, KindComplement}
	if e.complementFirst {
		phases = []Kind{KindComplement, KindSubset}
	}
	for _, kind := range phases {
		winner, err := e.race(ctx, e.buildProbes(iter, kind, cfg, chunks, nil))
		if err != nil || winner != nil {
			return winner, err
		}
	}
	return nil, nil
}

// buildProbes appends the candidates of one kind, ordered by the kind's
// iterator, to probes.
func (e *Engine) buildProbes(iter int, kind Kind, cfg Config, chunks []Config, probes []Probe) []Probe {
	it := e.subsetIter
	phase := "sub"
	if kind == KindComplement {
		it = e.complementIter
		phase = "com"
	}
	for _, i := range it(len(chunks)) {
		candidate := chunks[i]
		if kind == KindComplement {
			candidate = Complement(cfg, chunks, i)
		}
		probes = append(probes, Probe{
			Index:  len(probes),
			Config: candidate,
			Kind:   kind,
			Chunk:  i,
			Path:   fmt.Sprintf("it%d/%s/c%d", iter, phase, i),
		})
	}
	return probes
}

func (e *Engine) race(ctx context.Context, probes []Probe) (*Probe, error) {
	if len(probes) == 0 {
		return nil, nil
	}
	w, err := e.exec.Race(ctx, probes)
	if err != nil {
		return nil, err
	}
	if w < 0 {
		return nil, nil
	}
	p := probes[w]
	return &p, nil
}
