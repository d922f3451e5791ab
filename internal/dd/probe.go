package dd

import "context"

// Kind distinguishes what a probe candidate was derived from.
type Kind int

const (
	// KindSubset probes a single chunk on its own.
	KindSubset Kind = iota
	// KindComplement probes the configuration minus one chunk.
	KindComplement
	// KindInitial probes the full starting configuration.
	KindInitial
)

// Probe is one candidate oracle invocation. Probes are created by the
// engine, consumed by an Executor, and discarded after their verdict.
type Probe struct {
	// Index is the position of the probe in the candidate list handed to
	// the executor. Winner selection is by lowest index.
	Index int
	// Config is the candidate configuration to test.
	Config Config
	// Kind records how Config was derived.
	Kind Kind
	// Chunk is the chunk index the probe was derived from.
	Chunk int
	// Path is a slash-joined identifier locating the probe in the search
	// tree, e.g. "it4/sub/c2". Oracle adapters use it to namespace
	// per-probe side effects such as working directories.
	Path string
}

// Tester is the oracle adapter contract. Test must be deterministic for
// equal configurations, must return Cancelled only when ctx is done
// before a definitive verdict, and must clean up any per-probe side
// effects on every exit path.
type Tester interface {
	Test(ctx context.Context, cfg Config, path string) Outcome
}

// TesterFunc adapts a plain function to the Tester interface.
type TesterFunc func(ctx context.Context, cfg Config, path string) Outcome

func (f TesterFunc) Test(ctx context.Context, cfg Config, path string) Outcome {
	return f(ctx, cfg, path)
}

// Executor races an ordered list of probes and returns the index of the
// lowest-indexed probe whose verdict is Interesting, or -1 when no probe
// is interesting. Implementations may evaluate probes concurrently but
// must preserve order-deterministic winner selection.
type Executor interface {
	Race(ctx context.Context, probes []Probe) (int, error)
}
