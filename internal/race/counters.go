package race

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Counters aggregates probe accounting across executors. All methods are
// safe for concurrent use. Counts are mirrored to OpenTelemetry
// instruments; with no meter provider installed those are no-ops.
type Counters struct {
	probes     atomic.Int64
	cacheHits  atomic.Int64
	oracleRuns atomic.Int64
	cancelled  atomic.Int64

	mProbes     metric.Int64Counter
	mCacheHits  metric.Int64Counter
	mOracleRuns metric.Int64Counter
	mCancelled  metric.Int64Counter
}

// NewCounters creates counters backed by the global meter provider.
func NewCounters() *Counters {
	meter := otel.Meter("github.com/rhodovan/picire/internal/race")
	c := &Counters{}
	c.mProbes, _ = meter.Int64Counter("picire.probes",
		metric.WithDescription("Candidate probes examined"))
	c.mCacheHits, _ = meter.Int64Counter("picire.cache_hits",
		metric.WithDescription("Probes answered from the outcome cache"))
	c.mOracleRuns, _ = meter.Int64Counter("picire.oracle_runs",
		metric.WithDescription("Oracle invocations dispatched"))
	c.mCancelled, _ = meter.Int64Counter("picire.cancelled",
		metric.WithDescription("Probes cancelled before a verdict"))
	return c
}

func (c *Counters) addProbe(ctx context.Context) {
	c.probes.Add(1)
	if c.mProbes != nil {
		c.mProbes.Add(ctx, 1)
	}
}

func (c *Counters) addCacheHit(ctx context.Context) {
	c.cacheHits.Add(1)
	if c.mCacheHits != nil {
		c.mCacheHits.Add(ctx, 1)
	}
}

func (c *Counters) addOracleRun(ctx context.Context) {
	c.oracleRuns.Add(1)
	if c.mOracleRuns != nil {
		c.mOracleRuns.Add(ctx, 1)
	}
}

func (c *Counters) addCancelled(ctx context.Context) {
	c.cancelled.Add(1)
	if c.mCancelled != nil {
		c.mCancelled.Add(ctx, 1)
	}
}

func (c *Counters) Probes() int64     { return c.probes.Load() }
func (c *Counters) CacheHits() int64  { return c.cacheHits.Load() }
func (c *Counters) OracleRuns() int64 { return c.oracleRuns.Load() }
func (c *Counters) Cancelled() int64  { return c.cancelled.Load() }
