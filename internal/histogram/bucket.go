// Package histogram implements the lock-light streaming latency pipeline:
// per-worker Buckets accumulate samples without any locking and merge into
// the process-wide Histogram registry on a try-lock cadence. The registry
// emits one summary line per window once every live worker has contributed,
// and prints the final per-benchmark distribution tables.
package histogram

import (
	"sort"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/wesleyorama2/cbench/internal/clock"
	"github.com/wesleyorama2/cbench/internal/config"
)

const (
	// mergeInterval is the cadence at which a worker Bucket tries to push
	// its window into the registry.
	mergeInterval = 10 * clock.MS

	// statInterval is the minimum wall time between two summary lines.
	statInterval = clock.S
)

// hdr histogram range for the exact-percentile report: 1ns to 1h, three
// significant figures.
const (
	hdrMinNs = int64(1)
	hdrMaxNs = int64(3600) * int64(clock.S)
)

func newHdr() *hdrhistogram.Histogram {
	return hdrhistogram.New(hdrMinNs, hdrMaxNs, 3)
}

// Stats carries the cumulative counters of one Bucket. All fields are
// monotonically non-decreasing.
type Stats struct {
	N            uint64
	VolumeSum    uint64
	LatencySumNs uint64
	LatencySumSq uint64
}

// Bucket is a latency accumulator. Worker Buckets are owned by exactly one
// goroutine; the registry reads them only while that goroutine is blocked in
// a merge call, so no field needs atomic access. Master Buckets (one per
// bench kind) live inside the registry and are touched only under its mutex.
type Bucket struct {
	registry *Histogram

	enabled  bool
	isWorker bool
	bench    config.BenchKind

	// mergeEvo gates one contribution per summary window; see Histogram.
	mergeEvo int64

	min, max           uint64
	wholeMin, wholeMax uint64

	checkpointNs, beginNs, endNs uint64

	last, acc Stats
	counts    [BucketCount]uint64

	// window feeds the exact-percentile line of the final report; merged
	// into the master under the registry lock, then reset with the window.
	window *hdrhistogram.Histogram
}

// NewBucket attaches a Bucket to the registry. Worker Buckets join the
// active-worker quorum; the caller must Close them before the registry
// summarizes for the last time.
func NewBucket(registry *Histogram, isWorker bool) *Bucket {
	b := &Bucket{
		registry: registry,
		isWorker: isWorker,
		bench:    config.BenchKindCount,
		mergeEvo: registry.mergeEvo.Load(),
		wholeMin: ^uint64(0),
		window:   newHdr(),
	}
	if isWorker {
		registry.workersActive.Add(1)
	}
	return b
}

// Close detaches a worker Bucket from the quorum. A Bucket that already
// contributed to the currently open window is also removed from the merged
// count so the registry invariant workersMerged <= workersActive stays tight.
func (b *Bucket) Close() {
	if !b.isWorker {
		return
	}
	if b.mergeEvo == b.registry.mergeEvo.Load()+1 {
		b.registry.workersMerged.Add(-1)
	}
	b.registry.workersActive.Add(-1)
}

// Reset enables the Bucket and binds it to bench, clearing the per-window
// accounting. The cumulative totals and the merge generation survive resets
// within one worker lifetime.
func (b *Bucket) Reset(bench config.BenchKind) {
	b.enabled = true
	b.bench = bench

	b.min = ^uint64(0)
	b.max = 0
	b.counts = [BucketCount]uint64{}
	b.window.Reset()

	now := clock.Now()
	b.checkpointNs = now
	b.beginNs = now
	b.endNs = now
}

// Add logs one operation that started at t0 and moved volume bytes, then
// opportunistically merges into the registry: only when this Bucket has not
// yet contributed to the open window, only every mergeInterval, and only if
// the registry mutex is free. A lost try-lock costs nothing; the merge is
// retried at the next sample.
func (b *Bucket) Add(t0 uint64, volume uint64) {
	now := clock.Now()
	latency := now - t0

	if b.beginNs == 0 {
		b.beginNs = t0
	}
	b.endNs = now

	b.acc.N++
	b.acc.VolumeSum += volume
	b.acc.LatencySumNs += latency
	b.acc.LatencySumSq += latency * latency

	if latency < b.min {
		b.min = latency
	}
	if latency > b.max {
		b.max = latency
	}

	idx := sort.Search(BucketCount-1, func(i int) bool {
		return bounds[i] >= latency
	})
	b.counts[idx]++

	lat := int64(latency)
	if lat > hdrMaxNs {
		lat = hdrMaxNs
	}
	b.window.RecordValue(lat)

	if b.mergeEvo != b.registry.mergeEvo.Load() || now-b.checkpointNs < mergeInterval {
		return
	}

	if b.registry.mu.TryLock() {
		b.registry.mergeLocked(b, now)
		b.registry.mu.Unlock()

		b.rollWindow(now)
	}
}

// rollWindow snapshots the merge bookkeeping after a successful merge so the
// next delta starts clean. Skipping this after any merge would double-count
// the window on the following one.
func (b *Bucket) rollWindow(now uint64) {
	b.checkpointNs = now
	b.min = ^uint64(0)
	b.max = 0
	b.last = b.acc
	b.counts = [BucketCount]uint64{}
	b.window.Reset()
}
