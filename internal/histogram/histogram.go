package histogram

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/wesleyorama2/cbench/internal/clock"
	"github.com/wesleyorama2/cbench/internal/config"
	"github.com/wesleyorama2/cbench/internal/output"
	"github.com/wesleyorama2/cbench/internal/telemetry"
)

// Histogram is the process-wide registry of latency measurements. It owns
// one master Bucket per bench kind; worker Buckets push their windows into
// the masters through Merge (end of bench) or the try-lock fast path inside
// Bucket.Add.
//
// # Thread safety
//
// All master-bucket state is mutated only under mu. The three counters are
// atomic so workers can gate the merge fast path without taking the lock:
// workersActive/workersMerged form the summary quorum, mergeEvo is the
// window generation that admits one contribution per worker per window.
type Histogram struct {
	mu sync.Mutex

	startingPointNs uint64
	checkpointNs    uint64

	mergeEvo      atomic.Int64
	workersActive atomic.Int64
	workersMerged atomic.Int64

	perBench [config.BenchKindCount]*Bucket
}

// New builds the registry with master Buckets for every bench kind, enabling
// the ones selected for this run.
func New(benchmarks config.BenchMask) *Histogram {
	h := &Histogram{}
	h.startingPointNs = clock.Now()
	h.checkpointNs = h.startingPointNs

	for b := config.BenchSet; b < config.BenchKindCount; b++ {
		master := NewBucket(h, false)
		h.perBench[b] = master
		if benchmarks.Has(b) {
			master.Reset(b)
		}
	}

	return h
}

// Merge pushes a worker Bucket's window into the registry, blocking on the
// mutex. Workers call it at the end of every bench pass so no residue is
// left behind; the in-pass merges go through the try-lock path in Add.
func (h *Histogram) Merge(src *Bucket) {
	h.mu.Lock()
	now := clock.Now()
	h.mergeLocked(src, now)
	h.mu.Unlock()

	src.rollWindow(now)
}

// mergeLocked folds src's deltas since its last merge into the matching
// master Bucket and gives src the chance to close the current summary
// window. Caller holds mu.
func (h *Histogram) mergeLocked(src *Bucket, now uint64) {
	if !src.enabled {
		return
	}
	dst := h.perBench[src.bench]

	if !dst.enabled || src.acc.N == src.last.N {
		return
	}

	dn := src.acc.N - src.last.N
	dvol := src.acc.VolumeSum - src.last.VolumeSum

	dst.acc.N += dn
	dst.acc.VolumeSum += dvol
	dst.acc.LatencySumNs += src.acc.LatencySumNs - src.last.LatencySumNs
	dst.acc.LatencySumSq += src.acc.LatencySumSq - src.last.LatencySumSq

	for i := range dst.counts {
		dst.counts[i] += src.counts[i]
	}
	dst.window.Merge(src.window)

	if dst.beginNs == 0 || dst.beginNs > src.beginNs {
		dst.beginNs = src.beginNs
	}
	if src.endNs > dst.endNs {
		dst.endNs = src.endNs
	}
	if src.min < dst.min {
		dst.min = src.min
	}
	if src.max > dst.max {
		dst.max = src.max
	}

	telemetry.ObserveMerge(src.bench.String(), dn, dvol)

	if src.mergeEvo == h.mergeEvo.Load() && h.summarizeLocked(now) >= 0 {
		src.mergeEvo++
	}
}

// Summarize flushes the pending summary window, if any. The runner calls it
// once after the finish barrier; in-flight summaries happen inside merges.
func (h *Histogram) Summarize() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.summarizeLocked(clock.Now())
}

// summarizeLocked is the synchronization knot of the reporting pipeline.
// Returns -1 when the window is younger than statInterval, 0 when peers are
// still missing from the quorum, 1 after emitting the summary line.
func (h *Histogram) summarizeLocked(now uint64) int {
	if now-h.checkpointNs < statInterval {
		return -1
	}

	merged := h.workersMerged.Add(1)
	if h.workersActive.Load() > merged {
		return 0
	}

	if h.checkpointNs == h.startingPointNs {
		var sb strings.Builder
		sb.WriteString("     time")
		for _, master := range h.perBench {
			if master.enabled {
				fmt.Fprintf(&sb, " | %-5s %10s %10s %10s %10s %10s %12s %10s",
					"bench", "rps", "min", "avg", "rms", "max", "vol", "#N")
			}
		}
		output.Logf("%s", sb.String())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%9.3f", float64(now-h.startingPointNs)/float64(clock.S))

	wall := float64(now-h.checkpointNs) / float64(clock.S)
	h.checkpointNs = now

	for _, master := range h.perBench {
		if !master.enabled {
			continue
		}

		n := master.acc.N - master.last.N
		vol := master.acc.VolumeSum - master.last.VolumeSum

		fmt.Fprintf(&sb, " | %5s:", master.bench)
		if n != 0 {
			avg := (master.acc.LatencySumNs - master.last.LatencySumNs) / n
			rms := uint64(math.Sqrt(float64(master.acc.LatencySumSq-master.last.LatencySumSq) / float64(n)))

			fmt.Fprintf(&sb, "%10s %10s %10s %10s %10s %12s %10s",
				clock.HumanNum(float64(n)/wall, ""),
				clock.HumanLat(master.min),
				clock.HumanLat(avg),
				clock.HumanLat(rms),
				clock.HumanLat(master.max),
				clock.HumanNum(float64(vol)/wall, "bps"),
				clock.HumanNum(float64(master.acc.N), ""))
		} else {
			fmt.Fprintf(&sb, "%10s %10s %10s %10s %10s %12s %10s",
				"-", "-", "-", "-", "-", "-", "-")
		}

		if master.min < master.wholeMin {
			master.wholeMin = master.min
		}
		master.min = ^uint64(0)

		if master.max > master.wholeMax {
			master.wholeMax = master.max
		}
		master.max = 0

		master.last = master.acc
	}

	output.Logf("%s", sb.String())

	h.workersMerged.Store(0)
	h.mergeEvo.Add(1)
	return 1
}

// Print emits the final per-benchmark latency distribution tables. All
// worker Buckets must be merged and closed by now; the finish barrier
// guarantees that ordering.
func (h *Histogram) Print() {
	for _, master := range h.perBench {
		if !master.enabled || master.acc.N == 0 {
			continue
		}

		output.Headerf("\n>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>> %s(%d)",
			master.bench, master.acc.N)
		output.Logf("[ %9s  %9s ] %13s %8s %10s", "ltn_from", "ltn_to", "ops_count", "%", "p%")
		output.Logf("----------------------------------------------------------")

		totalCount := uint64(0)
		factor := 1e2 / float64(master.acc.N)
		for i, count := range master.counts {
			if count == 0 {
				continue
			}
			totalCount += count

			from := uint64(0)
			if i > 0 {
				from = bounds[i-1] + 1
			}

			output.Logf("[ %9s, %9s ] %13d %7.2f%% %9.4f%%",
				clock.HumanLat(from), clock.HumanLat(bounds[i]),
				count, factor*float64(count), factor*float64(totalCount))
		}
		output.Logf("----------------------------------------------------------")

		output.Logf("total:       %9s  %13d", clock.HumanLat(master.acc.LatencySumNs), totalCount)
		output.Logf("min latency: %9s/op", clock.HumanLat(master.wholeMin))
		output.Logf("avg latency: %9s/op", clock.HumanLat(master.acc.LatencySumNs/master.acc.N))
		output.Logf("rms latency: %9s/op",
			clock.HumanLat(uint64(math.Sqrt(float64(master.acc.LatencySumSq)/float64(master.acc.N)))))
		output.Logf("max latency: %9s/op", clock.HumanLat(master.wholeMax))

		wall := float64(master.endNs-master.beginNs) / float64(clock.S)
		output.Logf(" throughput: %7sops/s", clock.HumanNum(float64(master.acc.N)/wall, ""))

		output.Logf("percentiles: p50 %s, p90 %s, p95 %s, p99 %s",
			clock.HumanLat(uint64(master.window.ValueAtQuantile(50))),
			clock.HumanLat(uint64(master.window.ValueAtQuantile(90))),
			clock.HumanLat(uint64(master.window.ValueAtQuantile(95))),
			clock.HumanLat(uint64(master.window.ValueAtQuantile(99))))
	}
}

// MasterStats exposes the cumulative totals of one bench's master Bucket.
// Reporting and tests use it; workers never touch masters directly.
func (h *Histogram) MasterStats(bench config.BenchKind) Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.perBench[bench].acc
}

// MasterBucketSum returns the sum over the master's bucket counters; equals
// the master's acc.N whenever every worker window has been merged.
func (h *Histogram) MasterBucketSum(bench config.BenchKind) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	var sum uint64
	for _, c := range h.perBench[bench].counts {
		sum += c
	}
	return sum
}
