// Package bench contains the benchmark execution core: Workers that drive
// one operation mix over the storage engine, and the Runner that partitions
// the key space, spawns the worker pool, and coordinates the dual barrier.
package bench

import (
	"fmt"
	"sync/atomic"

	"github.com/wesleyorama2/cbench/internal/clock"
	"github.com/wesleyorama2/cbench/internal/config"
	"github.com/wesleyorama2/cbench/internal/driver"
	"github.com/wesleyorama2/cbench/internal/histogram"
	"github.com/wesleyorama2/cbench/internal/keyer"
	"github.com/wesleyorama2/cbench/internal/output"
)

// shared is the cross-worker state: the failure latch checked at loop
// boundaries and the continuous-completion accounting.
type shared struct {
	failed       atomic.Bool
	workersCount atomic.Int64
	doersDone    atomic.Int64
}

// Worker executes one benchmark mix over the engine. It owns its Keyers,
// its driver Context, and its histogram Bucket; nothing here is shared
// except through the registry's merge protocol.
type Worker struct {
	id          int
	keySpace    int
	keySequence int
	mask        config.BenchMask

	sh *shared

	cfg *config.Config
	drv driver.Driver

	hg       *histogram.Bucket
	registry *histogram.Histogram

	ctx driver.Context

	genA *keyer.Keyer
	genB *keyer.Keyer
}

// newWorker builds a worker for one bench mask over one (space, sector).
// Batch and Crud work over a pair of key spaces, so those masks get a second
// Keyer on space+1.
func newWorker(id int, mask config.BenchMask, keySpace, keySequence int,
	opts keyer.Options, cfg *config.Config, drv driver.Driver,
	registry *histogram.Histogram, sh *shared) (*Worker, error) {

	if mask == 0 {
		return nil, fmt.Errorf("worker.%d: there are no tasks for the worker", id)
	}

	sh.workersCount.Add(1)

	genA, err := keyer.New(keySpace, keySequence, opts)
	if err != nil {
		sh.workersCount.Add(-1)
		return nil, err
	}

	w := &Worker{
		id:          id,
		keySpace:    keySpace,
		keySequence: keySequence,
		mask:        mask,
		sh:          sh,
		cfg:         cfg,
		drv:         drv,
		registry:    registry,
		genA:        genA,
	}

	if mask&config.Mask2Keyspace != 0 {
		w.genB, err = keyer.New(keySpace+1, keySequence, opts)
		if err != nil {
			sh.workersCount.Add(-1)
			return nil, err
		}
		output.Logf("worker.%d: %s, key-space %d and %d, key-sequence %d",
			id, mask, keySpace, keySpace+1, keySequence)
	} else {
		output.Logf("worker.%d: %s, key-space %d, key-sequence %d",
			id, mask, keySpace, keySequence)
	}

	w.hg = histogram.NewBucket(registry, true)

	return w, nil
}

// close detaches the worker from the registry quorum and the shared
// accounting. Must run before the registry's final summarize.
func (w *Worker) close() {
	w.hg.Close()
	w.sh.workersCount.Add(-1)
}

// FulFil runs the worker's full schedule: nrepeat passes over every bench
// kind in the mask, count operations each, merging the Bucket into the
// registry after every bench. In continuous-completion mode a finished
// worker keeps cycling until every worker has reached nrepeat, keeping
// contention on the store steady while laggards catch up.
func (w *Worker) FulFil() error {
	if w.ctx == nil {
		w.ctx = w.drv.ThreadNew()
	}
	if w.ctx == nil {
		return fmt.Errorf("worker.%d: %s driver refused a thread context", w.id, w.drv.Name())
	}

	var err error

	count := 0
	for count < w.cfg.NRepeat ||
		(w.cfg.ContinuousCompleting && w.sh.doersDone.Load() < w.sh.workersCount.Load()) {

		rc := driver.Ok

		for b := config.BenchSet; rc == driver.Ok && b < config.BenchKindCount; b++ {
			if !w.mask.Has(b) {
				continue
			}

			w.hg.Reset(b)

			for i := uint64(0); rc == driver.Ok && i < w.cfg.Count; {
				switch b {
				case config.BenchSet, config.BenchGet, config.BenchDelete:
					rc = w.evalSingle(b)
					i++
				case config.BenchCrud:
					rc = w.evalCrud()
					i++
				case config.BenchBatch:
					rc = w.evalBatch(&i)
				case config.BenchIterate:
					rc = w.evalIterate(&i)
				}
			}

			w.registry.Merge(w.hg)
		}

		count++
		if count == w.cfg.NRepeat {
			w.sh.doersDone.Add(1)
		}

		if rc.Failed() {
			err = fmt.Errorf("worker.%d: %s benchmark failed: %s", w.id, w.drv.Name(), rc)
			break
		}
		if w.sh.failed.Load() {
			break
		}
	}

	w.drv.ThreadDispose(w.ctx)
	w.ctx = nil

	return err
}

func (w *Worker) logKeyNotFound(op string, rec *keyer.Record) {
	output.Logf("error: key %s not found (%s, %d, %d+%d)",
		rec.Key, op, w.id, w.keySpace, w.keySequence)
}

// evalSingle drives one Set, Get, or Delete. The latency sample covers the
// whole Begin..Next..Done block.
func (w *Worker) evalSingle(bench config.BenchKind) driver.Result {
	var a keyer.Record
	w.genA.Next(&a, bench != config.BenchSet)

	t0 := clock.Now()
	rc := w.drv.Begin(w.ctx, bench)
	if rc == driver.Ok {
		rc = w.drv.Next(w.ctx, bench, &a)
	}
	rc2 := w.drv.Done(w.ctx, bench)

	volume := len(a.Key) + len(a.Value)
	if bench == config.BenchDelete {
		volume = len(a.Key)
	}
	w.hg.Add(t0, uint64(volume))

	if rc == driver.NotFound {
		w.logKeyNotFound(bench.String(), &a)
		if w.cfg.IgnoreNotFound {
			rc = driver.Ok
		}
	}
	if rc == driver.Ok {
		rc = rc2
	}
	return rc
}

// evalCrudOps issues the inner Set(b), Set(a), Delete(b), Get(a) sequence
// shared by the Crud and Batch benches.
func (w *Worker) evalCrudOps(a, b *keyer.Record) driver.Result {
	if rc := w.drv.Next(w.ctx, config.BenchSet, b); rc.Failed() {
		return rc
	}
	if rc := w.drv.Next(w.ctx, config.BenchSet, a); rc.Failed() {
		return rc
	}

	switch rc := w.drv.Next(w.ctx, config.BenchDelete, b); rc {
	case driver.Ok:
	case driver.NotFound:
		w.logKeyNotFound("crud.del", b)
		if !w.cfg.IgnoreNotFound {
			return driver.NotFound
		}
	default:
		return rc
	}

	switch rc := w.drv.Next(w.ctx, config.BenchGet, a); rc {
	case driver.Ok:
	case driver.NotFound:
		w.logKeyNotFound("crud.get", a)
		if !w.cfg.IgnoreNotFound {
			return driver.NotFound
		}
	default:
		return rc
	}

	return driver.Ok
}

// evalCrud drives one Crud group; the latency sample covers the whole group.
func (w *Worker) evalCrud() driver.Result {
	var a, b keyer.Record
	w.genA.Next(&a, false)
	w.genB.Next(&b, false)

	t0 := clock.Now()
	rc := w.drv.Begin(w.ctx, config.BenchCrud)
	if rc == driver.Ok {
		rc = w.evalCrudOps(&a, &b)
	}
	if rc == driver.Ok {
		rc = w.drv.Done(w.ctx, config.BenchCrud)
	}

	w.hg.Add(t0, uint64(
		len(a.Key)+len(a.Value)+len(b.Key)+len(b.Value)+
			len(a.Key)+len(b.Key)+len(b.Value)))

	return rc
}

// evalBatch packs up to batchLength Crud groups into one driver transaction,
// pulling records from two pre-computed pools so no generator work
// interleaves with the transaction.
func (w *Worker) evalBatch(i *uint64) driver.Result {
	var a, b keyer.Record

	poolA := w.genA.Batch(w.cfg.BatchLength)
	poolB := w.genB.Batch(w.cfg.BatchLength)

	t0 := clock.Now()
	rc := w.drv.Begin(w.ctx, config.BenchBatch)
	for j := 0; rc == driver.Ok && j < w.cfg.BatchLength; j++ {
		if poolA.Load(&a) != nil || poolB.Load(&b) != nil {
			return driver.UnexpectedError
		}
		rc = w.evalCrudOps(&a, &b)
		if rc.Failed() {
			break
		}
		*i++
		if *i == w.cfg.Count {
			break
		}
	}
	if rc == driver.Ok {
		rc = w.drv.Done(w.ctx, config.BenchBatch)
	}

	recordSize := len(a.Key) + len(a.Value) + len(b.Key) + len(b.Value)
	w.hg.Add(t0, uint64(recordSize*w.cfg.BatchLength))

	return rc
}

// evalIterate walks the store, logging one latency sample per element.
// NotFound marks the end of the iterator and converts to success.
func (w *Worker) evalIterate(i *uint64) driver.Result {
	var a keyer.Record

	t0 := clock.Now()
	rc := w.drv.Begin(w.ctx, config.BenchIterate)
	for rc == driver.Ok {
		a.Key = nil
		a.Value = nil
		rc = w.drv.Next(w.ctx, config.BenchIterate, &a)
		w.hg.Add(t0, uint64(len(a.Key)+len(a.Value)))
		*i++
		if *i == w.cfg.Count {
			break
		}
		t0 = clock.Now()
	}
	if rc == driver.NotFound {
		// the store is exhausted: this ends the bench pass
		rc = driver.Ok
		*i = w.cfg.Count
	}
	if rc == driver.Ok {
		rc = w.drv.Done(w.ctx, config.BenchIterate)
	}
	return rc
}
