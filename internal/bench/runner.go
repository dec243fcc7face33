package bench

import (
	"fmt"
	"runtime"

	"github.com/wesleyorama2/cbench/internal/config"
	"github.com/wesleyorama2/cbench/internal/driver"
	"github.com/wesleyorama2/cbench/internal/histogram"
	"github.com/wesleyorama2/cbench/internal/keyer"
	"github.com/wesleyorama2/cbench/internal/output"
	"github.com/wesleyorama2/cbench/internal/sysres"
	"github.com/wesleyorama2/cbench/internal/telemetry"
)

// Runner owns one benchmark run: it opens the driver, partitions the key
// space across the worker pool, coordinates the start/finish barriers, and
// prints the final reports. The runner thread itself contributes load as
// worker 0.
type Runner struct {
	datadir string

	cfg      *config.Config
	drv      driver.Driver
	registry *histogram.Histogram

	setRd config.BenchMask
	setWr config.BenchMask

	keyerOpts keyer.Options

	sh shared

	beforeOpenRAM int64

	barrierStart  *barrier
	barrierFinish *barrier
}

// NewRunner wires a runner; Init must follow before Run.
func NewRunner() *Runner {
	return &Runner{}
}

// Init snapshots the pre-open RAM baseline, opens the driver, partitions the
// benchmark set into read and write sides, and sizes the key-space geometry
// so worker key streams never collide.
func (r *Runner) Init(cfg *config.Config, drv driver.Driver, registry *histogram.Histogram, datadir string) error {
	r.datadir = datadir
	r.cfg = cfg
	r.drv = drv
	r.registry = registry

	beforeOpen, err := sysres.Load(datadir)
	if err != nil {
		return fmt.Errorf("resource snapshot: %w", err)
	}
	r.beforeOpenRAM = beforeOpen.RAM

	if rc := drv.Open(cfg, datadir); rc.Failed() {
		return fmt.Errorf("%s driver open failed: %s", drv.Name(), rc)
	}

	for _, b := range cfg.Benchmarks.Kinds() {
		if b == config.BenchIterate || b == config.BenchGet {
			r.setRd |= b.Mask()
		} else {
			r.setWr |= b.Mask()
		}
	}

	if r.setRd|r.setWr == 0 {
		return fmt.Errorf("there are no tasks for either reading or writing")
	}

	if cfg.ReadThreads != 0 && r.setRd == 0 {
		cfg.ReadThreads = 0
	}
	if cfg.WriteThreads != 0 && r.setWr == 0 {
		cfg.WriteThreads = 0
	}

	sectors := max(1, cfg.ReadThreads, cfg.WriteThreads)
	spaces := max(1, cfg.WriteThreads)
	if r.setWr&config.Mask2Keyspace != 0 {
		spaces *= 2
	}

	r.keyerOpts = keyer.Options{
		Binary:       cfg.Binary,
		Count:        cfg.Count,
		KeySize:      cfg.KeySize,
		ValueSize:    cfg.ValueSize,
		SpacesCount:  spaces,
		SectorsCount: sectors,
	}

	keyer.Init(cfg.KVSeed)

	parties := cfg.ReadThreads + cfg.WriteThreads + 1
	r.barrierStart = newBarrier(parties)
	r.barrierFinish = newBarrier(parties)

	return nil
}

// Run spawns the worker pool, participates as worker 0, and prints the
// reports once the finish barrier releases.
func (r *Runner) Run() error {
	nth := 0
	keySpace := 0

	if err := r.runWorkersPool(r.cfg.ReadThreads, &nth, &r.setRd, r.setRd, &keySpace); err != nil {
		return err
	}
	if err := r.runWorkersPool(r.cfg.WriteThreads, &nth, &r.setWr, r.setWr, &keySpace); err != nil {
		return err
	}

	usageStart, err := sysres.Load(r.datadir)
	if err != nil {
		return fmt.Errorf("resource snapshot: %w", err)
	}

	r.syncStart()
	if mask := r.setWr | r.setRd; mask != 0 {
		worker, err := newWorker(0, mask, 0, 0, r.keyerOpts, r.cfg, r.drv, r.registry, &r.sh)
		if err != nil {
			output.Errorf("error: %v", err)
			r.sh.failed.Store(true)
		} else {
			if err := worker.FulFil(); err != nil {
				output.Errorf("error: %v", err)
				r.sh.failed.Store(true)
				telemetry.ObserveWorkerError()
			}
			worker.close()
		}
	}
	r.syncFinish()

	usageFinish, err := sysres.Load(r.datadir)
	if err != nil {
		return fmt.Errorf("resource snapshot: %w", err)
	}

	if r.sh.failed.Load() {
		return fmt.Errorf("benchmark failed")
	}

	r.registry.Summarize()
	output.Successf("complete.")
	r.registry.Print()

	usageStart.RAM = r.beforeOpenRAM
	usageStart.Disk = 0
	sysres.PrintDelta(usageStart, usageFinish)

	return nil
}

// Close releases the driver. Safe after a failed Init.
func (r *Runner) Close() {
	if r.drv != nil {
		r.drv.Close()
		r.drv = nil
	}
}

func (r *Runner) syncStart() {
	runtime.Gosched()
	r.barrierStart.Wait()
}

func (r *Runner) syncFinish() {
	r.barrierFinish.Wait()
}

// runWorkersPool spawns count workers over the rotator mask. With separate
// unset each worker takes the whole remaining rotator; with separate set the
// mask narrows to a single bench kind rotating through the set. An exhausted
// rotator refills with the full set, so workers past the first cycle run all
// of it. Write workers shift their key space so their streams stay disjoint.
func (r *Runner) runWorkersPool(count int, nth *int, rotator *config.BenchMask, set config.BenchMask, keySpace *int) error {
	for n := 0; n < count; n++ {
		if *rotator == 0 {
			*rotator = set
		}

		mask := *rotator
		if r.cfg.Separate {
			order := config.BenchSet
			for mask = 0; mask == 0; order = (order + 1) % config.BenchKindCount {
				mask = *rotator & order.Mask()
			}
		}

		if mask&config.MaskWrite != 0 {
			*keySpace++
			if mask&config.Mask2Keyspace != 0 {
				*keySpace++
			}
		}

		*nth++
		worker, err := newWorker(*nth, mask, *keySpace, *nth, r.keyerOpts, r.cfg, r.drv, r.registry, &r.sh)
		if err != nil {
			return err
		}

		go func(w *Worker) {
			// one OS thread per worker: the scheduler model is parallel
			// blocking threads, and engines like MDBX pin write
			// transactions to their thread
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			r.syncStart()
			if err := w.FulFil(); err != nil {
				output.Errorf("error: %v", err)
				r.sh.failed.Store(true)
				telemetry.ObserveWorkerError()
			}
			w.close()
			r.syncFinish()
		}(worker)

		*rotator &^= mask
	}

	return nil
}
