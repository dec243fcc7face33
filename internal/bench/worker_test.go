package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/cbench/internal/config"
	"github.com/wesleyorama2/cbench/internal/driver"
	"github.com/wesleyorama2/cbench/internal/histogram"
	"github.com/wesleyorama2/cbench/internal/keyer"
)

// scriptDriver is an in-memory stub whose per-kind results are scripted.
// It also records the operation sequence reaching the engine.
type scriptDriver struct {
	results map[config.BenchKind]driver.Result
	calls   []string
}

type scriptContext struct{}

func (d *scriptDriver) Name() string                                         { return "script" }
func (d *scriptDriver) Open(*config.Config, string) driver.Result            { return driver.Ok }
func (d *scriptDriver) Close() driver.Result                                 { return driver.Ok }
func (d *scriptDriver) ThreadNew() driver.Context                            { return &scriptContext{} }
func (d *scriptDriver) ThreadDispose(driver.Context)                         {}
func (d *scriptDriver) Begin(driver.Context, config.BenchKind) driver.Result { return driver.Ok }
func (d *scriptDriver) Done(driver.Context, config.BenchKind) driver.Result  { return driver.Ok }

func (d *scriptDriver) Next(_ driver.Context, bench config.BenchKind, kv *keyer.Record) driver.Result {
	d.calls = append(d.calls, bench.String())
	if rc, ok := d.results[bench]; ok {
		return rc
	}
	return driver.Ok
}

func newTestWorker(t *testing.T, mask config.BenchMask, cfg *config.Config,
	drv driver.Driver, registry *histogram.Histogram, sh *shared) *Worker {
	t.Helper()

	keyer.Init(cfg.KVSeed)

	opts := keyer.Options{
		Binary:       cfg.Binary,
		Count:        cfg.Count,
		KeySize:      cfg.KeySize,
		ValueSize:    cfg.ValueSize,
		SpacesCount:  2,
		SectorsCount: 1,
	}

	w, err := newWorker(1, mask, 0, 0, opts, cfg, drv, registry, sh)
	require.NoError(t, err)
	return w
}

// TestNotFoundStopsWorker pins the strict not-found policy: without the
// ignore flag the first missing key terminates the worker.
func TestNotFoundStopsWorker(t *testing.T) {
	cfg := testConfig(t)
	cfg.Benchmarks = config.BenchGet.Mask()
	cfg.Count = 5

	drv := &scriptDriver{results: map[config.BenchKind]driver.Result{
		config.BenchGet: driver.NotFound,
	}}

	registry := histogram.New(cfg.Benchmarks)
	var sh shared

	captureStdout(t, func() {
		w := newTestWorker(t, cfg.Benchmarks, cfg, drv, registry, &sh)
		err := w.FulFil()
		w.close()
		assert.Error(t, err)
	})

	assert.Len(t, drv.calls, 1, "the worker must stop at the first missing key")
}

// TestNotFoundIgnored upgrades missing keys to success.
func TestNotFoundIgnored(t *testing.T) {
	cfg := testConfig(t)
	cfg.Benchmarks = config.BenchGet.Mask()
	cfg.Count = 5
	cfg.IgnoreNotFound = true

	drv := &scriptDriver{results: map[config.BenchKind]driver.Result{
		config.BenchGet: driver.NotFound,
	}}

	registry := histogram.New(cfg.Benchmarks)
	var sh shared

	captureStdout(t, func() {
		w := newTestWorker(t, cfg.Benchmarks, cfg, drv, registry, &sh)
		err := w.FulFil()
		w.close()
		assert.NoError(t, err)
	})

	assert.Len(t, drv.calls, 5)
	assert.EqualValues(t, 5, registry.MasterStats(config.BenchGet).N)
}

// TestCrudSequence pins the inner operation order of one Crud group.
func TestCrudSequence(t *testing.T) {
	cfg := testConfig(t)
	cfg.Benchmarks = config.BenchCrud.Mask()
	cfg.Count = 2

	drv := &scriptDriver{}
	registry := histogram.New(cfg.Benchmarks)
	var sh shared

	captureStdout(t, func() {
		w := newTestWorker(t, cfg.Benchmarks, cfg, drv, registry, &sh)
		require.NoError(t, w.FulFil())
		w.close()
	})

	want := []string{"set", "set", "del", "get", "set", "set", "del", "get"}
	assert.Equal(t, want, drv.calls)
	assert.EqualValues(t, 2, registry.MasterStats(config.BenchCrud).N)
}

// TestBatchCapsAtCount stops a batch pass once the operation budget is hit,
// even mid-transaction.
func TestBatchCapsAtCount(t *testing.T) {
	cfg := testConfig(t)
	cfg.Benchmarks = config.BenchBatch.Mask()
	cfg.Count = 7
	cfg.BatchLength = 5

	drv := &scriptDriver{}
	registry := histogram.New(cfg.Benchmarks)
	var sh shared

	captureStdout(t, func() {
		w := newTestWorker(t, cfg.Benchmarks, cfg, drv, registry, &sh)
		require.NoError(t, w.FulFil())
		w.close()
	})

	// 7 crud groups of 4 engine calls each: one full batch and one cut short
	assert.Len(t, drv.calls, 7*4)
	assert.EqualValues(t, 2, registry.MasterStats(config.BenchBatch).N,
		"one latency sample per batch transaction")
}

// TestSystemErrorStopsWorker verifies the error path: a driver failure
// terminates the worker with an error for the runner to latch.
func TestSystemErrorStopsWorker(t *testing.T) {
	cfg := testConfig(t)
	cfg.Benchmarks = config.BenchSet.Mask()
	cfg.Count = 5

	drv := &scriptDriver{results: map[config.BenchKind]driver.Result{
		config.BenchSet: driver.SystemError,
	}}

	registry := histogram.New(cfg.Benchmarks)
	var sh shared

	captureStdout(t, func() {
		w := newTestWorker(t, cfg.Benchmarks, cfg, drv, registry, &sh)
		err := w.FulFil()
		w.close()
		assert.Error(t, err)
	})

	assert.Len(t, drv.calls, 1)
}

// TestIterateTerminatesOnNotFound treats iterator exhaustion as success.
func TestIterateTerminatesOnNotFound(t *testing.T) {
	cfg := testConfig(t)
	cfg.Benchmarks = config.BenchIterate.Mask()
	cfg.Count = 100

	drv := &scriptDriver{results: map[config.BenchKind]driver.Result{
		config.BenchIterate: driver.NotFound,
	}}

	registry := histogram.New(cfg.Benchmarks)
	var sh shared

	captureStdout(t, func() {
		w := newTestWorker(t, cfg.Benchmarks, cfg, drv, registry, &sh)
		require.NoError(t, w.FulFil())
		w.close()
	})

	assert.Len(t, drv.calls, 1, "an empty store ends the iteration immediately")
}
