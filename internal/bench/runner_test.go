package bench

import (
	"io"
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/cbench/internal/config"
	"github.com/wesleyorama2/cbench/internal/driver"
	"github.com/wesleyorama2/cbench/internal/histogram"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.DriverName = "debug"
	cfg.Dirname = t.TempDir()
	cfg.Benchmarks = config.BenchSet.Mask() | config.BenchGet.Mask()
	cfg.Count = 3
	cfg.ReadThreads = 0
	cfg.WriteThreads = 0
	return cfg
}

// captureStdout collects everything fn writes to stdout, draining the pipe
// concurrently so chatty runs cannot fill its buffer and stall.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan string)
	go func() {
		data, _ := io.ReadAll(r)
		done <- string(data)
	}()

	fn()

	w.Close()
	os.Stdout = old
	return <-done
}

// TestDebugSmoke drives the stub engine single-threaded: three sets and
// three gets must reach the driver, and the run must succeed.
func TestDebugSmoke(t *testing.T) {
	cfg := testConfig(t)

	drv, ok := driver.Lookup("debug")
	require.True(t, ok)

	registry := histogram.New(cfg.Benchmarks)
	r := NewRunner()
	defer r.Close()

	var runErr error
	out := captureStdout(t, func() {
		require.NoError(t, r.Init(cfg, drv, registry, cfg.Dirname))
		runErr = r.Run()
	})

	assert.NoError(t, runErr)
	setOps := regexp.MustCompile(`debug\.next\(0x[0-9a-f]+, set, `)
	getOps := regexp.MustCompile(`debug\.next\(0x[0-9a-f]+, get, `)
	assert.Len(t, setOps.FindAllString(out, -1), 3, "set operations reaching the driver")
	assert.Len(t, getOps.FindAllString(out, -1), 3, "get operations reaching the driver")
	assert.Contains(t, out, "complete.")

	assert.EqualValues(t, 3, registry.MasterStats(config.BenchSet).N)
	assert.EqualValues(t, 3, registry.MasterStats(config.BenchGet).N)
}

// TestWorkerPoolConservation spreads the mix across four threads and checks
// that every operation lands in the registry exactly once.
func TestWorkerPoolConservation(t *testing.T) {
	cfg := testConfig(t)
	cfg.Count = 50
	cfg.ReadThreads = 2
	cfg.WriteThreads = 2

	drv, _ := driver.Lookup("debug")
	registry := histogram.New(cfg.Benchmarks)
	r := NewRunner()
	defer r.Close()

	captureStdout(t, func() {
		require.NoError(t, r.Init(cfg, drv, registry, cfg.Dirname))
		require.NoError(t, r.Run())
	})

	// two read workers ran get, two write workers ran set; the leftover
	// rotators were empty so worker 0 sat out
	assert.EqualValues(t, 100, registry.MasterStats(config.BenchGet).N)
	assert.EqualValues(t, 100, registry.MasterStats(config.BenchSet).N)
	assert.EqualValues(t, 100, registry.MasterBucketSum(config.BenchGet))
	assert.EqualValues(t, 100, registry.MasterBucketSum(config.BenchSet))
}

// TestContinuousCompleting must terminate once every worker reaches its
// repeat count.
func TestContinuousCompleting(t *testing.T) {
	cfg := testConfig(t)
	cfg.Benchmarks = config.BenchGet.Mask()
	cfg.Count = 10
	cfg.ReadThreads = 2
	cfg.ContinuousCompleting = true

	drv, _ := driver.Lookup("debug")
	registry := histogram.New(cfg.Benchmarks)
	r := NewRunner()
	defer r.Close()

	captureStdout(t, func() {
		require.NoError(t, r.Init(cfg, drv, registry, cfg.Dirname))
		require.NoError(t, r.Run())
	})

	assert.GreaterOrEqual(t, registry.MasterStats(config.BenchGet).N, uint64(20))
}

// TestReadOnlyMixZeroesWriteThreads mirrors the partitioning rule: a mix
// with no write benches runs no write threads.
func TestReadOnlyMixZeroesWriteThreads(t *testing.T) {
	cfg := testConfig(t)
	cfg.Benchmarks = config.BenchGet.Mask()
	cfg.ReadThreads = 1
	cfg.WriteThreads = 3

	drv, _ := driver.Lookup("debug")
	registry := histogram.New(cfg.Benchmarks)
	r := NewRunner()
	defer r.Close()

	captureStdout(t, func() {
		require.NoError(t, r.Init(cfg, drv, registry, cfg.Dirname))
		require.NoError(t, r.Run())
	})

	assert.Zero(t, cfg.WriteThreads)
	assert.EqualValues(t, 3, registry.MasterStats(config.BenchGet).N)
}
