package driver

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/cbench/internal/config"
	"github.com/wesleyorama2/cbench/internal/keyer"
)

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

func TestRegistry(t *testing.T) {
	for _, name := range []string{"debug", "mdbx", "pebble"} {
		d, ok := Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, name, d.Name())
		assert.Contains(t, Supported(), name)
	}

	_, ok := Lookup("leveldb")
	assert.False(t, ok)
}

func TestDebugDriverEchoesCalls(t *testing.T) {
	d, ok := Lookup("debug")
	require.True(t, ok)

	cfg := config.Default()
	rec := keyer.Record{Key: []byte("k0000001"), Value: []byte("v1")}

	out := captureStdout(t, func() {
		require.Equal(t, Ok, d.Open(cfg, "/tmp/x"))

		ctx := d.ThreadNew()
		require.NotNil(t, ctx)

		assert.Equal(t, Ok, d.Begin(ctx, config.BenchSet))
		assert.Equal(t, Ok, d.Next(ctx, config.BenchSet, &rec))
		assert.Equal(t, Ok, d.Done(ctx, config.BenchSet))

		assert.Equal(t, Ok, d.Begin(ctx, config.BenchGet))
		assert.Equal(t, Ok, d.Next(ctx, config.BenchGet, &rec))
		assert.Equal(t, Ok, d.Done(ctx, config.BenchGet))

		d.ThreadDispose(ctx)
		assert.Equal(t, Ok, d.Close())
	})

	assert.Contains(t, out, "debug.open(/tmp/x)")
	assert.Contains(t, out, "k0000001 -> v1")
	assert.Equal(t, 1, strings.Count(out, ", get, "))
	assert.Contains(t, out, "debug.close()")
}

func TestResultClassification(t *testing.T) {
	assert.False(t, Ok.Failed())
	for _, rc := range []Result{NotFound, SystemError, UnexpectedError} {
		assert.True(t, rc.Failed(), rc.String())
	}
}
