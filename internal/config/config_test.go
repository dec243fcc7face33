package config

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBenchKind(t *testing.T) {
	cases := map[string]BenchKind{
		"set":      BenchSet,
		"get":      BenchGet,
		"del":      BenchDelete,
		"delete":   BenchDelete,
		"iter":     BenchIterate,
		"iterate":  BenchIterate,
		"batch":    BenchBatch,
		"crud":     BenchCrud,
		"transact": BenchCrud,
	}

	for name, want := range cases {
		got, err := ParseBenchKind(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseBenchKind("scan")
	assert.Error(t, err)
}

func TestBenchMask(t *testing.T) {
	mask, err := ParseBenchList([]string{"set,get", "crud"})
	require.NoError(t, err)

	assert.True(t, mask.Has(BenchSet))
	assert.True(t, mask.Has(BenchGet))
	assert.True(t, mask.Has(BenchCrud))
	assert.False(t, mask.Has(BenchIterate))
	assert.Equal(t, "set, get, crud", mask.String())

	assert.Equal(t, []BenchKind{BenchSet, BenchGet, BenchCrud}, mask.Kinds())
}

func TestClassificationMasks(t *testing.T) {
	// reads never touch Set or Delete; writes never touch Get or Iterate
	assert.False(t, MaskRead.Has(BenchSet))
	assert.False(t, MaskRead.Has(BenchDelete))
	assert.False(t, MaskWrite.Has(BenchGet))
	assert.False(t, MaskWrite.Has(BenchIterate))

	// the two-keyspace kinds sit in both sets
	for _, b := range []BenchKind{BenchBatch, BenchCrud} {
		assert.True(t, MaskRead.Has(b))
		assert.True(t, MaskWrite.Has(b))
		assert.True(t, Mask2Keyspace.Has(b))
	}
}

func TestParseModes(t *testing.T) {
	for _, name := range []string{"sync", "lazy", "nosync"} {
		mode, err := ParseSyncMode(name)
		require.NoError(t, err)
		assert.Equal(t, name, mode.String())
	}
	_, err := ParseSyncMode("eventually")
	assert.Error(t, err)

	for _, name := range []string{"indef", "walon", "waloff"} {
		mode, err := ParseWalMode(name)
		require.NoError(t, err)
		assert.Equal(t, name, mode.String())
	}
	_, err = ParseWalMode("maybe")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.DriverName = "debug"
	require.NoError(t, cfg.Validate())

	bad := *cfg
	bad.DriverName = ""
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Benchmarks = 0
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Count = 0
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.KeySize = 0
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.NRepeat = 0
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.BatchLength = 0
	assert.Error(t, bad.Validate())
}

func TestPrint(t *testing.T) {
	cfg := Default()
	cfg.DriverName = "debug"

	var buf bytes.Buffer
	cfg.Print(&buf)

	out := buf.String()
	assert.Contains(t, out, "database   = debug")
	assert.Contains(t, out, "benchmarks = set, get")
	assert.Contains(t, out, "sync mode  = lazy")
	assert.Contains(t, out, "WAL mode   = indef")
}
