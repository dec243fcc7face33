package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProfile = `
database: pebble
benchmarks: [set, get, crud]
operations: 5000
keySize: 24
syncMode: nosync
walMode: waloff
readThreads: 2
writeThreads: 1
seed: 7
batchLength: 100
binary: true
ignoreNotFound: true
`

func writeProfile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadProfile(t *testing.T) {
	cfg := Default()
	require.NoError(t, LoadProfile(writeProfile(t, sampleProfile), cfg))

	assert.Equal(t, "pebble", cfg.DriverName)
	assert.Equal(t, BenchSet.Mask()|BenchGet.Mask()|BenchCrud.Mask(), cfg.Benchmarks)
	assert.EqualValues(t, 5000, cfg.Count)
	assert.Equal(t, 24, cfg.KeySize)
	assert.Equal(t, SyncNone, cfg.SyncMode)
	assert.Equal(t, WalDisabled, cfg.WalMode)
	assert.Equal(t, 2, cfg.ReadThreads)
	assert.Equal(t, 1, cfg.WriteThreads)
	assert.EqualValues(t, 7, cfg.KVSeed)
	assert.Equal(t, 100, cfg.BatchLength)
	assert.True(t, cfg.Binary)
	assert.True(t, cfg.IgnoreNotFound)

	// untouched fields keep their defaults
	assert.Equal(t, 32, cfg.ValueSize)
	assert.Equal(t, 1, cfg.NRepeat)
}

func TestLoadProfilePartial(t *testing.T) {
	cfg := Default()
	base := *cfg

	require.NoError(t, LoadProfile(writeProfile(t, "operations: 123\n"), cfg))

	assert.EqualValues(t, 123, cfg.Count)
	assert.Equal(t, base.KeySize, cfg.KeySize)
	assert.Equal(t, base.Benchmarks, cfg.Benchmarks)
}

func TestLoadProfileErrors(t *testing.T) {
	cfg := Default()

	assert.Error(t, LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"), cfg))
	assert.Error(t, LoadProfile(writeProfile(t, "benchmarks: [scan]\n"), cfg))
	assert.Error(t, LoadProfile(writeProfile(t, "syncMode: eventually\n"), cfg))
	assert.Error(t, LoadProfile(writeProfile(t, ": not yaml ["), cfg))
}
