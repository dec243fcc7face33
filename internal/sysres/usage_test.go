package sysres

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), make([]byte, 1000), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b"), make([]byte, 500), 0644))

	u, err := Load(dir)
	require.NoError(t, err)

	assert.EqualValues(t, 1500, u.Disk, "disk usage must sum all files recursively")
	assert.Positive(t, u.RAM)
	assert.GreaterOrEqual(t, u.CPUUserNs+u.CPUKernelNs, int64(0))
}

func TestLoadWithoutDatadir(t *testing.T) {
	u, err := Load("")
	require.NoError(t, err)
	assert.Zero(t, u.Disk)
}

func TestLoadMissingDatadirIsTolerated(t *testing.T) {
	u, err := Load(filepath.Join(t.TempDir(), "not-created-yet"))
	require.NoError(t, err)
	assert.Zero(t, u.Disk)
}

func TestDeltaIsMeaningful(t *testing.T) {
	dir := t.TempDir()

	before, err := Load(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "grow"), make([]byte, 4096), 0644))

	after, err := Load(dir)
	require.NoError(t, err)

	assert.EqualValues(t, 4096, after.Disk-before.Disk)
	assert.GreaterOrEqual(t, after.CPUUserNs, before.CPUUserNs)
}
