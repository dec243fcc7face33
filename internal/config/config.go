// Package config holds the benchmark run configuration: the selected driver
// and bench kinds, workload geometry, durability modes, and thread counts.
package config

import (
	"fmt"
	"io"
	"runtime"
)

// Config is the full description of one benchmark run.
type Config struct {
	DriverName string
	Dirname    string
	Benchmarks BenchMask

	Count     uint64
	KeySize   int
	ValueSize int

	WalMode  WalMode
	SyncMode SyncMode

	ReadThreads  int
	WriteThreads int

	KVSeed      int64
	NRepeat     int
	BatchLength int

	Binary               bool
	Separate             bool
	IgnoreNotFound       bool
	ContinuousCompleting bool
}

// Default returns the configuration the CLI starts from before flags and
// profile files are applied.
func Default() *Config {
	ncpu := runtime.NumCPU()
	return &Config{
		Dirname:      "./_cbench.tmp",
		Benchmarks:   BenchSet.Mask() | BenchGet.Mask(),
		Count:        1_000_000,
		KeySize:      16,
		ValueSize:    32,
		WalMode:      WalDefault,
		SyncMode:     SyncLazy,
		ReadThreads:  ncpu,
		WriteThreads: ncpu,
		KVSeed:       42,
		NRepeat:      1,
		BatchLength:  500,
	}
}

// Validate rejects configurations the runner cannot execute. Keyer geometry
// is checked separately at keyer construction.
func (c *Config) Validate() error {
	if c.DriverName == "" {
		return fmt.Errorf("no database driver selected")
	}
	if c.Benchmarks == 0 {
		return fmt.Errorf("no benchmarks selected")
	}
	if c.Count < 1 {
		return fmt.Errorf("operation count must be at least 1, got %d", c.Count)
	}
	if c.KeySize < 1 {
		return fmt.Errorf("key size must be at least 1, got %d", c.KeySize)
	}
	if c.ValueSize < 0 {
		return fmt.Errorf("value size must not be negative, got %d", c.ValueSize)
	}
	if c.ReadThreads < 0 || c.WriteThreads < 0 {
		return fmt.Errorf("thread counts must not be negative")
	}
	if c.NRepeat < 1 {
		return fmt.Errorf("nrepeat must be at least 1, got %d", c.NRepeat)
	}
	if c.BatchLength < 1 {
		return fmt.Errorf("batch length must be at least 1, got %d", c.BatchLength)
	}
	return nil
}

// Print writes the configuration dump emitted at the start of every run.
func (c *Config) Print(w io.Writer) {
	yesno := func(v bool) string {
		if v {
			return "yes"
		}
		return "no"
	}

	fmt.Fprintf(w, "Configuration:\n")
	fmt.Fprintf(w, "\tdatabase   = %s\n", c.DriverName)
	fmt.Fprintf(w, "\tdirname    = %s\n", c.Dirname)
	fmt.Fprintf(w, "\tbenchmarks = %s\n", c.Benchmarks)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "\toperations = %d\n", c.Count)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "\tWAL mode   = %s\n", c.WalMode)
	fmt.Fprintf(w, "\tsync mode  = %s\n", c.SyncMode)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "\tkey size   = %d\n", c.KeySize)
	fmt.Fprintf(w, "\tvalue size = %d\n", c.ValueSize)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "\tr-threads    = %d\n", c.ReadThreads)
	fmt.Fprintf(w, "\tw-threads    = %d\n", c.WriteThreads)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "\tbinary                = %s\n", yesno(c.Binary))
	fmt.Fprintf(w, "\tseparate              = %s\n", yesno(c.Separate))
	fmt.Fprintf(w, "\tignore not found      = %s\n", yesno(c.IgnoreNotFound))
	fmt.Fprintf(w, "\tcontinuous completing = %s\n", yesno(c.ContinuousCompleting))
	fmt.Fprintf(w, "\n")
}
