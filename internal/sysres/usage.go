// Package sysres samples OS-level resource usage: process rusage counters
// plus the on-disk footprint of the datadir. The runner snapshots before and
// after a run and prints the delta.
package sysres

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/wesleyorama2/cbench/internal/clock"
	"github.com/wesleyorama2/cbench/internal/output"
)

// Usage is one opaque resource snapshot. Fields are totals since process
// start; only deltas between two snapshots are meaningful.
type Usage struct {
	RAM  int64
	Disk int64

	IopsRead  int64
	IopsWrite int64
	IopsPage  int64

	CPUUserNs   int64
	CPUKernelNs int64
}

// Load samples the current process rusage and walks datadir for its disk
// footprint. An empty datadir skips the walk.
func Load(datadir string) (*Usage, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return nil, fmt.Errorf("getrusage: %w", err)
	}

	var disk int64
	if datadir != "" {
		err := filepath.WalkDir(datadir, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() {
				info, err := d.Info()
				if err != nil {
					return err
				}
				disk += info.Size()
			}
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("disk usage of %s: %w", datadir, err)
		}
	}

	return &Usage{
		// ru_maxrss is kilobytes on Linux
		RAM:  ru.Maxrss * 1024,
		Disk: disk,

		IopsRead:  ru.Inblock,
		IopsWrite: ru.Oublock,
		IopsPage:  ru.Majflt,

		CPUUserNs:   ru.Utime.Sec*int64(clock.S) + ru.Utime.Usec*1000,
		CPUKernelNs: ru.Stime.Sec*int64(clock.S) + ru.Stime.Usec*1000,
	}, nil
}

// PrintDelta prints the before/after resource difference table.
func PrintDelta(start, finish *Usage) {
	output.Headerf("\n>>>>>>>>>>>>>>>>>>>>> resources summary <<<<<<<<<<<<<<<<<<<<<")

	output.Logf("iops: read %d, write %d, page %d",
		finish.IopsRead-start.IopsRead,
		finish.IopsWrite-start.IopsWrite,
		finish.IopsPage-start.IopsPage)

	output.Logf("cpu: user %f, system %f",
		float64(finish.CPUUserNs-start.CPUUserNs)/float64(clock.S),
		float64(finish.CPUKernelNs-start.CPUKernelNs)/float64(clock.S))

	const mb = float64(1 << 20)
	output.Logf("space: disk %f, ram %f",
		float64(finish.Disk-start.Disk)/mb,
		float64(finish.RAM-start.RAM)/mb)
}
