// Package clock provides the monotonic nanosecond timestamps all latency
// accounting is based on, plus the humanized number formatting used by the
// reports.
package clock

import (
	"fmt"
	"time"
)

// Nanosecond multiples used throughout the latency tables.
const (
	US = uint64(1000)
	MS = uint64(1000000)
	S  = uint64(1000000000)
)

var epoch = time.Now()

// Now returns monotonic nanoseconds since process start. Subtraction of two
// readings is immune to wall-clock adjustment.
func Now() uint64 {
	return uint64(time.Since(epoch))
}

var (
	decSuffixes = [...]byte{'K', 'M', 'G', 'T', 'P', 'E', 'Z', 'Y', 'R', 'Q'}
	incSuffixes = [...]byte{'m', 'u', 'n', 'p', 'f', 'a', 'z', 'y', 'r', 'q'}
)

// HumanNum renders val with a metric magnitude suffix and an optional unit,
// e.g. 1530000 -> "1.530M" and 0.00042 with unit "s" -> "420.000us".
func HumanNum(val float64, unit string) string {
	suffix := byte(' ')

	for i := 0; val > 995 && i < len(decSuffixes); i++ {
		val *= 1e-3
		suffix = decSuffixes[i]
	}
	for i := 0; val < 1 && i < len(incSuffixes); i++ {
		val *= 1e3
		suffix = incSuffixes[i]
	}

	if suffix == ' ' {
		return fmt.Sprintf("%0.3f%s", val, unit)
	}
	return fmt.Sprintf("%0.3f%c%s", val, suffix, unit)
}

// HumanLat renders a nanosecond latency in seconds with a magnitude suffix.
func HumanLat(ns uint64) string {
	return HumanNum(float64(ns)/float64(S), "s")
}
