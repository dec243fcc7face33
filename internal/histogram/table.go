package histogram

import "github.com/wesleyorama2/cbench/internal/clock"

// BucketCount is the number of latency buckets every measurement carries.
const BucketCount = 167

// bounds holds the upper bound (inclusive domain split: bucket i covers
// (bounds[i-1], bounds[i]]) of every latency bucket, in nanoseconds. The
// table is strictly increasing and the sentinel top covers [0, inf).
var bounds = makeBounds()

// line12to100 appends the 16-step 12..100 progression scaled by m; ten of
// these blocks give near-logarithmic resolution from 12ns to 100s.
func line12to100(dst []uint64, m uint64) []uint64 {
	for _, f := range [...]uint64{12, 14, 16, 18, 20, 25, 30, 35, 40, 45, 50, 60, 70, 80, 90, 100} {
		dst = append(dst, m*f)
	}
	return dst
}

func makeBounds() [BucketCount]uint64 {
	t := make([]uint64, 0, BucketCount)

	t = append(t, 9)
	for _, m := range [...]uint64{
		1, 10, 100,
		clock.US, clock.US * 10, clock.US * 100,
		clock.MS, clock.MS * 10, clock.MS * 100,
		clock.S,
	} {
		t = line12to100(t, m)
	}
	t = append(t,
		clock.S*5*60,
		clock.S*30*60,
		clock.S*3600*4,
		clock.S*3600*8,
		clock.S*3600*24,
		^uint64(0),
	)

	if len(t) != BucketCount {
		panic("histogram: bucket table size mismatch")
	}

	var out [BucketCount]uint64
	copy(out[:], t)
	return out
}
