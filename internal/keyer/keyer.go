// Package keyer generates the deterministic key/value streams driven through
// the storage engines. Every worker owns private Keyers; all of them share
// one process-wide seed box, so a given (space, sector, options, seed)
// quadruple produces the same byte stream in every run and every process.
package keyer

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"

	"github.com/wesleyorama2/cbench/internal/output"
)

// Record is a key/value pair passed between the generator, the driver, and
// the harness. Both slices are borrowed: a driver must not retain them past
// the call, and slices handed out by a Keyer are valid until its next call.
type Record struct {
	Key   []byte
	Value []byte
}

// Options fixes the geometry of a key stream.
type Options struct {
	Binary bool

	Count     uint64
	KeySize   int
	ValueSize int

	SpacesCount  int
	SectorsCount int
}

// Keyer emits an infinite cyclic sequence of Records over a single
// (space, sector) slice of the key pool. It is owned by exactly one
// goroutine and holds the buffer its Records point into.
type Keyer struct {
	opts Options

	// width is the arithmetic lane of the injection, in bytes.
	width int

	base   uint64
	serial uint64

	buf []byte
}

const (
	// injectionSalt is an odd constant folded in before the seed box; it is
	// prime modulo 2^{8,16,24,32,40,48,56,64} so the add stays bijective on
	// every lane width.
	injectionSalt = 0x8B5A3C9F3D9B3AC3

	remixSalt = 0x61654A6B5A6A2DC3
)

// alphabet is the 64-symbol printable alphabet; 64 = 2 + 10 + 26 + 26.
var alphabet = [64]byte{
	'@', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9', 'a', 'b',
	'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm', 'n', 'o',
	'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z', 'A', 'B',
	'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M', 'N', 'O',
	'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z', '_',
}

// bitmask returns a mask with the low n bits set; bitmask(64) is all ones.
func bitmask(n uint) uint64 {
	return ^uint64(0) >> (64 - n)
}

// align8 rounds n up to an 8-byte boundary.
func align8(n int) int {
	return (n + 7) &^ 7
}

// New constructs a Keyer for one (space, sector). It fails when the key pool
// cannot be represented in 64-bit arithmetic or when KeySize cannot encode
// the chosen width in the chosen alphabet; both are misconfigurations the
// caller treats as fatal.
func New(space, sector int, opts Options) (*Keyer, error) {
	maxkey := opts.Count * uint64(opts.SpacesCount)
	if maxkey < 2 {
		return nil, fmt.Errorf("key-gen: a pool of %d keys across %d spaces is too small",
			opts.Count, opts.SpacesCount)
	}

	var width int
	for b := uint(16); ; b += 8 {
		if b > 64 {
			return nil, fmt.Errorf(
				"key-gen: %d sectors of %d items is too huge, unable to provide by 64-bit arithmetics, at least %d bits required",
				opts.SectorsCount, opts.Count, bits.Len64(maxkey))
		}
		if maxkey < bitmask(b) {
			width = int(b / 8)
			break
		}
	}

	cardinality := 64.0
	if opts.Binary {
		cardinality = 256.0
	}
	bytesForMaxkey := math.Log(float64(bitmask(uint(width*8)))) / math.Log(cardinality)
	if bytesForMaxkey > float64(opts.KeySize) {
		kind := "printable"
		if opts.Binary {
			kind = "binary"
		}
		return nil, fmt.Errorf(
			"key-gen: key-length %d is insufficient for %d sectors of %d %s items, at least %d required",
			opts.KeySize, opts.SectorsCount, opts.Count, kind, int(math.Ceil(bytesForMaxkey)))
	}

	output.Logf("key-gen: using %d bits, up to %d keys", width*8, maxkey)

	k := &Keyer{
		opts:  opts,
		width: width,
		base:  uint64(space) * opts.Count,
	}
	k.buf = make([]byte, k.recordBytes())

	if sector != 0 {
		k.serial = opts.Count * uint64(sector) / uint64(opts.SectorsCount) % opts.Count
	}

	return k, nil
}

// Options returns the geometry the Keyer was built with.
func (k *Keyer) Options() Options { return k.opts }

// recordBytes is the packed size of one record in the internal buffer.
func (k *Keyer) recordBytes() int {
	if k.opts.Binary {
		return align8(k.opts.KeySize) + align8(k.opts.ValueSize)
	}
	n := k.opts.KeySize + 1
	if k.opts.ValueSize > 0 {
		n += k.opts.ValueSize + 1
	}
	return n
}

// Next packs the next record of the schedule into the internal buffer and
// points rec at it. With keyOnly the value is neither generated nor exposed.
func (k *Keyer) Next(rec *Record, keyOnly bool) {
	rec.Key = k.buf[:k.opts.KeySize]
	rec.Value = nil
	if !keyOnly {
		if k.opts.Binary {
			rec.Value = k.buf[align8(k.opts.KeySize) : align8(k.opts.KeySize)+k.opts.ValueSize]
		} else {
			rec.Value = k.buf[k.opts.KeySize+1 : k.opts.KeySize+1+k.opts.ValueSize]
		}
	}

	point := k.base + k.serial
	k.serial = (k.serial + 1) % k.opts.Count

	vsize := 0
	if !keyOnly {
		vsize = k.opts.ValueSize
	}
	k.recordPair(vsize, point, k.buf)
}

// recordPair packs key (and optionally value) bytes for one schedule point
// into dst, returning the number of bytes written.
func (k *Keyer) recordPair(vsize int, point uint64, dst []byte) int {
	point = k.injection(point)
	n := k.fill(&point, dst, k.opts.KeySize)

	if vsize != 0 {
		point = remix(point)
		n += k.fill(&point, dst[n:], vsize)
	}

	return n
}

// fill emits length symbols (printable) or length bytes rounded up to whole
// little-endian words (binary) derived from *point, remixing whenever the
// current width-wide window runs out of fresh bits. It returns the number of
// bytes written and leaves the final point value in *point.
func (k *Keyer) fill(point *uint64, dst []byte, length int) int {
	if !k.opts.Binary {
		acc := *point
		left := k.width * 8

		pos := 0
		for {
			dst[pos] = alphabet[acc&63]
			pos++
			length--
			if length == 0 {
				break
			}
			acc >>= 6
			left -= 6
			if left < 6 {
				*point = remix(*point + acc)
				acc = *point
				left = k.width * 8
			}
		}
		dst[pos] = 0
		return pos + 1
	}

	// Binary mode emits whole 8-byte words; the buffer layout guarantees
	// the aligned room.
	pos := 0
	for length = align8(length); ; {
		binary.LittleEndian.PutUint64(dst[pos:], *point)
		pos += 8
		length -= 8
		if length <= 0 {
			break
		}
		*point = remix(*point)
	}
	return pos
}

// injection maps a schedule point one-to-one onto the key domain: it is the
// collision-free "hash" of a number, since input and output sets have equal
// cardinality. The per-width multipliers keep the xor-multiply-xor rounds
// bijective on their lane.
func (k *Keyer) injection(x uint64) uint64 {
	x += injectionSalt

	// stirs the bits above the 11 index bits; the index bits stay intact so
	// the step remains invertible on every lane
	x ^= uint64(seedBox[x&(seedBoxSize-1)]) << 11

	switch k.width {
	case 1:
		y := uint8(x)
		y ^= y >> 1
		y *= 113
		y ^= y << 2
		return uint64(y)
	case 2:
		y := uint16(x)
		y ^= y >> 1
		y *= 25693
		y ^= y << 7
		return uint64(y)
	case 3:
		const m = uint32(1)<<24 - 1
		y := uint32(x) & m
		y ^= y >> 1
		y *= 5537317
		y ^= y << 12
		return uint64(y & m)
	case 4:
		y := uint32(x)
		y ^= y >> 1
		y *= 1923730889
		y ^= y << 15
		return uint64(y)
	case 5:
		const m = uint64(1)<<40 - 1
		y := x & m
		y ^= y >> 1
		y *= 274992889273
		y ^= y << 13
		return y & m
	case 6:
		const m = uint64(1)<<48 - 1
		y := x & m
		y ^= y >> 1
		y *= 70375646670269
		y ^= y << 15
		return y & m
	case 7:
		const m = uint64(1)<<56 - 1
		y := x & m
		y ^= y >> 1
		y *= 23022548244171181
		y ^= y << 4
		return y & m
	case 8:
		y := x
		y ^= y >> 1
		y *= 4613509448041658233
		y ^= y << 25
		return y
	}

	panic(fmt.Sprintf("keyer: impossible width %d", k.width))
}

// remix is the fast and dirty stir used between key and value and across
// 8-byte value spans. Unlike injection it need not be bijective.
func remix(point uint64) uint64 {
	return point ^ (bits.RotateLeft64(point, 47) + remixSalt)
}
