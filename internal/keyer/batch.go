package keyer

import "errors"

// ErrExhausted is returned by Batch.Load once the pool runs dry.
var ErrExhausted = errors.New("keyer: batch pool exhausted")

// Batch is a pre-computed, non-restartable pool of consecutive Records.
// It exists so a driver transaction can enclose many operations without
// interleaved generator work on the hot path.
type Batch struct {
	gen *Keyer

	buf []byte
	pos int
	end int
}

// Batch materializes poolSize consecutive Records of the schedule into one
// buffer, advancing the Keyer's serial as if Next had been called poolSize
// times.
func (k *Keyer) Batch(poolSize int) *Batch {
	buf := make([]byte, k.recordBytes()*poolSize)

	pos := 0
	for i := 0; i < poolSize; i++ {
		pos += k.recordPair(k.opts.ValueSize, k.base+k.serial, buf[pos:])
		k.serial = (k.serial + 1) % k.opts.Count
	}

	return &Batch{gen: k, buf: buf, end: pos}
}

// Load slices the next record out of the pool.
func (b *Batch) Load(rec *Record) error {
	if b.end-b.pos < b.gen.recordBytes() {
		return ErrExhausted
	}

	opts := b.gen.opts

	rec.Key = b.buf[b.pos : b.pos+opts.KeySize]
	if opts.Binary {
		b.pos += align8(opts.KeySize)
	} else {
		b.pos += opts.KeySize + 1
	}

	rec.Value = nil
	if opts.ValueSize > 0 {
		rec.Value = b.buf[b.pos : b.pos+opts.ValueSize]
		if opts.Binary {
			b.pos += align8(opts.ValueSize)
		} else {
			b.pos += opts.ValueSize + 1
		}
	}

	return nil
}
