package driver

import (
	"errors"

	"github.com/cockroachdb/pebble"

	"github.com/wesleyorama2/cbench/internal/config"
	"github.com/wesleyorama2/cbench/internal/keyer"
	"github.com/wesleyorama2/cbench/internal/output"
)

// pebbleDriver runs the benchmark against Pebble, the embedded Go LSM
// engine. It is pure Go and therefore always registered.
//
// Batch and Crud group operations in a pebble.Batch committed in Done; Gets
// issued with a pending batch read the database underneath it, so NotFound
// there is expected and swallowed.
type pebbleDriver struct {
	cfg *config.Config

	db *pebble.DB
	wo *pebble.WriteOptions
}

type pebbleContext struct {
	it    *pebble.Iterator
	batch *pebble.Batch

	keyBuf []byte
	valBuf []byte
}

func init() {
	Register(&pebbleDriver{})
}

func (d *pebbleDriver) Name() string { return "pebble" }

func (d *pebbleDriver) Open(cfg *config.Config, datadir string) Result {
	d.cfg = cfg

	opts := &pebble.Options{}

	switch cfg.SyncMode {
	case config.SyncFull:
		d.wo = pebble.Sync
	case config.SyncLazy, config.SyncNone:
		d.wo = pebble.NoSync
	default:
		output.Errorf("error: %s.open: unsupported sync mode %s", d.Name(), cfg.SyncMode)
		return SystemError
	}

	switch cfg.WalMode {
	case config.WalDefault, config.WalEnabled:
		// the WAL is on by default
	case config.WalDisabled:
		opts.DisableWAL = true
	}

	db, err := pebble.Open(datadir, opts)
	if err != nil {
		output.Errorf("error: %s.open: %v", d.Name(), err)
		return SystemError
	}

	d.db = db
	return Ok
}

func (d *pebbleDriver) Close() Result {
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			output.Errorf("error: %s.close: %v", d.Name(), err)
			d.db = nil
			return SystemError
		}
		d.db = nil
	}
	return Ok
}

func (d *pebbleDriver) ThreadNew() Context {
	return &pebbleContext{}
}

func (d *pebbleDriver) ThreadDispose(ctxp Context) {
	ctx := ctxp.(*pebbleContext)
	if ctx.batch != nil {
		ctx.batch.Close()
		ctx.batch = nil
	}
	if ctx.it != nil {
		ctx.it.Close()
		ctx.it = nil
	}
}

func (d *pebbleDriver) Begin(ctxp Context, bench config.BenchKind) Result {
	ctx := ctxp.(*pebbleContext)

	switch bench {
	case config.BenchGet, config.BenchSet, config.BenchDelete:

	case config.BenchIterate:
		it, err := d.db.NewIter(nil)
		if err != nil {
			output.Errorf("error: %s.begin(%s): %v", d.Name(), bench, err)
			return SystemError
		}
		ctx.it = it
		ctx.it.First()

	case config.BenchBatch, config.BenchCrud:
		ctx.batch = d.db.NewBatch()
	}

	return Ok
}

func (d *pebbleDriver) Next(ctxp Context, bench config.BenchKind, kv *keyer.Record) Result {
	ctx := ctxp.(*pebbleContext)

	switch bench {
	case config.BenchSet:
		var err error
		if ctx.batch != nil {
			err = ctx.batch.Set(kv.Key, kv.Value, nil)
		} else {
			err = d.db.Set(kv.Key, kv.Value, d.wo)
		}
		if err != nil {
			output.Errorf("error: %s.next(%s): %v", d.Name(), bench, err)
			return SystemError
		}

	case config.BenchDelete:
		var err error
		if ctx.batch != nil {
			err = ctx.batch.Delete(kv.Key, nil)
		} else {
			err = d.db.Delete(kv.Key, d.wo)
		}
		if err != nil {
			output.Errorf("error: %s.next(%s): %v", d.Name(), bench, err)
			return SystemError
		}

	case config.BenchGet:
		val, closer, err := d.db.Get(kv.Key)
		if err != nil {
			if errors.Is(err, pebble.ErrNotFound) {
				if ctx.batch == nil {
					return NotFound
				}
				break
			}
			output.Errorf("error: %s.next(%s): %v", d.Name(), bench, err)
			return SystemError
		}
		n := copy(kv.Value, val)
		kv.Value = kv.Value[:n]
		closer.Close()

	case config.BenchIterate:
		if !ctx.it.Valid() {
			kv.Key = nil
			kv.Value = nil
			if err := ctx.it.Error(); err != nil {
				output.Errorf("error: %s.next(%s): %v", d.Name(), bench, err)
				return SystemError
			}
			return NotFound
		}
		// the iterator's slices are invalidated by Next; copy them out
		ctx.keyBuf = append(ctx.keyBuf[:0], ctx.it.Key()...)
		ctx.valBuf = append(ctx.valBuf[:0], ctx.it.Value()...)
		kv.Key = ctx.keyBuf
		kv.Value = ctx.valBuf
		ctx.it.Next()
	}

	return Ok
}

func (d *pebbleDriver) Done(ctxp Context, bench config.BenchKind) Result {
	ctx := ctxp.(*pebbleContext)

	switch bench {
	case config.BenchGet, config.BenchSet, config.BenchDelete:

	case config.BenchIterate:
		if ctx.it != nil {
			ctx.it.Close()
			ctx.it = nil
		}

	case config.BenchBatch, config.BenchCrud:
		if ctx.batch != nil {
			err := ctx.batch.Commit(d.wo)
			ctx.batch.Close()
			ctx.batch = nil
			if err != nil {
				output.Errorf("error: %s.done(%s): %v", d.Name(), bench, err)
				return SystemError
			}
		}
	}

	return Ok
}
