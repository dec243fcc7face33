//go:build rocksdb

package driver

import (
	"github.com/linxGnu/grocksdb"

	"github.com/wesleyorama2/cbench/internal/config"
	"github.com/wesleyorama2/cbench/internal/keyer"
	"github.com/wesleyorama2/cbench/internal/output"
)

// rocksdbDriver runs the benchmark against RocksDB through grocksdb. It
// needs the system librocksdb; build with -tags rocksdb to enable it.
//
// Batch and Crud group their operations in a WriteBatch committed in Done.
// Gets issued while a batch is pending read the database underneath it, so
// a NotFound there is expected and swallowed.
type rocksdbDriver struct {
	cfg *config.Config

	db *grocksdb.DB
	ro *grocksdb.ReadOptions
	wo *grocksdb.WriteOptions
}

type rocksdbContext struct {
	it    *grocksdb.Iterator
	batch *grocksdb.WriteBatch

	keyBuf []byte
	valBuf []byte
}

func init() {
	Register(&rocksdbDriver{})
}

func (d *rocksdbDriver) Name() string { return "rocksdb" }

func (d *rocksdbDriver) Open(cfg *config.Config, datadir string) Result {
	d.cfg = cfg

	opts := grocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)
	opts.SetCompression(grocksdb.NoCompression)

	d.ro = grocksdb.NewDefaultReadOptions()
	d.ro.SetFillCache(false)

	d.wo = grocksdb.NewDefaultWriteOptions()

	switch cfg.SyncMode {
	case config.SyncFull:
		d.wo.SetSync(true)
		opts.SetUseFsync(true)
	case config.SyncLazy, config.SyncNone:
		d.wo.SetSync(false)
	default:
		output.Errorf("error: %s.open: unsupported sync mode %s", d.Name(), cfg.SyncMode)
		return SystemError
	}

	switch cfg.WalMode {
	case config.WalDefault:
	case config.WalEnabled:
		d.wo.DisableWAL(false)
	case config.WalDisabled:
		d.wo.DisableWAL(true)
	}

	db, err := grocksdb.OpenDb(opts, datadir)
	if err != nil {
		output.Errorf("error: %s.open: %v", d.Name(), err)
		return SystemError
	}

	d.db = db
	return Ok
}

func (d *rocksdbDriver) Close() Result {
	if d.db != nil {
		d.db.Close()
		d.db = nil
	}
	return Ok
}

func (d *rocksdbDriver) ThreadNew() Context {
	return &rocksdbContext{}
}

func (d *rocksdbDriver) ThreadDispose(ctxp Context) {
	ctx := ctxp.(*rocksdbContext)
	if ctx.batch != nil {
		ctx.batch.Destroy()
		ctx.batch = nil
	}
	if ctx.it != nil {
		ctx.it.Close()
		ctx.it = nil
	}
}

func (d *rocksdbDriver) Begin(ctxp Context, bench config.BenchKind) Result {
	ctx := ctxp.(*rocksdbContext)

	switch bench {
	case config.BenchGet, config.BenchSet, config.BenchDelete:

	case config.BenchIterate:
		ctx.it = d.db.NewIterator(d.ro)
		ctx.it.SeekToFirst()

	case config.BenchBatch, config.BenchCrud:
		ctx.batch = grocksdb.NewWriteBatch()
	}

	return Ok
}

func (d *rocksdbDriver) Next(ctxp Context, bench config.BenchKind, kv *keyer.Record) Result {
	ctx := ctxp.(*rocksdbContext)

	switch bench {
	case config.BenchSet:
		if ctx.batch != nil {
			ctx.batch.Put(kv.Key, kv.Value)
			break
		}
		if err := d.db.Put(d.wo, kv.Key, kv.Value); err != nil {
			output.Errorf("error: %s.next(%s): %v", d.Name(), bench, err)
			return SystemError
		}

	case config.BenchDelete:
		if ctx.batch != nil {
			ctx.batch.Delete(kv.Key)
			break
		}
		if err := d.db.Delete(d.wo, kv.Key); err != nil {
			output.Errorf("error: %s.next(%s): %v", d.Name(), bench, err)
			return SystemError
		}

	case config.BenchGet:
		v, err := d.db.Get(d.ro, kv.Key)
		if err != nil {
			output.Errorf("error: %s.next(%s): %v", d.Name(), bench, err)
			return SystemError
		}
		exists := v.Exists()
		if exists {
			// bound the copy: the stored value may be longer than the
			// caller's buffer
			n := copy(kv.Value, v.Data())
			kv.Value = kv.Value[:n]
		}
		v.Free()
		if !exists && ctx.batch == nil {
			return NotFound
		}

	case config.BenchIterate:
		if !ctx.it.Valid() {
			kv.Key = nil
			kv.Value = nil
			if err := ctx.it.Err(); err != nil {
				output.Errorf("error: %s.next(%s): %v", d.Name(), bench, err)
				return SystemError
			}
			return NotFound
		}

		k := ctx.it.Key()
		ctx.keyBuf = append(ctx.keyBuf[:0], k.Data()...)
		kv.Key = ctx.keyBuf
		k.Free()

		v := ctx.it.Value()
		ctx.valBuf = append(ctx.valBuf[:0], v.Data()...)
		kv.Value = ctx.valBuf
		v.Free()

		ctx.it.Next()
	}

	return Ok
}

func (d *rocksdbDriver) Done(ctxp Context, bench config.BenchKind) Result {
	ctx := ctxp.(*rocksdbContext)

	switch bench {
	case config.BenchGet, config.BenchSet, config.BenchDelete:

	case config.BenchIterate:
		if ctx.it != nil {
			ctx.it.Close()
			ctx.it = nil
		}

	case config.BenchBatch, config.BenchCrud:
		if ctx.batch != nil {
			err := d.db.Write(d.wo, ctx.batch)
			ctx.batch.Destroy()
			ctx.batch = nil
			if err != nil {
				output.Errorf("error: %s.done(%s): %v", d.Name(), bench, err)
				return SystemError
			}
		}
	}

	return Ok
}
