package driver

import (
	"github.com/erigontech/mdbx-go/mdbx"

	"github.com/wesleyorama2/cbench/internal/config"
	"github.com/wesleyorama2/cbench/internal/keyer"
	"github.com/wesleyorama2/cbench/internal/output"
)

// mdbxDriver runs the benchmark against MDBX, the LMDB-lineage B-tree
// engine. Write benches open a fresh write transaction per Begin and commit
// in Done; read benches keep a renewable read-only transaction (plus a
// renewable cursor for iteration) per context, reset between blocks.
//
// MDBX pins write transactions to their OS thread; the harness locks every
// worker goroutine to a thread, which satisfies that.
type mdbxDriver struct {
	cfg *config.Config

	env *mdbx.Env
	dbi mdbx.DBI
}

type mdbxContext struct {
	txn *mdbx.Txn
	cur *mdbx.Cursor
}

const mdbxMapSize = 4 << 30

func init() {
	Register(&mdbxDriver{})
}

func (d *mdbxDriver) Name() string { return "mdbx" }

func (d *mdbxDriver) Open(cfg *config.Config, datadir string) Result {
	d.cfg = cfg

	env, err := mdbx.NewEnv(mdbx.Default)
	if err != nil {
		output.Errorf("error: %s.open: %v", d.Name(), err)
		return SystemError
	}

	if err := env.SetGeometry(-1, -1, mdbxMapSize, -1, -1, -1); err != nil {
		output.Errorf("error: %s.open: %v", d.Name(), err)
		env.Close()
		return SystemError
	}

	var modeflags uint
	switch cfg.SyncMode {
	case config.SyncFull:
		modeflags = mdbx.Durable
	case config.SyncLazy:
		modeflags = mdbx.SafeNoSync | mdbx.NoMetaSync
	case config.SyncNone:
		modeflags = mdbx.UtterlyNoSync | mdbx.WriteMap
	default:
		output.Errorf("error: %s.open: unsupported sync mode %s", d.Name(), cfg.SyncMode)
		env.Close()
		return SystemError
	}

	switch cfg.WalMode {
	case config.WalDefault, config.WalDisabled:
		// the engine has no WAL
	default:
		output.Errorf("error: %s.open: unsupported wal mode %s", d.Name(), cfg.WalMode)
		env.Close()
		return SystemError
	}

	if err := env.Open(datadir, modeflags|mdbx.NoReadahead, 0644); err != nil {
		output.Errorf("error: %s.open: %v", d.Name(), err)
		env.Close()
		return SystemError
	}

	if err := env.Update(func(txn *mdbx.Txn) error {
		dbi, err := txn.OpenRoot(0)
		if err != nil {
			return err
		}
		d.dbi = dbi
		return nil
	}); err != nil {
		output.Errorf("error: %s.open: %v", d.Name(), err)
		env.Close()
		return SystemError
	}

	d.env = env
	return Ok
}

func (d *mdbxDriver) Close() Result {
	if d.env != nil {
		d.env.CloseDBI(d.dbi)
		d.env.Close()
		d.env = nil
	}
	return Ok
}

func (d *mdbxDriver) ThreadNew() Context {
	return &mdbxContext{}
}

func (d *mdbxDriver) ThreadDispose(ctxp Context) {
	ctx := ctxp.(*mdbxContext)
	if ctx.cur != nil {
		ctx.cur.Close()
		ctx.cur = nil
	}
	if ctx.txn != nil {
		ctx.txn.Abort()
		ctx.txn = nil
	}
}

func (d *mdbxDriver) Begin(ctxp Context, bench config.BenchKind) Result {
	ctx := ctxp.(*mdbxContext)

	switch bench {
	case config.BenchSet, config.BenchBatch, config.BenchCrud, config.BenchDelete:
		// neither cursor nor transaction can be reused for read/write
		if ctx.cur != nil {
			ctx.cur.Close()
			ctx.cur = nil
		}
		if ctx.txn != nil {
			ctx.txn.Abort()
			ctx.txn = nil
		}
		txn, err := d.env.BeginTxn(nil, 0)
		if err != nil {
			output.Errorf("error: %s.begin(%s): %v", d.Name(), bench, err)
			return SystemError
		}
		ctx.txn = txn

	case config.BenchIterate, config.BenchGet:
		if ctx.txn != nil {
			if err := ctx.txn.Renew(); err != nil {
				ctx.txn.Abort()
				ctx.txn = nil
			}
		}
		if ctx.txn == nil {
			txn, err := d.env.BeginTxn(nil, mdbx.Readonly)
			if err != nil {
				output.Errorf("error: %s.begin(%s): %v", d.Name(), bench, err)
				return SystemError
			}
			ctx.txn = txn
		}

		if bench == config.BenchIterate {
			if ctx.cur != nil {
				if err := ctx.cur.Renew(ctx.txn); err != nil {
					ctx.cur.Close()
					ctx.cur = nil
				}
			}
			if ctx.cur == nil {
				cur, err := ctx.txn.OpenCursor(d.dbi)
				if err != nil {
					output.Errorf("error: %s.begin(%s): %v", d.Name(), bench, err)
					return SystemError
				}
				ctx.cur = cur
			}
		}
	}

	return Ok
}

func (d *mdbxDriver) Next(ctxp Context, bench config.BenchKind, kv *keyer.Record) Result {
	ctx := ctxp.(*mdbxContext)

	switch bench {
	case config.BenchSet:
		if err := ctx.txn.Put(d.dbi, kv.Key, kv.Value, 0); err != nil {
			output.Errorf("error: %s.next(%s): %v", d.Name(), bench, err)
			return SystemError
		}

	case config.BenchDelete:
		if err := ctx.txn.Del(d.dbi, kv.Key, nil); err != nil {
			if mdbx.IsNotFound(err) {
				return NotFound
			}
			output.Errorf("error: %s.next(%s): %v", d.Name(), bench, err)
			return SystemError
		}

	case config.BenchGet:
		if _, err := ctx.txn.Get(d.dbi, kv.Key); err != nil {
			if mdbx.IsNotFound(err) {
				return NotFound
			}
			output.Errorf("error: %s.next(%s): %v", d.Name(), bench, err)
			return SystemError
		}

	case config.BenchIterate:
		k, v, err := ctx.cur.Get(nil, nil, mdbx.Next)
		if err != nil {
			kv.Key = nil
			kv.Value = nil
			if mdbx.IsNotFound(err) {
				return NotFound
			}
			output.Errorf("error: %s.next(%s): %v", d.Name(), bench, err)
			return SystemError
		}
		kv.Key = k
		kv.Value = v
	}

	return Ok
}

func (d *mdbxDriver) Done(ctxp Context, bench config.BenchKind) Result {
	ctx := ctxp.(*mdbxContext)

	switch bench {
	case config.BenchSet, config.BenchBatch, config.BenchCrud, config.BenchDelete:
		if _, err := ctx.txn.Commit(); err != nil {
			ctx.txn = nil
			output.Errorf("error: %s.done(%s): %v", d.Name(), bench, err)
			return SystemError
		}
		ctx.txn = nil

	case config.BenchIterate, config.BenchGet:
		ctx.txn.Reset()
	}

	return Ok
}
