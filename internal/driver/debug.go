package driver

import (
	"sync/atomic"

	"github.com/wesleyorama2/cbench/internal/config"
	"github.com/wesleyorama2/cbench/internal/keyer"
	"github.com/wesleyorama2/cbench/internal/output"
)

// debugDriver is the no-op engine: it logs every call and succeeds. Useful
// to inspect the exact operation stream the harness generates and as the
// smoke-test target.
type debugDriver struct {
	nextCtx atomic.Int64
}

type debugContext struct {
	id int64
}

func init() {
	Register(&debugDriver{})
}

func (d *debugDriver) Name() string { return "debug" }

func (d *debugDriver) Open(_ *config.Config, datadir string) Result {
	output.Logf("%s.open(%s)", d.Name(), datadir)
	return Ok
}

func (d *debugDriver) Close() Result {
	output.Logf("%s.close()", d.Name())
	return Ok
}

func (d *debugDriver) ThreadNew() Context {
	ctx := &debugContext{id: d.nextCtx.Add(1)}
	output.Logf("%s.thread_new() = %#x", d.Name(), ctx.id)
	return ctx
}

func (d *debugDriver) ThreadDispose(ctx Context) {
	output.Logf("%s.thread_dispose(%#x)", d.Name(), ctx.(*debugContext).id)
}

func (d *debugDriver) Begin(ctx Context, bench config.BenchKind) Result {
	output.Logf("%s.begin(%#x, %s)", d.Name(), ctx.(*debugContext).id, bench)
	return Ok
}

func (d *debugDriver) Next(ctx Context, bench config.BenchKind, kv *keyer.Record) Result {
	id := ctx.(*debugContext).id

	switch bench {
	case config.BenchSet:
		output.Logf("%s.next(%#x, %s, %s -> %s)", d.Name(), id, bench, kv.Key, kv.Value)
	case config.BenchGet, config.BenchDelete:
		output.Logf("%s.next(%#x, %s, %s)", d.Name(), id, bench, kv.Key)
	case config.BenchIterate:
		output.Logf("%s.next(%#x, %s)", d.Name(), id, bench)
	}

	return Ok
}

func (d *debugDriver) Done(ctx Context, bench config.BenchKind) Result {
	output.Logf("%s.done(%#x, %s)", d.Name(), ctx.(*debugContext).id, bench)
	return Ok
}
