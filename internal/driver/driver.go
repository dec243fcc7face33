// Package driver defines the storage-engine facade the benchmark core drives,
// and hosts the engine implementations behind it. Engines register themselves
// at init time; the runner looks them up by name and only ever talks through
// the Driver interface.
package driver

import (
	"strings"

	"github.com/wesleyorama2/cbench/internal/config"
	"github.com/wesleyorama2/cbench/internal/keyer"
)

// Result classifies the outcome of a driver call.
type Result int

const (
	Ok Result = iota
	NotFound
	SystemError
	UnexpectedError
)

// Failed reports whether the result is anything but Ok.
func (r Result) Failed() bool { return r != Ok }

func (r Result) String() string {
	switch r {
	case Ok:
		return "ok"
	case NotFound:
		return "not-found"
	case SystemError:
		return "system-error"
	case UnexpectedError:
		return "unexpected-error"
	default:
		return "???"
	}
}

// Context is the opaque per-thread state a driver hands out. Contexts must
// not be shared between workers; given that, every Driver method is safe to
// call from multiple threads concurrently.
type Context interface{}

// Driver is the universal facade over a storage engine. Operations run in
// Begin -> Next... -> Done blocks; Begin and Done exist so engines can wrap
// the block in a transaction or a write batch when they support one. The
// core guarantees call order only, never atomicity.
//
// Record memory handed back through Next belongs to the driver within the
// Context's lifetime; the core copies whatever it needs before the next
// call and never retains the slices.
type Driver interface {
	// Name returns the driver name used in logs and on the CLI, lowercase.
	Name() string

	// Open connects to the database; called once, before any thread starts.
	Open(cfg *config.Config, datadir string) Result

	// Close disconnects; called once at the very end.
	Close() Result

	// ThreadNew creates the per-thread context, nil on failure.
	ThreadNew() Context

	// ThreadDispose releases a context created by ThreadNew.
	ThreadDispose(ctx Context)

	Begin(ctx Context, bench config.BenchKind) Result
	Next(ctx Context, bench config.BenchKind, kv *keyer.Record) Result
	Done(ctx Context, bench config.BenchKind) Result
}

var (
	registry      = map[string]Driver{}
	registryOrder []string
)

// Register adds a driver singleton to the registry. Called from init
// functions; not safe for concurrent use and not meant to be.
func Register(d Driver) {
	name := d.Name()
	if _, dup := registry[name]; dup {
		panic("driver: duplicate registration of " + name)
	}
	registry[name] = d
	registryOrder = append(registryOrder, name)
}

// Lookup resolves a driver by name.
func Lookup(name string) (Driver, bool) {
	d, ok := registry[name]
	return d, ok
}

// Supported lists the registered driver names in registration order.
func Supported() string {
	return strings.Join(registryOrder, ", ")
}
