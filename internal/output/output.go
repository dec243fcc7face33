// Package output provides console output for the benchmark harness.
//
// All operator-facing text goes through this package so that color handling
// and the --no-color override live in one place. Summary lines emitted on
// the benchmark cadence are plain fmt formatting; colors are reserved for
// headers, completion notes, and error diagnostics.
package output

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

var scheme = DefaultColorScheme()

// Configure applies the --no-color override; colors are also dropped when
// stdout is not a terminal.
func Configure(noColor bool) {
	if noColor || !IsTerminal() {
		scheme = NoColorScheme()
	}
}

// Logf prints one line to stdout. The trailing newline is implied.
func Logf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, format+"\n", args...)
}

// Headerf prints one section-header line to stdout.
func Headerf(format string, args ...interface{}) {
	fmt.Fprintln(os.Stdout, scheme.Header.Sprintf(format, args...))
}

// Successf prints one highlighted line to stdout.
func Successf(format string, args ...interface{}) {
	fmt.Fprintln(os.Stdout, scheme.Success.Sprintf(format, args...))
}

// Errorf prints one line to stderr.
func Errorf(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, scheme.Error.Sprintf(format, args...))
}

// Fatalf prints a diagnostic to stderr and terminates the process.
// Reserved for misconfiguration that must never be handled locally.
func Fatalf(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, scheme.Error.Sprintf("\n*** cbench fatal: "+format, args...))
	os.Exit(1)
}

// IsTerminal reports whether stdout is attached to a TTY.
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
