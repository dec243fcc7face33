// Package cli wires the cbench command line: one root command that runs a
// benchmark, configured through flags and an optional yaml profile.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/wesleyorama2/cbench/internal/bench"
	"github.com/wesleyorama2/cbench/internal/config"
	"github.com/wesleyorama2/cbench/internal/driver"
	"github.com/wesleyorama2/cbench/internal/histogram"
	"github.com/wesleyorama2/cbench/internal/output"
	"github.com/wesleyorama2/cbench/internal/telemetry"
)

var version = "0.1.0"

var flags struct {
	database   string
	benchmarks []string
	syncMode   string
	walMode    string
	dirname    string

	count     uint64
	keySize   int
	valueSize int

	readThreads  int
	writeThreads int

	seed        int64
	nrepeat     int
	batchLength int

	binary         bool
	separate       bool
	ignoreNotFound bool
	continuous     bool

	profile     string
	metricsAddr string
	noColor     bool
}

// RootCmd is the single cbench command; there are no subcommands.
var RootCmd = &cobra.Command{
	Use:     "cbench",
	Short:   "Comparative benchmark for embedded key-value stores",
	Version: version,
	Long: `Cbench drives embedded storage engines through a uniform workload,
collects per-operation latencies under multiple concurrent workers, and
reports latency distributions plus OS-level resource usage.`,
	SilenceErrors: true,
	RunE:          runBench,
}

// Execute runs the root command. Called by main.main(); the returned error
// selects the process exit code.
func Execute() error {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

func init() {
	defaults := config.Default()
	fl := RootCmd.Flags()

	fl.StringVarP(&flags.database, "database", "D", "",
		"target database, choices: "+driver.Supported())
	fl.StringSliceVarP(&flags.benchmarks, "benchmark", "B", []string{"set", "get"},
		"load type, choices: set, get, delete, iterate, batch, crud")
	fl.StringVarP(&flags.syncMode, "sync-mode", "M", defaults.SyncMode.String(),
		"database sync mode, choices: sync, nosync, lazy")
	fl.StringVarP(&flags.walMode, "wal-mode", "W", defaults.WalMode.String(),
		"database wal mode: indef, walon, waloff")
	fl.StringVarP(&flags.dirname, "dirname", "P", defaults.Dirname,
		"dirname for temporary files & reports")

	fl.Uint64VarP(&flags.count, "operations", "n", defaults.Count, "number of operations")
	fl.IntVarP(&flags.keySize, "key-size", "k", defaults.KeySize, "key size")
	fl.IntVarP(&flags.valueSize, "value-size", "v", defaults.ValueSize, "value size")

	fl.IntVarP(&flags.readThreads, "read-threads", "r", defaults.ReadThreads,
		"number of read threads, zero to use a single thread")
	fl.IntVarP(&flags.writeThreads, "write-threads", "w", defaults.WriteThreads,
		"number of write threads, zero to use a single thread")

	fl.Int64Var(&flags.seed, "seed", defaults.KVSeed, "key-generator seed, zero picks the wall clock")
	fl.IntVar(&flags.nrepeat, "nrepeat", defaults.NRepeat, "benchmark passes per worker")
	fl.IntVar(&flags.batchLength, "batch-length", defaults.BatchLength, "crud groups per batch transaction")

	fl.BoolVar(&flags.binary, "binary", false, "generate binary (non ASCII) values")
	fl.BoolVar(&flags.separate, "separate", false, "one bench kind per worker")
	fl.BoolVar(&flags.ignoreNotFound, "ignore-not-found", false, "ignore key-not-found errors")
	fl.BoolVar(&flags.continuous, "continuous", false, "continuous completing mode")

	fl.StringVar(&flags.profile, "profile", "", "yaml benchmark profile to preload")
	fl.StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fl.BoolVar(&flags.noColor, "no-color", false, "disable colored output")

	RootCmd.MarkFlagRequired("database")
}

// buildConfig assembles the run configuration: defaults, then the profile,
// then every flag the user set explicitly.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	if flags.profile != "" {
		if err := config.LoadProfile(flags.profile, cfg); err != nil {
			return nil, err
		}
	}

	fl := cmd.Flags()

	if fl.Changed("database") {
		cfg.DriverName = flags.database
	}
	if fl.Changed("benchmark") || cfg.Benchmarks == 0 {
		mask, err := config.ParseBenchList(flags.benchmarks)
		if err != nil {
			return nil, err
		}
		cfg.Benchmarks = mask
	}
	if fl.Changed("sync-mode") {
		mode, err := config.ParseSyncMode(flags.syncMode)
		if err != nil {
			return nil, err
		}
		cfg.SyncMode = mode
	}
	if fl.Changed("wal-mode") {
		mode, err := config.ParseWalMode(flags.walMode)
		if err != nil {
			return nil, err
		}
		cfg.WalMode = mode
	}
	if fl.Changed("dirname") {
		cfg.Dirname = flags.dirname
	}
	if fl.Changed("operations") {
		cfg.Count = flags.count
	}
	if fl.Changed("key-size") {
		cfg.KeySize = flags.keySize
	}
	if fl.Changed("value-size") {
		cfg.ValueSize = flags.valueSize
	}
	if fl.Changed("read-threads") {
		cfg.ReadThreads = flags.readThreads
	}
	if fl.Changed("write-threads") {
		cfg.WriteThreads = flags.writeThreads
	}
	if fl.Changed("seed") {
		cfg.KVSeed = flags.seed
	}
	if fl.Changed("nrepeat") {
		cfg.NRepeat = flags.nrepeat
	}
	if fl.Changed("batch-length") {
		cfg.BatchLength = flags.batchLength
	}
	if fl.Changed("binary") {
		cfg.Binary = flags.binary
	}
	if fl.Changed("separate") {
		cfg.Separate = flags.separate
	}
	if fl.Changed("ignore-not-found") {
		cfg.IgnoreNotFound = flags.ignoreNotFound
	}
	if fl.Changed("continuous") {
		cfg.ContinuousCompleting = flags.continuous
	}

	return cfg, cfg.Validate()
}

func runBench(cmd *cobra.Command, _ []string) error {
	output.Configure(flags.noColor)

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	drv, ok := driver.Lookup(cfg.DriverName)
	if !ok {
		return fmt.Errorf("unknown database driver %q, supported: %s",
			cfg.DriverName, driver.Supported())
	}

	cfg.Print(os.Stdout)

	telemetry.Serve(flags.metricsAddr, nil)

	registry := histogram.New(cfg.Benchmarks)

	datadir := filepath.Join(cfg.Dirname, drv.Name())
	if err := os.MkdirAll(datadir, 0755); err != nil {
		return fmt.Errorf("preparing workspace: %w", err)
	}
	if err := os.Chmod(cfg.Dirname, 0700); err != nil {
		return fmt.Errorf("preparing workspace: %w", err)
	}

	runner := bench.NewRunner()
	defer runner.Close()

	if err := runner.Init(cfg, drv, registry, datadir); err != nil {
		return err
	}

	// settle dirty pages so the run starts from a quiet disk
	unix.Sync()

	return runner.Run()
}
