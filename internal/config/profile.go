package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is the yaml shape of a saved benchmark configuration. Every field
// is optional; absent fields keep their current value, so profiles compose
// with command-line flags.
type Profile struct {
	Database   string   `yaml:"database,omitempty"`
	Dirname    string   `yaml:"dirname,omitempty"`
	Benchmarks []string `yaml:"benchmarks,omitempty"`

	Operations *uint64 `yaml:"operations,omitempty"`
	KeySize    *int    `yaml:"keySize,omitempty"`
	ValueSize  *int    `yaml:"valueSize,omitempty"`

	SyncMode string `yaml:"syncMode,omitempty"`
	WalMode  string `yaml:"walMode,omitempty"`

	ReadThreads  *int `yaml:"readThreads,omitempty"`
	WriteThreads *int `yaml:"writeThreads,omitempty"`

	Seed        *int64 `yaml:"seed,omitempty"`
	NRepeat     *int   `yaml:"nrepeat,omitempty"`
	BatchLength *int   `yaml:"batchLength,omitempty"`

	Binary               *bool `yaml:"binary,omitempty"`
	Separate             *bool `yaml:"separate,omitempty"`
	IgnoreNotFound       *bool `yaml:"ignoreNotFound,omitempty"`
	ContinuousCompleting *bool `yaml:"continuous,omitempty"`
}

// LoadProfile reads a yaml profile and applies it on top of c.
func LoadProfile(path string, c *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("parsing profile %s: %w", path, err)
	}

	return p.Apply(c)
}

// Apply merges the profile into c, validating enum-valued fields.
func (p *Profile) Apply(c *Config) error {
	if p.Database != "" {
		c.DriverName = p.Database
	}
	if p.Dirname != "" {
		c.Dirname = p.Dirname
	}
	if len(p.Benchmarks) > 0 {
		mask, err := ParseBenchList(p.Benchmarks)
		if err != nil {
			return err
		}
		c.Benchmarks = mask
	}
	if p.Operations != nil {
		c.Count = *p.Operations
	}
	if p.KeySize != nil {
		c.KeySize = *p.KeySize
	}
	if p.ValueSize != nil {
		c.ValueSize = *p.ValueSize
	}
	if p.SyncMode != "" {
		mode, err := ParseSyncMode(p.SyncMode)
		if err != nil {
			return err
		}
		c.SyncMode = mode
	}
	if p.WalMode != "" {
		mode, err := ParseWalMode(p.WalMode)
		if err != nil {
			return err
		}
		c.WalMode = mode
	}
	if p.ReadThreads != nil {
		c.ReadThreads = *p.ReadThreads
	}
	if p.WriteThreads != nil {
		c.WriteThreads = *p.WriteThreads
	}
	if p.Seed != nil {
		c.KVSeed = *p.Seed
	}
	if p.NRepeat != nil {
		c.NRepeat = *p.NRepeat
	}
	if p.BatchLength != nil {
		c.BatchLength = *p.BatchLength
	}
	if p.Binary != nil {
		c.Binary = *p.Binary
	}
	if p.Separate != nil {
		c.Separate = *p.Separate
	}
	if p.IgnoreNotFound != nil {
		c.IgnoreNotFound = *p.IgnoreNotFound
	}
	if p.ContinuousCompleting != nil {
		c.ContinuousCompleting = *p.ContinuousCompleting
	}
	return nil
}

// ParseBenchList parses a benchmark name list. Items may themselves be comma
// or space separated, so both `-B set,get` and `-B "set get"` work.
func ParseBenchList(items []string) (BenchMask, error) {
	var mask BenchMask
	for _, item := range items {
		for _, name := range strings.FieldsFunc(item, func(r rune) bool {
			return r == ',' || r == ' '
		}) {
			b, err := ParseBenchKind(name)
			if err != nil {
				return 0, err
			}
			mask |= b.Mask()
		}
	}
	return mask, nil
}
