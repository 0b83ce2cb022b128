// Package config parses a compiler invocation's optional
// snakec.yaml. It controls non-pipeline concerns only — output
// paths, heap size, and the compile-cache/color toggles the driver
// reads before it ever touches the pipeline — never the six pipeline
// stages themselves, which are fixed and take no configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mohnishaggarwal/snake-compiler/internal/runtime"
)

// Version is the current snakec version, set at build time via
// -ldflags or left at its default here.
var Version = "0.1.0"

// FileExt is the recognized Snake source extension.
const FileExt = ".snake"

// Config is the top-level snakec.yaml shape.
type Config struct {
	// Out is the output assembly path. Defaults to the source path
	// with FileExt replaced by ".s".
	Out string `yaml:"out,omitempty"`

	// TypesOut is the typetag side-file path. Defaults
	// to "<out-dir>/custom_types.go".
	TypesOut string `yaml:"types_out,omitempty"`

	// HeapSlots overrides runtime.HeapSlots's static arena size.
	// Zero means use the default.
	HeapSlots int `yaml:"heap_slots,omitempty"`

	// Cache toggles the sqlite compile cache. On by
	// default; set to a *bool so "cache: false" round-trips.
	Cache *bool `yaml:"cache,omitempty"`

	// CacheDB is the sqlite database path for the compile cache.
	CacheDB string `yaml:"cache_db,omitempty"`

	// Color forces ANSI diagnostic coloring on or off, overriding the
	// isatty auto-detection. Nil means auto-detect.
	Color *bool `yaml:"color,omitempty"`
}

// CacheEnabled reports whether the compile cache should be consulted,
// defaulting to on.
func (c *Config) CacheEnabled() bool {
	return c.Cache == nil || *c.Cache
}

// Load reads and parses a snakec.yaml file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses snakec.yaml content from bytes. path is used only for
// error messages.
func Parse(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// Find searches for snakec.yaml starting from dir and walking up to
// parent directories, the way a .gitignore is found. Returns an empty
// path and nil error when none exists — an absent config is not an
// error, it just means every setting takes its default.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "snakec.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		candidate = filepath.Join(dir, "snakec.yml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (c *Config) validate(path string) error {
	if c.HeapSlots < 0 {
		return fmt.Errorf("%s: heap_slots must not be negative", path)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.CacheDB == "" {
		c.CacheDB = ".snakec-cache.sqlite"
	}
}

// EffectiveHeapSlots returns HeapSlots if set, else the runtime
// package's default arena size.
func (c *Config) EffectiveHeapSlots() int {
	if c.HeapSlots > 0 {
		return c.HeapSlots
	}
	return runtime.HeapSlots
}

// OutPath derives the output assembly path for a source file absent
// an explicit Out override.
func (c *Config) OutPath(sourcePath string) string {
	if c.Out != "" {
		return c.Out
	}
	trimmed := TrimSourceExt(sourcePath)
	return trimmed + ".s"
}

// TrimSourceExt removes a trailing FileExt from name, returning name
// unchanged if it doesn't have one.
func TrimSourceExt(name string) string {
	if len(name) >= len(FileExt) && name[len(name)-len(FileExt):] == FileExt {
		return name[:len(name)-len(FileExt)]
	}
	return name
}

// HasSourceExt reports whether path ends in the Snake source
// extension.
func HasSourceExt(path string) bool {
	return len(path) >= len(FileExt) && path[len(path)-len(FileExt):] == FileExt
}
