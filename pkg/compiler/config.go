package compiler

import (
	"fmt"
	"os"
	"strconv"
)

const (
	// DefaultMaxMemSize is the default memory limit in 64 KiB pages.
	DefaultMaxMemSize uint32 = 100

	// MaxPages is the largest memory a 32-bit WebAssembly module can address.
	MaxPages uint32 = 65536

	// EnvMaxMemSize overrides Config.MaxMemSize when set.
	EnvMaxMemSize = "LANGVAR_MAXMEM"
)

// Config controls module assembly.
type Config struct {
	// MaxMemSize is the maximum size of the imported memory, in pages.
	MaxMemSize uint32
}

// DefaultConfig returns the default compiler configuration
func DefaultConfig() Config {
	return Config{MaxMemSize: DefaultMaxMemSize}
}

// Validate reports whether the configuration can produce a valid module.
func (c Config) Validate() error {
	if c.MaxMemSize < 1 || c.MaxMemSize > MaxPages {
		return fmt.Errorf("invalid config: max memory size %d pages, want 1..%d", c.MaxMemSize, MaxPages)
	}
	return nil
}

// FromEnv returns c with overrides from the environment applied.
func (c Config) FromEnv() (Config, error) {
	if v, ok := os.LookupEnv(EnvMaxMemSize); ok && v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return c, fmt.Errorf("%s: %w", EnvMaxMemSize, err)
		}
		c.MaxMemSize = uint32(n)
	}
	return c, nil
}
