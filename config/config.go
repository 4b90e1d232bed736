// Package config holds the run configuration of the rvjit tools.
package config

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/sarchlab/rvjit/codegen/backends"
	"github.com/sarchlab/rvjit/codegen/closure"
	"github.com/sarchlab/rvjit/codegen/x86"
	"github.com/sarchlab/rvjit/insts"
	"github.com/sarchlab/rvjit/jit"
	"github.com/sarchlab/rvjit/loader"
)

// Config describes one run.
type Config struct {
	// Backend selects the code generator. Default: closure.
	Backend string `json:"backend"`

	// Format is the image format. Empty picks it from the file extension.
	Format string `json:"format"`

	// LoadAddress is where raw, hex and asm images are placed. ELF images
	// carry their own addresses. Default: 0.
	LoadAddress uint64 `json:"load_address"`

	// MaxBlockInstructions caps the guest instructions in one block.
	// Default: 64.
	MaxBlockInstructions int `json:"max_block_instructions"`

	// MaxBlocks stops a run after this many blocks. 0 means no limit.
	MaxBlocks uint64 `json:"max_blocks"`

	// InterpreterFallback interprets blocks that fail to build.
	InterpreterFallback bool `json:"interpreter_fallback"`

	// Registers holds initial register values by name (x5 or t0).
	Registers map[string]uint64 `json:"registers,omitempty"`

	// CodeRegionSize is the executable memory reserved by the x86 backend.
	// Default: 16 MiB.
	CodeRegionSize int `json:"code_region_size"`

	// Verbosity is the log level; 0 is quiet.
	Verbosity int `json:"verbosity"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Backend:              closure.Name,
		Format:               loader.FormatAuto,
		MaxBlockInstructions: jit.DefaultMaxInstructions,
		CodeRegionSize:       x86.DefaultRegionSize,
	}
}

// LoadConfig loads a Config from a JSON file. Missing fields keep their
// defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the values are usable.
func (c *Config) Validate() error {
	if !slices.Contains(backends.Names, c.Backend) {
		return fmt.Errorf("backend must be one of %v, got %q", backends.Names, c.Backend)
	}
	if !slices.Contains(loader.Formats, c.Format) {
		return fmt.Errorf("format must be one of %v, got %q", loader.Formats[1:], c.Format)
	}
	if c.MaxBlockInstructions <= 0 {
		return fmt.Errorf("max_block_instructions must be > 0")
	}
	if c.CodeRegionSize <= 0 {
		return fmt.Errorf("code_region_size must be > 0")
	}
	if c.Verbosity < 0 {
		return fmt.Errorf("verbosity must be >= 0")
	}
	for name := range c.Registers {
		if _, ok := insts.ParseRegister(name); !ok {
			return fmt.Errorf("unknown register %q", name)
		}
	}
	return nil
}

// InitialRegisters resolves Registers to register numbers. Names must have
// passed Validate.
func (c *Config) InitialRegisters() map[uint8]uint64 {
	regs := make(map[uint8]uint64, len(c.Registers))
	for name, v := range c.Registers {
		if reg, ok := insts.ParseRegister(name); ok {
			regs[reg] = v
		}
	}
	return regs
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Registers = maps.Clone(c.Registers)
	return &clone
}
