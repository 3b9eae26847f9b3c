// Package config handles tool configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// Config validation errors.
var (
	ErrBadChunkDim = errors.New("chunk dimension must be a power of two")
	ErrBadBoundary = errors.New("boundary must be 'open' or 'solid'")
)

// Config holds all tool settings.
type Config struct {
	World   WorldConfig   `yaml:"world"`
	Mesh    MeshConfig    `yaml:"mesh"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// WorldConfig holds world grid settings.
type WorldConfig struct {
	// ChunkDim is the edge length of every top-level chunk, in cells.
	// Must be a power of two.
	ChunkDim int `yaml:"chunk_dim"`

	// Boundary selects face culling at unloaded neighbors: "open" emits
	// boundary faces, "solid" skips them.
	Boundary string `yaml:"boundary"`
}

// MeshConfig holds mesh extraction settings.
type MeshConfig struct {
	AmbientOcclusion bool `yaml:"ambient_occlusion"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		World: WorldConfig{
			ChunkDim: 16,
			Boundary: "open",
		},
		Mesh: MeshConfig{
			AmbientOcclusion: true,
		},
		Store: StoreConfig{
			Path: "world.vxw",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks the config for values the engine cannot work with.
func (c *Config) Validate() error {
	d := c.World.ChunkDim
	if d <= 0 || d&(d-1) != 0 {
		return fmt.Errorf("%w: got %d", ErrBadChunkDim, d)
	}
	if c.World.Boundary != "open" && c.World.Boundary != "solid" {
		return fmt.Errorf("%w: got %q", ErrBadBoundary, c.World.Boundary)
	}
	return nil
}
