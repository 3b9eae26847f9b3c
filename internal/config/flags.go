package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagChunkDim = flag.Int("chunk-dim", 0, "Chunk edge length in cells (power of two)")
	flagBoundary = flag.String("boundary", "", "Unloaded-neighbor policy: open or solid")
	flagStore    = flag.String("store", "", "World store file path")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagChunkDim > 0 {
		cfg.World.ChunkDim = *flagChunkDim
	}
	if *flagBoundary != "" {
		cfg.World.Boundary = *flagBoundary
	}
	if *flagStore != "" {
		cfg.Store.Path = *flagStore
	}
}
