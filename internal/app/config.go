package app

import (
	"linkctl/internal/config"
)

// Config holds the application configuration
type Config struct {
	// ConfigPath points at a single config file; empty uses the layered lookup.
	ConfigPath string

	// Debug forces debug logging regardless of the configured level.
	Debug bool

	// LogJSON forces JSON log output.
	LogJSON bool

	// Version is reported by the MCP server.
	Version string

	// Loaded configuration
	LinkctlConfig *config.LinkctlConfig
}

// NewConfig creates a new application configuration
func NewConfig(configPath string, debug, logJSON bool) *Config {
	return &Config{
		ConfigPath: configPath,
		Debug:      debug,
		LogJSON:    logJSON,
		Version:    "dev",
	}
}
