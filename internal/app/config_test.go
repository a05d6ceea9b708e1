package app

import (
	"testing"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		debug   bool
		logJSON bool
	}{
		{
			name:    "full configuration",
			path:    "/etc/linkctl/config.yaml",
			debug:   true,
			logJSON: true,
		},
		{
			name: "minimal configuration",
		},
		{
			name:  "debug only",
			debug: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(tt.path, tt.debug, tt.logJSON)

			if cfg.ConfigPath != tt.path {
				t.Errorf("ConfigPath = %v, want %v", cfg.ConfigPath, tt.path)
			}
			if cfg.Debug != tt.debug {
				t.Errorf("Debug = %v, want %v", cfg.Debug, tt.debug)
			}
			if cfg.LogJSON != tt.logJSON {
				t.Errorf("LogJSON = %v, want %v", cfg.LogJSON, tt.logJSON)
			}
			if cfg.Version != "dev" {
				t.Errorf("Version = %v, want dev", cfg.Version)
			}
			if cfg.LinkctlConfig != nil {
				t.Error("LinkctlConfig should be nil until the application loads it")
			}
		})
	}
}
