package app

import (
	"fmt"
	"os"

	"linkctl/internal/config"
	"linkctl/pkg/logging"
)

// Application is the main application structure that bootstraps and runs linkctl
type Application struct {
	config   *Config
	services *Services
}

// NewApplication loads configuration, sets up logging and wires the services.
func NewApplication(cfg *Config) (*Application, error) {
	// Log at the flag-selected level until the configured one is known
	bootLevel := logging.LevelInfo
	if cfg.Debug {
		bootLevel = logging.LevelDebug
	}
	logging.InitForCLI(bootLevel, os.Stderr)

	var linkctlCfg config.LinkctlConfig
	var err error

	if cfg.ConfigPath != "" {
		linkctlCfg, err = config.LoadConfigFromPath(cfg.ConfigPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load linkctl configuration from path: %s", cfg.ConfigPath)
			return nil, fmt.Errorf("failed to load linkctl configuration from path %s: %w", cfg.ConfigPath, err)
		}
	} else {
		linkctlCfg, err = config.LoadConfig()
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load linkctl configuration")
			return nil, fmt.Errorf("failed to load linkctl configuration: %w", err)
		}
	}

	initLogging(cfg, linkctlCfg.GlobalSettings)
	if cfg.ConfigPath != "" {
		logging.Info("Bootstrap", "Loaded configuration from custom path: %s", cfg.ConfigPath)
	} else {
		logging.Info("Bootstrap", "Loaded configuration using layered approach")
	}

	cfg.LinkctlConfig = &linkctlCfg

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

func initLogging(cfg *Config, settings config.GlobalSettings) {
	level := logging.ParseLevel(settings.LogLevel)
	if cfg.Debug {
		level = logging.LevelDebug
	}
	format := logging.Format(settings.LogFormat)
	if cfg.LogJSON {
		format = logging.FormatJSON
	}
	logging.Init(level, format, os.Stderr)
}

// Services returns the wired services.
func (a *Application) Services() *Services {
	return a.services
}
