package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
	"linkctl/pkg/logging"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/linkctl"
	projectConfigDir = ".linkctl"
	configFileName   = "config.yaml"
)

// LoadConfig loads the linkctl configuration by layering default, user, and project settings.
func LoadConfig() (LinkctlConfig, error) {
	config := GetDefaultConfig()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// user config is optional
		logging.Warn("Config", "Could not determine user config path: %v", err)
	} else {
		if _, err := os.Stat(userConfigPath); !os.IsNotExist(err) {
			userConfig, err := loadConfigFromFile(userConfigPath)
			if err != nil {
				return LinkctlConfig{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
			}
			config = mergeConfigs(config, userConfig)
		}
	}

	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		logging.Warn("Config", "Could not determine project config path: %v", err)
	} else {
		if err := LoadDotEnv(filepath.Dir(projectConfigPath)); err != nil {
			return LinkctlConfig{}, fmt.Errorf("error loading %s next to %s: %w", EnvFileName, projectConfigPath, err)
		}
		if _, err := os.Stat(projectConfigPath); !os.IsNotExist(err) {
			projectConfig, err := loadConfigFromFile(projectConfigPath)
			if err != nil {
				return LinkctlConfig{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
			}
			config = mergeConfigs(config, projectConfig)
		}
	}

	if err := Validate(config); err != nil {
		return LinkctlConfig{}, err
	}
	return config, nil
}

// LoadConfigFromPath layers a single explicit file over the defaults.
func LoadConfigFromPath(path string) (LinkctlConfig, error) {
	if err := LoadDotEnv(filepath.Dir(path)); err != nil {
		return LinkctlConfig{}, fmt.Errorf("error loading %s next to %s: %w", EnvFileName, path, err)
	}
	overlay, err := loadConfigFromFile(path)
	if err != nil {
		return LinkctlConfig{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	config := mergeConfigs(GetDefaultConfig(), overlay)
	if err := Validate(config); err != nil {
		return LinkctlConfig{}, err
	}
	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// loadConfigFromFile loads a LinkctlConfig from a YAML file. $NAME and ${NAME}
// references are expanded from the environment before parsing.
func loadConfigFromFile(filePath string) (LinkctlConfig, error) {
	var config LinkctlConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return LinkctlConfig{}, err
	}
	err = yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config)
	if err != nil {
		return LinkctlConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config.
func mergeConfigs(base, overlay LinkctlConfig) LinkctlConfig {
	merged := base

	if overlay.GlobalSettings.Backend != "" {
		merged.GlobalSettings.Backend = overlay.GlobalSettings.Backend
	}
	if overlay.GlobalSettings.LogLevel != "" {
		merged.GlobalSettings.LogLevel = overlay.GlobalSettings.LogLevel
	}
	if overlay.GlobalSettings.LogFormat != "" {
		merged.GlobalSettings.LogFormat = overlay.GlobalSettings.LogFormat
	}

	if overlay.Server.Host != "" {
		merged.Server.Host = overlay.Server.Host
	}
	if overlay.Server.Port != 0 {
		merged.Server.Port = overlay.Server.Port
	}
	if overlay.Server.ProxyPrefix != "" {
		merged.Server.ProxyPrefix = overlay.Server.ProxyPrefix
	}

	if overlay.Docker.Binary != "" {
		merged.Docker.Binary = overlay.Docker.Binary
	}

	if overlay.Kubernetes.Context != "" {
		merged.Kubernetes.Context = overlay.Kubernetes.Context
	}
	if overlay.Kubernetes.Namespace != "" {
		merged.Kubernetes.Namespace = overlay.Kubernetes.Namespace
	}
	if overlay.Kubernetes.LabelKey != "" {
		merged.Kubernetes.LabelKey = overlay.Kubernetes.LabelKey
	}

	if overlay.Reconcile.PollInterval != 0 {
		merged.Reconcile.PollInterval = overlay.Reconcile.PollInterval
	}
	if overlay.Reconcile.PollTimeout != 0 {
		merged.Reconcile.PollTimeout = overlay.Reconcile.PollTimeout
	}
	if len(overlay.Reconcile.NativeRuntimes) > 0 {
		merged.Reconcile.NativeRuntimes = overlay.Reconcile.NativeRuntimes
	}
	if overlay.Reconcile.LinkFileName != "" {
		merged.Reconcile.LinkFileName = overlay.Reconcile.LinkFileName
	}
	if overlay.Reconcile.DefaultStartMode != "" {
		merged.Reconcile.DefaultStartMode = overlay.Reconcile.DefaultStartMode
	}

	// MCP is off by default, so any layer may switch it on
	if overlay.MCP.Enabled {
		merged.MCP.Enabled = true
	}
	if overlay.MCP.Host != "" {
		merged.MCP.Host = overlay.MCP.Host
	}
	if overlay.MCP.Port != 0 {
		merged.MCP.Port = overlay.MCP.Port
	}

	// Projects merge by ID, overlay wins; order of first appearance is kept.
	index := make(map[string]int, len(merged.Projects))
	projects := make([]ProjectDefinition, 0, len(merged.Projects)+len(overlay.Projects))
	for _, p := range merged.Projects {
		index[p.ID] = len(projects)
		projects = append(projects, p)
	}
	for _, p := range overlay.Projects {
		if i, ok := index[p.ID]; ok {
			projects[i] = p
			continue
		}
		index[p.ID] = len(projects)
		projects = append(projects, p)
	}
	merged.Projects = projects

	return merged
}

// Validate checks the merged configuration for values the rest of linkctl cannot work with.
func Validate(cfg LinkctlConfig) error {
	switch cfg.GlobalSettings.Backend {
	case BackendDocker, BackendKubernetes:
	default:
		return fmt.Errorf("unsupported backend %q: must be %q or %q", cfg.GlobalSettings.Backend, BackendDocker, BackendKubernetes)
	}

	seen := make(map[string]bool, len(cfg.Projects))
	for i, p := range cfg.Projects {
		if p.ID == "" {
			return fmt.Errorf("project at index %d has no id", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate project id %q", p.ID)
		}
		seen[p.ID] = true
		if p.LocationOnDisk == "" {
			return fmt.Errorf("project %q has no locationOnDisk", p.ID)
		}
	}
	return nil
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
