package config

import "time"

// GetDefaultConfig returns the built-in configuration. Every layer loaded on
// top of it only overrides the fields it sets.
func GetDefaultConfig() LinkctlConfig {
	return LinkctlConfig{
		GlobalSettings: GlobalSettings{
			Backend:   BackendDocker,
			LogLevel:  "info",
			LogFormat: "text",
		},
		Server: ServerConfig{
			Host:        "localhost",
			Port:        9090,
			ProxyPrefix: "/links/proxy",
		},
		Docker: DockerConfig{
			Binary: "docker",
		},
		Kubernetes: KubernetesConfig{
			Namespace: "default",
			LabelKey:  "projectID",
		},
		Reconcile: ReconcileConfig{
			PollInterval:     5 * time.Second,
			PollTimeout:      10 * time.Minute,
			NativeRuntimes:   []string{"nodejs", "spring", "swift"},
			LinkFileName:     ".env",
			DefaultStartMode: "run",
		},
		MCP: MCPConfig{
			Enabled: false,
			Host:    "localhost",
			Port:    9091,
		},
		Projects: []ProjectDefinition{},
	}
}
