package config

import (
	"time"
)

// LinkctlConfig is the top-level configuration structure for linkctl.
type LinkctlConfig struct {
	GlobalSettings GlobalSettings      `yaml:"globalSettings"`
	Server         ServerConfig        `yaml:"server"`
	Docker         DockerConfig        `yaml:"docker"`
	Kubernetes     KubernetesConfig    `yaml:"kubernetes"`
	Reconcile      ReconcileConfig     `yaml:"reconcile"`
	MCP            MCPConfig           `yaml:"mcp"`
	Projects       []ProjectDefinition `yaml:"projects,omitempty"`
}

// Backend selects the execution backend projects run on.
type Backend string

const (
	BackendDocker     Backend = "docker"
	BackendKubernetes Backend = "kubernetes"
)

// GlobalSettings holds process-wide settings.
type GlobalSettings struct {
	Backend   Backend `yaml:"backend,omitempty"`
	LogLevel  string  `yaml:"logLevel,omitempty"`
	LogFormat string  `yaml:"logFormat,omitempty"` // "text" or "json"
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host        string `yaml:"host,omitempty"`
	Port        int    `yaml:"port,omitempty"`
	ProxyPrefix string `yaml:"proxyPrefix,omitempty"` // Route prefix for the link proxy, e.g. "/links/proxy"
}

// DockerConfig configures the single-host backend.
type DockerConfig struct {
	Binary string `yaml:"binary,omitempty"` // "docker" or "podman"
}

// KubernetesConfig configures the orchestration backend.
type KubernetesConfig struct {
	Context   string `yaml:"context,omitempty"`   // kubeconfig context, empty for current/in-cluster
	Namespace string `yaml:"namespace,omitempty"` // namespace holding project workloads
	LabelKey  string `yaml:"labelKey,omitempty"`  // label carrying the project ID on workloads
}

// ReconcileConfig tunes the reconciliation engine.
type ReconcileConfig struct {
	PollInterval     time.Duration `yaml:"pollInterval,omitempty"`     // re-check interval while a build runs
	PollTimeout      time.Duration `yaml:"pollTimeout,omitempty"`      // give up waiting for a build after this long
	NativeRuntimes   []string      `yaml:"nativeRuntimes,omitempty"`   // runtime styles that pick up env files on soft restart
	LinkFileName     string        `yaml:"linkFileName,omitempty"`     // file name the link file is copied to in the source root
	DefaultStartMode string        `yaml:"defaultStartMode,omitempty"` // start mode used when a project has none
}

// MCPConfig configures the MCP tool server exposing link operations.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Host    string `yaml:"host,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// ProjectDefinition describes a project known to this control plane.
type ProjectDefinition struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Type           string   `yaml:"type"`                // runtime style, e.g. "nodejs", "docker"
	Extension      bool     `yaml:"extension,omitempty"` // lifecycle owned by an extension provider
	Host           string   `yaml:"host,omitempty"`
	InternalPort   int      `yaml:"internalPort,omitempty"`
	LocationOnDisk string   `yaml:"locationOnDisk"`
	Container      string   `yaml:"container,omitempty"` // container name on the docker backend
	Service        string   `yaml:"service,omitempty"`   // service name on the kubernetes backend
	State          string   `yaml:"state,omitempty"`     // "running" or "stopped"
	StartMode      string   `yaml:"startMode,omitempty"`
	BuildCommand   []string `yaml:"buildCommand,omitempty"`
}
