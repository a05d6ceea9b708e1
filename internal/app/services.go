package app

import (
	"fmt"

	"k8s.io/client-go/kubernetes"

	"linkctl/internal/api"
	"linkctl/internal/config"
	"linkctl/internal/containerizer"
	"linkctl/internal/kube"
	"linkctl/internal/project"
	"linkctl/internal/proxy"
	"linkctl/internal/reconcile"
	"linkctl/internal/reporting"
	"linkctl/pkg/logging"
)

// newKubeClientset is swapped in tests.
var newKubeClientset = func(kubeContext string) (kubernetes.Interface, error) {
	return kube.NewClientset(kubeContext)
}

// newRunner is swapped in tests.
var newRunner = containerizer.NewExecRunner

// Services holds all the initialized services
type Services struct {
	Registry   *project.Registry
	Bus        *reporting.EventBus
	Hub        *reporting.Hub
	Reconciler *reconcile.Reconciler
	Reporter   *reporting.StatusReporter
	Proxy      *proxy.Proxy
	Resolver   api.URLResolver
}

// InitializeServices builds the registry, the backend selected in the
// configuration and everything reconciliation needs on top of it.
func InitializeServices(cfg *Config) (*Services, error) {
	lc := cfg.LinkctlConfig

	registry, err := project.NewRegistryFromConfig(lc.Projects)
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}

	deps, resolver, err := newBackend(lc)
	if err != nil {
		return nil, err
	}
	deps.Projects = registry

	reconciler, err := reconcile.New(reconcile.ConfigFrom(*lc), deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create reconciler: %w", err)
	}

	bus := reporting.NewEventBus()
	return &Services{
		Registry:   registry,
		Bus:        bus,
		Hub:        reporting.NewHub(bus, lc.Server.Host),
		Reconciler: reconciler,
		Reporter:   reporting.NewStatusReporter(bus, reconciler),
		Proxy:      proxy.New(registry),
		Resolver:   resolver,
	}, nil
}

// newBackend returns the backend capabilities for the configured backend.
// Builds always go through the build command runner.
func newBackend(lc *config.LinkctlConfig) (reconcile.Dependencies, api.URLResolver, error) {
	runner := newRunner()
	builder := containerizer.NewBuilder(lc.Docker.Binary, runner)

	switch lc.GlobalSettings.Backend {
	case config.BackendKubernetes:
		clientset, err := newKubeClientset(lc.Kubernetes.Context)
		if err != nil {
			return reconcile.Dependencies{}, nil, fmt.Errorf("failed to connect to kubernetes: %w", err)
		}
		workloads := kube.NewWorkloads(clientset, lc.Kubernetes.Namespace, lc.Kubernetes.LabelKey)
		logging.Info("Bootstrap", "Using kubernetes backend in namespace %s", lc.Kubernetes.Namespace)
		return reconcile.Dependencies{
			Inspector: workloads,
			Workloads: workloads,
			Builder:   builder,
		}, workloads, nil
	case config.BackendDocker, "":
		docker := containerizer.NewDocker(lc.Docker.Binary, runner)
		logging.Info("Bootstrap", "Using docker backend via %s", lc.Docker.Binary)
		return reconcile.Dependencies{
			Inspector: docker,
			Restarter: docker,
			Builder:   builder,
		}, docker, nil
	default:
		return reconcile.Dependencies{}, nil, fmt.Errorf("unknown backend %q", lc.GlobalSettings.Backend)
	}
}
