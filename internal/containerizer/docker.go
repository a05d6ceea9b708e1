package containerizer

import (
	"context"
	"encoding/json"
	"fmt"
	"linkctl/internal/links"
	"linkctl/internal/project"
	"linkctl/pkg/logging"
	"net"
	"strconv"
	"strings"
)

// Docker is the single-host backend. It talks to the container runtime
// through its CLI, so podman works as a drop-in binary.
type Docker struct {
	binary string
	runner Runner
}

// NewDocker returns a docker backend using binary ("docker" when empty).
func NewDocker(binary string, runner Runner) *Docker {
	if binary == "" {
		binary = "docker"
	}
	if runner == nil {
		runner = NewExecRunner()
	}
	return &Docker{binary: binary, runner: runner}
}

// ContainerName returns the container a project runs in.
func ContainerName(p *project.Project) string {
	if p.Container != "" {
		return p.Container
	}
	return p.ID
}

func (d *Docker) inspectEnv(ctx context.Context, name string) ([]string, error) {
	out, err := d.runner.Run(ctx, "", d.binary, "inspect", "--type", "container", "--format", "{{json .Config.Env}}", name)
	if err != nil {
		return nil, links.WrapError(links.CodeContainerNotFound, name, err)
	}
	var env []string
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" || trimmed == "null" {
		return []string{}, nil
	}
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return nil, fmt.Errorf("failed to decode env of container %s: %w", name, err)
	}
	return env, nil
}

// LiveEnvPairs returns the environment the project's container was started
// with. A container that cannot be inspected has no live state yet, so any
// failure yields an empty list.
func (d *Docker) LiveEnvPairs(ctx context.Context, p *project.Project) []string {
	env, err := d.inspectEnv(ctx, ContainerName(p))
	if err != nil {
		logging.Debug("Docker", "No live env for project %s: %v", p.ID, err)
		return []string{}
	}
	return env
}

// RestartProject soft-restarts the project's container and records the start mode.
func (d *Docker) RestartProject(ctx context.Context, p *project.Project, startMode string) error {
	name := ContainerName(p)
	if _, err := d.inspectEnv(ctx, name); err != nil {
		return err
	}
	logging.Info("Docker", "Restarting container %s for project %s in %s mode", name, p.ID, startMode)
	if _, err := d.runner.Run(ctx, "", d.binary, "restart", name); err != nil {
		return fmt.Errorf("failed to restart container %s: %w", name, err)
	}
	p.SetStartMode(startMode)
	return nil
}

// LinkURL returns the address other containers use to reach target: its
// container name on the shared network, falling back to its host.
func (d *Docker) LinkURL(_ context.Context, target *project.Project) (string, error) {
	host := target.Container
	if host == "" {
		host = target.Host
	}
	if host == "" || target.InternalPort == 0 {
		return "", links.NewError(links.CodeContainerNotFound, target.ID)
	}
	return net.JoinHostPort(host, strconv.Itoa(target.InternalPort)), nil
}
