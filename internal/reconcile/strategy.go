package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"linkctl/internal/config"
	"linkctl/internal/links"
	"linkctl/internal/project"
	"linkctl/pkg/logging"
)

// Strategy names, also used as metric labels.
const (
	StrategyOrchestrated = "orchestrated"
	StrategyInPlace      = "inPlace"
	StrategyGeneric      = "generic"
)

type strategyKey struct {
	backend         config.Backend
	nativeInjection bool
	extension       bool
}

// applyFunc applies a strategy and returns the desired env pairs it acted on.
type applyFunc func(r *Reconciler, ctx context.Context, p *project.Project, forceRebuild bool) ([]string, error)

type strategy struct {
	name  string
	apply applyFunc
}

var (
	orchestrated = strategy{name: StrategyOrchestrated, apply: (*Reconciler).applyOrchestrated}
	inPlace      = strategy{name: StrategyInPlace, apply: (*Reconciler).applyInPlace}
	generic      = strategy{name: StrategyGeneric, apply: (*Reconciler).applyGeneric}
)

// strategies maps (backend, native env injection, extension) to how a
// project picks up its links. Every combination is listed.
var strategies = map[strategyKey]strategy{
	{config.BackendKubernetes, false, false}: orchestrated,
	{config.BackendKubernetes, true, false}:  orchestrated,
	{config.BackendKubernetes, false, true}:  generic,
	{config.BackendKubernetes, true, true}:   generic,
	{config.BackendDocker, true, false}:      inPlace,
	{config.BackendDocker, true, true}:       inPlace,
	{config.BackendDocker, false, false}:     generic,
	{config.BackendDocker, false, true}:      generic,
}

func (r *Reconciler) strategyFor(p *project.Project) strategy {
	key := strategyKey{
		backend:         r.cfg.Backend,
		nativeInjection: r.native[p.Type],
		extension:       p.Extension,
	}
	if s, ok := strategies[key]; ok {
		return s
	}
	return generic
}

// applyOrchestrated rewrites the project's ConfigMap and rolls its Deployment.
// Both patches are safe to repeat, so the decider is not consulted.
func (r *Reconciler) applyOrchestrated(ctx context.Context, p *project.Project, _ bool) ([]string, error) {
	desired := p.Links.GetEnvPairs()
	if err := r.workloads.PatchConfigMap(ctx, p, desired); err != nil {
		return nil, err
	}
	if err := r.workloads.RestartDeployment(ctx, p); err != nil {
		return nil, err
	}
	return desired, nil
}

// applyInPlace mirrors the link file into the project's source root and
// soft-restarts the project so its runtime reloads the env file.
func (r *Reconciler) applyInPlace(ctx context.Context, p *project.Project, _ bool) ([]string, error) {
	desired := p.Links.GetEnvPairs()
	dst := filepath.Join(p.LocationOnDisk, r.cfg.LinkFileName)

	err := links.CopyEnvFile(p.Links.FilePath(), dst)
	switch {
	case err == nil:
		logging.Debug("Reconciler", "Copied link file of project %s to %s", p.ID, dst)
	case errors.Is(err, fs.ErrNotExist):
		// last link was deleted
		if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove %s: %w", dst, err)
		}
		logging.Debug("Reconciler", "Removed link file %s of project %s", dst, p.ID)
	default:
		return nil, err
	}

	mode := p.StartMode()
	if mode == "" {
		mode = r.cfg.DefaultStartMode
	}
	if err := r.restarter.RestartProject(ctx, p, mode); err != nil {
		return nil, err
	}
	return desired, nil
}
