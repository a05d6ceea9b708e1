package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/singleflight"

	"linkctl/internal/config"
	"linkctl/internal/links"
	"linkctl/internal/project"
	"linkctl/pkg/logging"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollTimeout  = 10 * time.Minute

	// maxRejoins bounds how often a caller re-runs after sharing a
	// reconciliation that acted on an older link set.
	maxRejoins = 3
)

var (
	errBuildInProgress = errors.New("build in progress")
	errProjectGone     = errors.New("project no longer registered")
)

// Config holds the reconciler settings. Backend is explicit so one process
// can host reconcilers for different backends.
type Config struct {
	Backend          config.Backend
	PollInterval     time.Duration
	PollTimeout      time.Duration
	NativeRuntimes   []string
	LinkFileName     string
	DefaultStartMode string
}

// ConfigFrom converts the reconcile section of the loaded configuration.
func ConfigFrom(cfg config.LinkctlConfig) Config {
	return Config{
		Backend:          cfg.GlobalSettings.Backend,
		PollInterval:     cfg.Reconcile.PollInterval,
		PollTimeout:      cfg.Reconcile.PollTimeout,
		NativeRuntimes:   cfg.Reconcile.NativeRuntimes,
		LinkFileName:     cfg.Reconcile.LinkFileName,
		DefaultStartMode: cfg.Reconcile.DefaultStartMode,
	}
}

// Inspector reads the env a project currently runs with.
type Inspector interface {
	LiveEnvPairs(ctx context.Context, p *project.Project) []string
}

// Workloads patches orchestrated workloads.
type Workloads interface {
	PatchConfigMap(ctx context.Context, p *project.Project, pairs []string) error
	RestartDeployment(ctx context.Context, p *project.Project) error
}

// ProjectLookup finds live projects by ID.
type ProjectLookup interface {
	Get(id string) (*project.Project, bool)
}

// Dependencies are the backend capabilities a Reconciler drives. Workloads
// is only needed on kubernetes, Restarter only on docker.
type Dependencies struct {
	Projects  ProjectLookup
	Inspector Inspector
	Builder   project.Builder
	Restarter project.Restarter
	Workloads Workloads
}

// Reconciler brings a project's running instance in line with its links.
type Reconciler struct {
	cfg       Config
	native    map[string]bool
	projects  ProjectLookup
	inspector Inspector
	builder   project.Builder
	restarter project.Restarter
	workloads Workloads

	group singleflight.Group
}

// New validates cfg against deps and fills in defaults.
func New(cfg Config, deps Dependencies) (*Reconciler, error) {
	if cfg.Backend == "" {
		cfg.Backend = config.BackendDocker
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if cfg.LinkFileName == "" {
		cfg.LinkFileName = ".env"
	}
	if cfg.DefaultStartMode == "" {
		cfg.DefaultStartMode = "run"
	}

	if deps.Projects == nil || deps.Inspector == nil || deps.Builder == nil {
		return nil, errors.New("reconciler requires a project lookup, an inspector and a builder")
	}
	switch cfg.Backend {
	case config.BackendDocker:
		if deps.Restarter == nil {
			return nil, errors.New("docker reconciler requires a restarter")
		}
	case config.BackendKubernetes:
		if deps.Workloads == nil {
			return nil, errors.New("kubernetes reconciler requires workloads")
		}
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	native := make(map[string]bool, len(cfg.NativeRuntimes))
	for _, rt := range cfg.NativeRuntimes {
		native[rt] = true
	}
	return &Reconciler{
		cfg:       cfg,
		native:    native,
		projects:  deps.Projects,
		inspector: deps.Inspector,
		builder:   deps.Builder,
		restarter: deps.Restarter,
		workloads: deps.Workloads,
	}, nil
}

// StrategyName reports which strategy p would be reconciled with.
func (r *Reconciler) StrategyName(p *project.Project) string {
	return r.strategyFor(p).name
}

// RestartProjectToPickupLinks makes p's running instance reflect its current
// link set. Concurrent calls for the same project and force flag share one
// run; a caller that saw a different link set than that run acted on runs again.
func (r *Reconciler) RestartProjectToPickupLinks(ctx context.Context, p *project.Project, forceRebuild bool) error {
	key := p.ID + "/" + strconv.FormatBool(forceRebuild)
	for attempt := 0; ; attempt++ {
		want := p.Links.GetEnvPairs()
		v, err, shared := r.group.Do(key, func() (interface{}, error) {
			return r.run(ctx, p, forceRebuild)
		})
		if err != nil || !shared || attempt >= maxRejoins {
			return err
		}
		applied, _ := v.([]string)
		if applied == nil || slices.Equal(applied, want) {
			return nil
		}
		logging.Debug("Reconciler", "Links of project %s changed during a shared reconciliation, running again", p.ID)
	}
}

func (r *Reconciler) run(ctx context.Context, p *project.Project, forceRebuild bool) ([]string, error) {
	s := r.strategyFor(p)
	start := time.Now()
	logging.Info("Reconciler", "Reconciling links of project %s with %s strategy (force=%t)", p.ID, s.name, forceRebuild)

	applied, err := s.apply(r, ctx, p, forceRebuild)

	reconcileDuration.WithLabelValues(s.name).Observe(time.Since(start).Seconds())
	if err != nil {
		reconcileTotal.WithLabelValues(s.name, "error").Inc()
		logging.Error("Reconciler", err, "Reconciling project %s failed", p.ID)
		return nil, err
	}
	reconcileTotal.WithLabelValues(s.name, "success").Inc()
	return applied, nil
}

type check struct {
	project  *project.Project
	desired  []string
	decision Decision
}

// applyGeneric waits for any running build to finish, then rebuilds unless
// the live env already holds every desired pair. The wait is bounded by
// PollTimeout and ends early when ctx is cancelled.
func (r *Reconciler) applyGeneric(ctx context.Context, p *project.Project, forceRebuild bool) ([]string, error) {
	op := func() (check, error) {
		current, ok := r.projects.Get(p.ID)
		if !ok {
			return check{}, backoff.Permanent(errProjectGone)
		}
		if current.BuildStatus() == project.BuildStatusInProgress {
			return check{}, errBuildInProgress
		}
		desired := current.Links.GetEnvPairs()
		live := r.inspector.LiveEnvPairs(ctx, current)
		return check{project: current, desired: desired, decision: Decide(desired, live, forceRebuild)}, nil
	}
	notify := func(err error, next time.Duration) {
		buildWaitTotal.Inc()
		logging.Debug("Reconciler", "Project %s: %v, checking again in %s", p.ID, err, next)
	}

	c, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(r.cfg.PollInterval)),
		backoff.WithMaxElapsedTime(r.cfg.PollTimeout),
		backoff.WithNotify(notify),
	)
	switch {
	case errors.Is(err, errProjectGone):
		logging.Info("Reconciler", "Project %s was removed, nothing to reconcile", p.ID)
		return nil, nil
	case errors.Is(err, errBuildInProgress):
		return nil, links.WrapError(links.CodeReconcileTimeout, p.ID, fmt.Errorf("build still running after %s", r.cfg.PollTimeout))
	case err != nil:
		return nil, fmt.Errorf("reconciliation of project %s aborted: %w", p.ID, err)
	}

	decisionTotal.WithLabelValues(c.decision.String()).Inc()
	if c.decision == DecisionSkip {
		logging.Debug("Reconciler", "Live env of project %s already holds all links", p.ID)
		return c.desired, nil
	}
	if err := r.builder.BuildProject(ctx, c.project, project.BuildModeBuild); err != nil {
		return nil, err
	}
	return c.desired, nil
}
