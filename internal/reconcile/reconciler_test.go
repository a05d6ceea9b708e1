package reconcile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkctl/internal/config"
	"linkctl/internal/links"
	"linkctl/internal/project"
)

type fakeInspector struct {
	mu       sync.Mutex
	live     []string
	statuses []project.BuildStatus
}

func (f *fakeInspector) LiveEnvPairs(_ context.Context, p *project.Project) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, p.BuildStatus())
	return f.live
}

func (f *fakeInspector) calls() []project.BuildStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]project.BuildStatus(nil), f.statuses...)
}

type fakeBuilder struct {
	calls   atomic.Int32
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeBuilder) BuildProject(_ context.Context, _ *project.Project, mode project.BuildMode) error {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.err
}

type fakeRestarter struct {
	mu    sync.Mutex
	modes []string
	err   error
}

func (f *fakeRestarter) RestartProject(_ context.Context, p *project.Project, startMode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modes = append(f.modes, startMode)
	return f.err
}

type fakeWorkloads struct {
	patched    [][]string
	restarts   int
	patchErr   error
	restartErr error
}

func (f *fakeWorkloads) PatchConfigMap(_ context.Context, _ *project.Project, pairs []string) error {
	if f.patchErr != nil {
		return f.patchErr
	}
	f.patched = append(f.patched, pairs)
	return nil
}

func (f *fakeWorkloads) RestartDeployment(context.Context, *project.Project) error {
	if f.restartErr != nil {
		return f.restartErr
	}
	f.restarts++
	return nil
}

type fixture struct {
	registry  *project.Registry
	inspector *fakeInspector
	builder   *fakeBuilder
	restarter *fakeRestarter
	workloads *fakeWorkloads
}

func newFixture() *fixture {
	return &fixture{
		registry:  project.NewRegistry(),
		inspector: &fakeInspector{live: []string{}},
		builder:   &fakeBuilder{},
		restarter: &fakeRestarter{},
		workloads: &fakeWorkloads{},
	}
}

func (f *fixture) reconciler(t *testing.T, cfg Config) *Reconciler {
	t.Helper()
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Millisecond
	}
	r, err := New(cfg, Dependencies{
		Projects:  f.registry,
		Inspector: f.inspector,
		Builder:   f.builder,
		Restarter: f.restarter,
		Workloads: f.workloads,
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) project(t *testing.T, def config.ProjectDefinition, envPairs ...[2]string) *project.Project {
	t.Helper()
	def.LocationOnDisk = t.TempDir()
	p, err := project.New(def)
	require.NoError(t, err)
	for _, pair := range envPairs {
		require.NoError(t, p.Links.Add(links.Link{ProjectID: "target", EnvName: pair[0], ProjectURL: pair[1], Type: links.TypeLocal}))
	}
	require.NoError(t, f.registry.Add(p))
	return p
}

func TestNew_Validation(t *testing.T) {
	f := newFixture()

	_, err := New(Config{Backend: config.BackendDocker}, Dependencies{Projects: f.registry, Inspector: f.inspector, Builder: f.builder})
	assert.Error(t, err, "docker needs a restarter")

	_, err = New(Config{Backend: config.BackendKubernetes}, Dependencies{Projects: f.registry, Inspector: f.inspector, Builder: f.builder})
	assert.Error(t, err, "kubernetes needs workloads")

	_, err = New(Config{Backend: "nomad"}, Dependencies{Projects: f.registry, Inspector: f.inspector, Builder: f.builder, Restarter: f.restarter})
	assert.Error(t, err)

	r, err := New(Config{}, Dependencies{Projects: f.registry, Inspector: f.inspector, Builder: f.builder, Restarter: f.restarter})
	require.NoError(t, err)
	assert.Equal(t, config.BackendDocker, r.cfg.Backend)
	assert.Equal(t, DefaultPollInterval, r.cfg.PollInterval)
	assert.Equal(t, DefaultPollTimeout, r.cfg.PollTimeout)
	assert.Equal(t, ".env", r.cfg.LinkFileName)
	assert.Equal(t, "run", r.cfg.DefaultStartMode)
}

func TestStrategyFor(t *testing.T) {
	native := []string{"nodejs", "spring", "swift"}
	tests := []struct {
		backend   config.Backend
		projType  string
		extension bool
		want      string
	}{
		{config.BackendKubernetes, "go", false, StrategyOrchestrated},
		{config.BackendKubernetes, "nodejs", false, StrategyOrchestrated},
		{config.BackendKubernetes, "go", true, StrategyGeneric},
		{config.BackendKubernetes, "nodejs", true, StrategyGeneric},
		{config.BackendDocker, "nodejs", false, StrategyInPlace},
		{config.BackendDocker, "swift", true, StrategyInPlace},
		{config.BackendDocker, "go", false, StrategyGeneric},
		{config.BackendDocker, "python", true, StrategyGeneric},
	}

	for _, tt := range tests {
		t.Run(string(tt.backend)+"/"+tt.projType, func(t *testing.T) {
			f := newFixture()
			r := f.reconciler(t, Config{Backend: tt.backend, NativeRuntimes: native})
			p := f.project(t, config.ProjectDefinition{ID: "p1", Type: tt.projType, Extension: tt.extension})
			assert.Equal(t, tt.want, r.StrategyName(p))
		})
	}
}

func TestGeneric_SkipsWhenLiveHoldsLinks(t *testing.T) {
	f := newFixture()
	f.inspector.live = []string{"PATH=/bin", "DB=db:5432"}
	r := f.reconciler(t, Config{Backend: config.BackendDocker})
	p := f.project(t, config.ProjectDefinition{ID: "p1", Type: "go"}, [2]string{"DB", "db:5432"})

	require.NoError(t, r.RestartProjectToPickupLinks(context.Background(), p, false))

	assert.Zero(t, f.builder.calls.Load())
	assert.Len(t, f.inspector.calls(), 1)
}

func TestGeneric_RebuildsWhenLinkMissing(t *testing.T) {
	f := newFixture()
	r := f.reconciler(t, Config{Backend: config.BackendDocker})
	p := f.project(t, config.ProjectDefinition{ID: "p1", Type: "go"}, [2]string{"DB", "db:5432"})

	require.NoError(t, r.RestartProjectToPickupLinks(context.Background(), p, false))

	assert.Equal(t, int32(1), f.builder.calls.Load())
}

func TestGeneric_ForcedRebuildAfterDelete(t *testing.T) {
	f := newFixture()
	r := f.reconciler(t, Config{Backend: config.BackendDocker})
	p := f.project(t, config.ProjectDefinition{ID: "p1", Type: "go"}, [2]string{"DB", "db:5432"})
	require.NoError(t, p.Links.Delete("DB"))

	require.NoError(t, r.RestartProjectToPickupLinks(context.Background(), p, true))

	assert.Equal(t, int32(1), f.builder.calls.Load())
}

func TestGeneric_BuildErrorPropagates(t *testing.T) {
	f := newFixture()
	f.builder.err = errors.New("compose failed")
	r := f.reconciler(t, Config{Backend: config.BackendDocker})
	p := f.project(t, config.ProjectDefinition{ID: "p1"}, [2]string{"DB", "db:5432"})

	err := r.RestartProjectToPickupLinks(context.Background(), p, false)

	assert.ErrorContains(t, err, "compose failed")
}

func TestGeneric_ProjectRemoved(t *testing.T) {
	f := newFixture()
	r := f.reconciler(t, Config{Backend: config.BackendDocker})
	p := f.project(t, config.ProjectDefinition{ID: "p1"}, [2]string{"DB", "db:5432"})
	f.registry.Remove("p1")

	require.NoError(t, r.RestartProjectToPickupLinks(context.Background(), p, true))

	assert.Zero(t, f.builder.calls.Load())
	assert.Empty(t, f.inspector.calls())
}

func TestGeneric_WaitsForRunningBuild(t *testing.T) {
	f := newFixture()
	r := f.reconciler(t, Config{Backend: config.BackendDocker, PollInterval: 10 * time.Millisecond, PollTimeout: 5 * time.Second})
	p := f.project(t, config.ProjectDefinition{ID: "p1"}, [2]string{"DB", "db:5432"})
	p.SetBuildStatus(project.BuildStatusInProgress)

	go func() {
		time.Sleep(50 * time.Millisecond)
		p.SetBuildStatus(project.BuildStatusSuccess)
	}()

	require.NoError(t, r.RestartProjectToPickupLinks(context.Background(), p, false))

	assert.Equal(t, []project.BuildStatus{project.BuildStatusSuccess}, f.inspector.calls())
	assert.Equal(t, int32(1), f.builder.calls.Load())
}

func TestGeneric_TimesOutOnStuckBuild(t *testing.T) {
	f := newFixture()
	r := f.reconciler(t, Config{Backend: config.BackendDocker, PollInterval: 5 * time.Millisecond, PollTimeout: 40 * time.Millisecond})
	p := f.project(t, config.ProjectDefinition{ID: "p1"}, [2]string{"DB", "db:5432"})
	p.SetBuildStatus(project.BuildStatusInProgress)

	err := r.RestartProjectToPickupLinks(context.Background(), p, false)

	assert.True(t, links.IsCode(err, links.CodeReconcileTimeout), "got %v", err)
	assert.Empty(t, f.inspector.calls())
	assert.Zero(t, f.builder.calls.Load())
}

func TestGeneric_CancelledWhileWaiting(t *testing.T) {
	f := newFixture()
	r := f.reconciler(t, Config{Backend: config.BackendDocker, PollInterval: 10 * time.Millisecond, PollTimeout: time.Minute})
	p := f.project(t, config.ProjectDefinition{ID: "p1"}, [2]string{"DB", "db:5432"})
	p.SetBuildStatus(project.BuildStatusInProgress)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := r.RestartProjectToPickupLinks(ctx, p, false)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, links.IsCode(err, links.CodeReconcileTimeout))
}

func TestInPlace_CopiesLinkFileAndRestarts(t *testing.T) {
	f := newFixture()
	r := f.reconciler(t, Config{Backend: config.BackendDocker, NativeRuntimes: []string{"nodejs"}})
	p := f.project(t, config.ProjectDefinition{ID: "p1", Type: "nodejs"}, [2]string{"DB", "db:5432"}, [2]string{"API", "api:80"})

	require.NoError(t, r.RestartProjectToPickupLinks(context.Background(), p, false))

	data, err := os.ReadFile(filepath.Join(p.LocationOnDisk, ".env"))
	require.NoError(t, err)
	assert.Equal(t, "DB=db:5432\nAPI=api:80", string(data))
	assert.Equal(t, []string{"run"}, f.restarter.modes)
	assert.Zero(t, f.builder.calls.Load())
}

func TestInPlace_RemovesFileAfterLastDelete(t *testing.T) {
	f := newFixture()
	r := f.reconciler(t, Config{Backend: config.BackendDocker, NativeRuntimes: []string{"spring"}, LinkFileName: "links.env"})
	p := f.project(t, config.ProjectDefinition{ID: "p1", Type: "spring", StartMode: "debug"}, [2]string{"DB", "db:5432"})
	ctx := context.Background()

	require.NoError(t, r.RestartProjectToPickupLinks(ctx, p, false))
	require.FileExists(t, filepath.Join(p.LocationOnDisk, "links.env"))

	require.NoError(t, p.Links.Delete("DB"))
	require.NoError(t, r.RestartProjectToPickupLinks(ctx, p, true))

	assert.NoFileExists(t, filepath.Join(p.LocationOnDisk, "links.env"))
	assert.Equal(t, []string{"debug", "debug"}, f.restarter.modes)
}

func TestInPlace_RestartError(t *testing.T) {
	f := newFixture()
	f.restarter.err = links.NewError(links.CodeContainerNotFound, "p1")
	r := f.reconciler(t, Config{Backend: config.BackendDocker, NativeRuntimes: []string{"nodejs"}})
	p := f.project(t, config.ProjectDefinition{ID: "p1", Type: "nodejs"})

	err := r.RestartProjectToPickupLinks(context.Background(), p, false)

	assert.True(t, links.IsCode(err, links.CodeContainerNotFound))
}

func TestOrchestrated_PatchesAndRolls(t *testing.T) {
	f := newFixture()
	r := f.reconciler(t, Config{Backend: config.BackendKubernetes})
	p := f.project(t, config.ProjectDefinition{ID: "p1"}, [2]string{"DB", "db-svc:5432"})

	require.NoError(t, r.RestartProjectToPickupLinks(context.Background(), p, false))

	assert.Equal(t, [][]string{{"DB=db-svc:5432"}}, f.workloads.patched)
	assert.Equal(t, 1, f.workloads.restarts)
	assert.Empty(t, f.inspector.calls(), "decider is not consulted")
}

func TestOrchestrated_MissingConfigMap(t *testing.T) {
	f := newFixture()
	f.workloads.patchErr = links.NewError(links.CodeConfigMapNotFound, "p1")
	r := f.reconciler(t, Config{Backend: config.BackendKubernetes})
	p := f.project(t, config.ProjectDefinition{ID: "p1"}, [2]string{"DB", "db-svc:5432"})

	err := r.RestartProjectToPickupLinks(context.Background(), p, false)

	assert.True(t, links.IsCode(err, links.CodeConfigMapNotFound))
	assert.Zero(t, f.workloads.restarts)
}

func TestOrchestrated_MissingDeployment(t *testing.T) {
	f := newFixture()
	f.workloads.restartErr = links.NewError(links.CodeDeploymentNotFound, "p1")
	r := f.reconciler(t, Config{Backend: config.BackendKubernetes})
	p := f.project(t, config.ProjectDefinition{ID: "p1"})

	err := r.RestartProjectToPickupLinks(context.Background(), p, false)

	assert.True(t, links.IsCode(err, links.CodeDeploymentNotFound))
}

func TestRestartProjectToPickupLinks_CollapsesConcurrentCalls(t *testing.T) {
	f := newFixture()
	f.builder.started = make(chan struct{}, 10)
	f.builder.release = make(chan struct{})
	r := f.reconciler(t, Config{Backend: config.BackendDocker})
	p := f.project(t, config.ProjectDefinition{ID: "p1"}, [2]string{"DB", "db:5432"})

	var wg sync.WaitGroup
	first := make(chan error, 1)
	go func() { first <- r.RestartProjectToPickupLinks(context.Background(), p, true) }()
	<-f.builder.started

	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- r.RestartProjectToPickupLinks(context.Background(), p, true)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(f.builder.release)
	wg.Wait()
	close(errs)

	require.NoError(t, <-first)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), f.builder.calls.Load())
}

func TestRestartProjectToPickupLinks_RerunsWhenLinksChanged(t *testing.T) {
	f := newFixture()
	f.builder.started = make(chan struct{}, 10)
	f.builder.release = make(chan struct{})
	r := f.reconciler(t, Config{Backend: config.BackendDocker})
	p := f.project(t, config.ProjectDefinition{ID: "p1"}, [2]string{"DB", "db:5432"})

	first := make(chan error, 1)
	go func() { first <- r.RestartProjectToPickupLinks(context.Background(), p, true) }()
	<-f.builder.started

	require.NoError(t, p.Links.Add(links.Link{ProjectID: "cache", EnvName: "CACHE", ProjectURL: "redis:6379", Type: links.TypeLocal}))
	second := make(chan error, 1)
	go func() { second <- r.RestartProjectToPickupLinks(context.Background(), p, true) }()
	time.Sleep(50 * time.Millisecond)

	close(f.builder.release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)
	assert.Equal(t, int32(2), f.builder.calls.Load())
}
