package project

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"linkctl/internal/config"
	"linkctl/internal/links"
)

// BuildStatus mirrors the build pipeline's view of a project.
type BuildStatus string

const (
	BuildStatusUnknown    BuildStatus = "unknown"
	BuildStatusInProgress BuildStatus = "inProgress"
	BuildStatusSuccess    BuildStatus = "success"
	BuildStatusFailed     BuildStatus = "failed"
)

// State is the lifecycle state of a project instance.
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// BuildMode is passed to the build pipeline.
type BuildMode string

const (
	BuildModeBuild BuildMode = "build"
)

// linkDirName holds the link files inside a project's source tree.
const linkDirName = ".linkctl"

// Project is a loaded project known to this control plane. Identity and
// placement fields are fixed after creation; state fields are guarded by mu
// because builds and reconciliations update them from other goroutines.
type Project struct {
	ID             string
	Name           string
	Type           string
	Extension      bool
	Host           string
	InternalPort   int
	LocationOnDisk string
	Container      string
	Service        string
	BuildCommand   []string
	Links          *links.Store

	mu          sync.RWMutex
	state       State
	buildStatus BuildStatus
	startMode   string
}

// New builds a project from its definition and restores its link store.
func New(def config.ProjectDefinition) (*Project, error) {
	store, err := links.Load(filepath.Join(def.LocationOnDisk, linkDirName))
	if err != nil {
		return nil, fmt.Errorf("failed to load links for project %s: %w", def.ID, err)
	}
	state := State(def.State)
	if state == "" {
		state = StateStopped
	}
	return &Project{
		ID:             def.ID,
		Name:           def.Name,
		Type:           def.Type,
		Extension:      def.Extension,
		Host:           def.Host,
		InternalPort:   def.InternalPort,
		LocationOnDisk: def.LocationOnDisk,
		Container:      def.Container,
		Service:        def.Service,
		BuildCommand:   def.BuildCommand,
		Links:          store,
		state:          state,
		buildStatus:    BuildStatusUnknown,
		startMode:      def.StartMode,
	}, nil
}

// State returns the current lifecycle state.
func (p *Project) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// SetState records a lifecycle change.
func (p *Project) SetState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

// IsRunning reports whether the project has a live instance.
func (p *Project) IsRunning() bool {
	return p.State() == StateRunning
}

// BuildStatus returns the last status reported by the build pipeline.
func (p *Project) BuildStatus() BuildStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.buildStatus
}

// SetBuildStatus records a build pipeline transition.
func (p *Project) SetBuildStatus(s BuildStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buildStatus = s
}

// TryStartBuild moves the project to BuildStatusInProgress unless a build is
// already running, and reports whether the caller now owns the build.
func (p *Project) TryStartBuild() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.buildStatus == BuildStatusInProgress {
		return false
	}
	p.buildStatus = BuildStatusInProgress
	return true
}

// StartMode returns the mode the project was last started in, or "".
func (p *Project) StartMode() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.startMode
}

// SetStartMode records the mode the project was started in.
func (p *Project) SetStartMode(mode string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startMode = mode
}

// Snapshot is the serialized project state sent with projectChanged events.
type Snapshot struct {
	ProjectID    string       `json:"projectID"`
	Name         string       `json:"name"`
	Type         string       `json:"projectType"`
	Extension    bool         `json:"extension"`
	Host         string       `json:"host"`
	InternalPort int          `json:"internalPort"`
	State        State        `json:"state"`
	BuildStatus  BuildStatus  `json:"buildStatus"`
	StartMode    string       `json:"startMode,omitempty"`
	Links        []links.Link `json:"links"`
}

// Snapshot captures the project for observers.
func (p *Project) Snapshot() Snapshot {
	p.mu.RLock()
	s := Snapshot{
		ProjectID:    p.ID,
		Name:         p.Name,
		Type:         p.Type,
		Extension:    p.Extension,
		Host:         p.Host,
		InternalPort: p.InternalPort,
		State:        p.state,
		BuildStatus:  p.buildStatus,
		StartMode:    p.startMode,
	}
	p.mu.RUnlock()
	if p.Links != nil {
		s.Links = p.Links.GetAll()
	} else {
		s.Links = []links.Link{}
	}
	return s
}

// Builder is the build pipeline capability.
type Builder interface {
	BuildProject(ctx context.Context, p *Project, mode BuildMode) error
}

// Restarter soft-restarts a project's running instance in the given start mode.
type Restarter interface {
	RestartProject(ctx context.Context, p *Project, startMode string) error
}
