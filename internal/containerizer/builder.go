package containerizer

import (
	"context"
	"fmt"
	"linkctl/internal/project"
	"linkctl/pkg/logging"
)

// Builder rebuilds docker projects by running their build command in the
// project's source root. While the command runs the project's BuildStatus
// is inProgress, which makes concurrent reconciliations wait.
type Builder struct {
	binary string
	runner Runner
}

// NewBuilder returns a Builder; projects without a build command are rebuilt
// with `<binary> compose up -d --build`.
func NewBuilder(binary string, runner Runner) *Builder {
	if binary == "" {
		binary = "docker"
	}
	if runner == nil {
		runner = NewExecRunner()
	}
	return &Builder{binary: binary, runner: runner}
}

func (b *Builder) command(p *project.Project) (string, []string) {
	if len(p.BuildCommand) > 0 {
		return p.BuildCommand[0], p.BuildCommand[1:]
	}
	return b.binary, []string{"compose", "up", "-d", "--build"}
}

// BuildProject runs the build synchronously.
func (b *Builder) BuildProject(ctx context.Context, p *project.Project, mode project.BuildMode) error {
	if !p.TryStartBuild() {
		return fmt.Errorf("build already in progress for project %s", p.ID)
	}

	name, args := b.command(p)
	logging.Info("Docker", "Building project %s (%s): %s %v", p.ID, mode, name, args)
	if _, err := b.runner.Run(ctx, p.LocationOnDisk, name, args...); err != nil {
		p.SetBuildStatus(project.BuildStatusFailed)
		return fmt.Errorf("build of project %s failed: %w", p.ID, err)
	}

	p.SetBuildStatus(project.BuildStatusSuccess)
	p.SetState(project.StateRunning)
	logging.Info("Docker", "Build of project %s finished", p.ID)
	return nil
}
