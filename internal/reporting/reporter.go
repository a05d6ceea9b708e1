package reporting

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"linkctl/internal/links"
	"linkctl/internal/project"
	"linkctl/pkg/logging"
)

// Reconciler is the restart step the reporter wraps.
type Reconciler interface {
	RestartProjectToPickupLinks(ctx context.Context, p *project.Project, forceRebuild bool) error
}

// StatusReporter tells observers about link changes and how their
// reconciliation ended.
type StatusReporter struct {
	emitter    Emitter
	reconciler Reconciler
}

// NewStatusReporter creates a reporter emitting to emitter.
func NewStatusReporter(emitter Emitter, reconciler Reconciler) *StatusReporter {
	return &StatusReporter{emitter: emitter, reconciler: reconciler}
}

// HandleProjectRestartAndSocketEmit emits projectChanged right away, since a
// rebuild can take minutes, then reconciles a running project and emits
// exactly one projectLink event with the outcome.
func (r *StatusReporter) HandleProjectRestartAndSocketEmit(ctx context.Context, p *project.Project, link links.Link, forceRebuild bool) {
	attempt := uuid.NewString()
	r.emitter.Emit(EventProjectChanged, p.Snapshot())

	var err error
	if p.IsRunning() {
		logging.Debug("StatusReporter", "Reconciliation %s of project %s for link %s started", attempt, p.ID, link.EnvName)
		err = r.reconciler.RestartProjectToPickupLinks(ctx, p, forceRebuild)
	} else {
		logging.Debug("StatusReporter", "Project %s is not running, links apply on next start", p.ID)
	}

	event := LinkEvent{
		Name:      p.Name,
		ProjectID: p.ID,
		Link:      link,
		Status:    LinkStatusSuccess,
	}
	if err != nil {
		event.Status = LinkStatusError
		event.Error = ErrorDetail(err)
		logging.Error("StatusReporter", err, "Reconciliation %s of project %s for link %s failed", attempt, p.ID, link.EnvName)
	} else {
		logging.Info("StatusReporter", "Reconciliation %s of project %s for link %s succeeded", attempt, p.ID, link.EnvName)
	}
	r.emitter.Emit(EventProjectLink, event)
}

// ErrorDetail prefers the structured detail of a link error over the raw message.
func ErrorDetail(err error) interface{} {
	var linkErr *links.Error
	if errors.As(err, &linkErr) {
		return linkErr.Detail()
	}
	return links.Detail{Message: err.Error()}
}
