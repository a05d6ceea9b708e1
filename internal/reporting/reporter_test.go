package reporting

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"linkctl/internal/config"
	"linkctl/internal/links"
	"linkctl/internal/project"
)

type mockReconciler struct {
	mock.Mock
}

func (m *mockReconciler) RestartProjectToPickupLinks(ctx context.Context, p *project.Project, forceRebuild bool) error {
	args := m.Called(ctx, p, forceRebuild)
	return args.Error(0)
}

type recordedEvent struct {
	name    string
	payload interface{}
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingEmitter) Emit(name string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{name: name, payload: payload})
}

func newRunningProject(t *testing.T, state project.State) *project.Project {
	t.Helper()
	p, err := project.New(config.ProjectDefinition{ID: "web", Name: "Web", LocationOnDisk: t.TempDir(), State: string(state)})
	require.NoError(t, err)
	return p
}

var dbLink = links.Link{ProjectID: "db", ProjectName: "Database", EnvName: "DB", ProjectURL: "db:5432", Type: links.TypeLocal}

func TestHandleProjectRestartAndSocketEmit_Success(t *testing.T) {
	emitter := &recordingEmitter{}
	rec := &mockReconciler{}
	p := newRunningProject(t, project.StateRunning)
	rec.On("RestartProjectToPickupLinks", mock.Anything, p, false).Return(nil).Once()

	NewStatusReporter(emitter, rec).HandleProjectRestartAndSocketEmit(context.Background(), p, dbLink, false)

	rec.AssertExpectations(t)
	require.Len(t, emitter.events, 2)
	assert.Equal(t, EventProjectChanged, emitter.events[0].name)
	assert.Equal(t, "web", emitter.events[0].payload.(project.Snapshot).ProjectID)
	assert.Equal(t, EventProjectLink, emitter.events[1].name)
	assert.Equal(t, LinkEvent{
		Name:      "Web",
		ProjectID: "web",
		Link:      dbLink,
		Status:    LinkStatusSuccess,
	}, emitter.events[1].payload)
}

func TestHandleProjectRestartAndSocketEmit_LinkError(t *testing.T) {
	emitter := &recordingEmitter{}
	rec := &mockReconciler{}
	p := newRunningProject(t, project.StateRunning)
	rec.On("RestartProjectToPickupLinks", mock.Anything, p, true).
		Return(links.NewError(links.CodeConfigMapNotFound, "web")).Once()

	NewStatusReporter(emitter, rec).HandleProjectRestartAndSocketEmit(context.Background(), p, dbLink, true)

	require.Len(t, emitter.events, 2)
	event := emitter.events[1].payload.(LinkEvent)
	assert.Equal(t, LinkStatusError, event.Status)
	assert.Equal(t, links.Detail{Code: links.CodeConfigMapNotFound, Message: "ConfigMap not found: web"}, event.Error)
}

func TestHandleProjectRestartAndSocketEmit_PlainError(t *testing.T) {
	emitter := &recordingEmitter{}
	rec := &mockReconciler{}
	p := newRunningProject(t, project.StateRunning)
	rec.On("RestartProjectToPickupLinks", mock.Anything, p, false).Return(errors.New("daemon unreachable")).Once()

	NewStatusReporter(emitter, rec).HandleProjectRestartAndSocketEmit(context.Background(), p, dbLink, false)

	event := emitter.events[1].payload.(LinkEvent)
	assert.Equal(t, LinkStatusError, event.Status)
	assert.Equal(t, links.Detail{Message: "daemon unreachable"}, event.Error)
}

func TestHandleProjectRestartAndSocketEmit_StoppedProject(t *testing.T) {
	emitter := &recordingEmitter{}
	rec := &mockReconciler{}
	p := newRunningProject(t, project.StateStopped)

	NewStatusReporter(emitter, rec).HandleProjectRestartAndSocketEmit(context.Background(), p, dbLink, false)

	rec.AssertNotCalled(t, "RestartProjectToPickupLinks", mock.Anything, mock.Anything, mock.Anything)
	require.Len(t, emitter.events, 2)
	assert.Equal(t, LinkStatusSuccess, emitter.events[1].payload.(LinkEvent).Status)
}

func TestErrorDetail_Wrapped(t *testing.T) {
	err := errors.Join(errors.New("context"), links.WrapError(links.CodeReconcileTimeout, "web", errors.New("build still running")))

	detail := ErrorDetail(err)

	assert.Equal(t, links.CodeReconcileTimeout, detail.(links.Detail).Code)
}
