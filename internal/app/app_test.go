package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"

	"linkctl/internal/api"
	"linkctl/internal/containerizer"
	"linkctl/internal/project"
	"linkctl/internal/reconcile"
)

type nopRunner struct{}

func (nopRunner) Run(context.Context, string, string, ...string) ([]byte, error) {
	return []byte("[]"), nil
}

func writeConfig(t *testing.T, backend string) string {
	t.Helper()
	dir := t.TempDir()
	web := filepath.Join(dir, "web")
	db := filepath.Join(dir, "db")
	content := `globalSettings:
  backend: ` + backend + `
  logLevel: debug
projects:
  - id: web
    name: Web
    type: go
    locationOnDisk: ` + web + `
    internalPort: 8080
  - id: db
    name: Database
    container: pg
    internalPort: 5432
    locationOnDisk: ` + db + `
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func useRunner(t *testing.T) {
	t.Helper()
	old := newRunner
	newRunner = func() containerizer.Runner { return nopRunner{} }
	t.Cleanup(func() { newRunner = old })
}

func TestNewApplication_Docker(t *testing.T) {
	useRunner(t)

	application, err := NewApplication(NewConfig(writeConfig(t, "docker"), false, false))
	require.NoError(t, err)

	services := application.Services()
	assert.Len(t, services.Registry.List(), 2)
	web, ok := services.Registry.Get("web")
	require.True(t, ok)
	assert.Equal(t, reconcile.StrategyGeneric, services.Reconciler.StrategyName(web))

	url, err := services.Resolver.LinkURL(context.Background(), mustProject(t, application, "db"))
	require.NoError(t, err)
	assert.Equal(t, "pg:5432", url)
}

func TestNewApplication_Kubernetes(t *testing.T) {
	useRunner(t)
	old := newKubeClientset
	newKubeClientset = func(string) (kubernetes.Interface, error) {
		return fake.NewSimpleClientset(
			&corev1.Service{
				ObjectMeta: metav1.ObjectMeta{Name: "db", Namespace: "default", Labels: map[string]string{"projectID": "db"}},
				Spec:       corev1.ServiceSpec{Ports: []corev1.ServicePort{{Port: 5432}}},
			},
			&appsv1.Deployment{ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "default", Labels: map[string]string{"projectID": "web"}}},
		), nil
	}
	t.Cleanup(func() { newKubeClientset = old })

	application, err := NewApplication(NewConfig(writeConfig(t, "kubernetes"), true, false))
	require.NoError(t, err)

	web := mustProject(t, application, "web")
	assert.Equal(t, reconcile.StrategyOrchestrated, application.Services().Reconciler.StrategyName(web))

	url, err := application.Services().Resolver.LinkURL(context.Background(), mustProject(t, application, "db"))
	require.NoError(t, err)
	assert.Equal(t, "db:5432", url)
}

func TestNewApplication_KubernetesUnavailable(t *testing.T) {
	useRunner(t)
	old := newKubeClientset
	newKubeClientset = func(string) (kubernetes.Interface, error) { return nil, errors.New("no kubeconfig") }
	t.Cleanup(func() { newKubeClientset = old })

	_, err := NewApplication(NewConfig(writeConfig(t, "kubernetes"), false, false))

	assert.ErrorContains(t, err, "no kubeconfig")
}

func TestNewApplication_BadConfig(t *testing.T) {
	_, err := NewApplication(NewConfig(filepath.Join(t.TempDir(), "missing.yaml"), false, false))
	assert.Error(t, err)
}

func TestRouter(t *testing.T) {
	useRunner(t)
	application, err := NewApplication(NewConfig(writeConfig(t, "docker"), false, false))
	require.NoError(t, err)
	svc := api.NewLinkService(context.Background(), application.services.Registry, application.services.Resolver, application.services.Reporter)
	router := application.NewRouter(svc)
	sub := application.services.Bus.Subscribe(10)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","backend":"docker","projects":2}`, w.Body.String())

	body, _ := json.Marshal(api.AddLinkRequest{TargetProjectID: "db", EnvName: "DB"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/web/links", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	svc.Wait()

	// web is stopped, so the change is reported without a restart
	names := []string{}
	for len(sub.Channel) > 0 {
		names = append(names, (<-sub.Channel).Name)
	}
	assert.Equal(t, []string{"projectChanged", "projectLink"}, names)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "go_goroutines"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/links/proxy/ghost/x", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRun_StopsOnCancel(t *testing.T) {
	useRunner(t)
	application, err := NewApplication(NewConfig(writeConfig(t, "docker"), false, false))
	require.NoError(t, err)
	application.config.LinkctlConfig.Server.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func mustProject(t *testing.T, a *Application, id string) *project.Project {
	t.Helper()
	p, ok := a.services.Registry.Get(id)
	require.True(t, ok)
	return p
}
