package kube

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
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
)

// RestartedAtAnnotation is bumped on the pod template to trigger a rolling restart.
const RestartedAtAnnotation = "linkctl/restartedAt"

// now is swapped in tests.
var now = time.Now

// Workloads reads and patches project workloads on the orchestration backend.
// Projects are matched through a label carrying the project ID.
type Workloads struct {
	client    kubernetes.Interface
	namespace string
	labelKey  string
}

// NewWorkloads returns a Workloads scoped to namespace.
func NewWorkloads(client kubernetes.Interface, namespace, labelKey string) *Workloads {
	if labelKey == "" {
		labelKey = "projectID"
	}
	return &Workloads{client: client, namespace: namespace, labelKey: labelKey}
}

func (w *Workloads) listOptions(p *project.Project) metav1.ListOptions {
	return metav1.ListOptions{LabelSelector: labels.Set{w.labelKey: p.ID}.String()}
}

func (w *Workloads) findDeployment(ctx context.Context, p *project.Project) (*appsv1.Deployment, error) {
	list, err := w.client.AppsV1().Deployments(w.namespace).List(ctx, w.listOptions(p))
	if err != nil {
		return nil, links.WrapError(links.CodeDeploymentNotFound, p.ID, err)
	}
	if len(list.Items) == 0 {
		return nil, links.NewError(links.CodeDeploymentNotFound, p.ID)
	}
	return &list.Items[0], nil
}

func (w *Workloads) findConfigMap(ctx context.Context, p *project.Project) (*corev1.ConfigMap, error) {
	list, err := w.client.CoreV1().ConfigMaps(w.namespace).List(ctx, w.listOptions(p))
	if err != nil {
		return nil, links.WrapError(links.CodeConfigMapNotFound, p.ID, err)
	}
	if len(list.Items) == 0 {
		return nil, links.NewError(links.CodeConfigMapNotFound, p.ID)
	}
	return &list.Items[0], nil
}

// LiveEnvPairs flattens the env of every container in the project's first
// matching deployment, including values pulled in through envFrom ConfigMaps.
// Missing workloads yield an empty list.
func (w *Workloads) LiveEnvPairs(ctx context.Context, p *project.Project) []string {
	deployment, err := w.findDeployment(ctx, p)
	if err != nil {
		logging.Debug("Kube", "No live env for project %s: %v", p.ID, err)
		return []string{}
	}

	pairs := []string{}
	for _, c := range deployment.Spec.Template.Spec.Containers {
		for _, e := range c.Env {
			pairs = append(pairs, e.Name+"="+e.Value)
		}
		for _, src := range c.EnvFrom {
			if src.ConfigMapRef == nil {
				continue
			}
			cm, err := w.client.CoreV1().ConfigMaps(w.namespace).Get(ctx, src.ConfigMapRef.Name, metav1.GetOptions{})
			if err != nil {
				logging.Debug("Kube", "Skipping envFrom ConfigMap %s of project %s: %v", src.ConfigMapRef.Name, p.ID, err)
				continue
			}
			for k, v := range cm.Data {
				pairs = append(pairs, src.Prefix+k+"="+v)
			}
		}
	}
	return pairs
}

// PatchConfigMap makes the data of the project's ConfigMap exactly pairs.
func (w *Workloads) PatchConfigMap(ctx context.Context, p *project.Project, pairs []string) error {
	cm, err := w.findConfigMap(ctx, p)
	if err != nil {
		return err
	}

	data := make(map[string]interface{}, len(pairs)+len(cm.Data))
	for k := range cm.Data {
		data[k] = nil // merge patch null deletes the key
	}
	for _, pair := range pairs {
		name, value, _ := strings.Cut(pair, "=")
		data[name] = value
	}
	patch, err := json.Marshal(map[string]interface{}{"data": data})
	if err != nil {
		return fmt.Errorf("failed to build ConfigMap patch: %w", err)
	}

	if _, err := w.client.CoreV1().ConfigMaps(w.namespace).Patch(ctx, cm.Name, types.MergePatchType, patch, metav1.PatchOptions{}); err != nil {
		return fmt.Errorf("failed to patch ConfigMap %s: %w", cm.Name, err)
	}
	logging.Info("Kube", "Patched ConfigMap %s with %d link variables", cm.Name, len(pairs))
	return nil
}

// RestartDeployment triggers a rolling restart of the project's deployment.
func (w *Workloads) RestartDeployment(ctx context.Context, p *project.Project) error {
	deployment, err := w.findDeployment(ctx, p)
	if err != nil {
		return err
	}

	patch, err := json.Marshal(map[string]interface{}{
		"spec": map[string]interface{}{
			"template": map[string]interface{}{
				"metadata": map[string]interface{}{
					"annotations": map[string]string{
						RestartedAtAnnotation: now().UTC().Format(time.RFC3339),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to build restart patch: %w", err)
	}

	if _, err := w.client.AppsV1().Deployments(w.namespace).Patch(ctx, deployment.Name, types.StrategicMergePatchType, patch, metav1.PatchOptions{}); err != nil {
		return fmt.Errorf("failed to restart Deployment %s: %w", deployment.Name, err)
	}
	logging.Info("Kube", "Triggered rolling restart of Deployment %s", deployment.Name)
	return nil
}

// LinkURL returns "<service>:<port>" for the target's Service. The port
// matching the target's internal port wins, otherwise the first one.
func (w *Workloads) LinkURL(ctx context.Context, target *project.Project) (string, error) {
	var svc *corev1.Service
	if target.Service != "" {
		s, err := w.client.CoreV1().Services(w.namespace).Get(ctx, target.Service, metav1.GetOptions{})
		if err != nil {
			return "", links.WrapError(links.CodeServiceNotFound, target.Service, err)
		}
		svc = s
	} else {
		list, err := w.client.CoreV1().Services(w.namespace).List(ctx, w.listOptions(target))
		if err != nil {
			return "", links.WrapError(links.CodeServiceNotFound, target.ID, err)
		}
		if len(list.Items) == 0 {
			return "", links.NewError(links.CodeServiceNotFound, target.ID)
		}
		svc = &list.Items[0]
	}

	if len(svc.Spec.Ports) == 0 {
		return "", links.NewError(links.CodeServiceNotFound, svc.Name)
	}
	port := svc.Spec.Ports[0].Port
	for _, sp := range svc.Spec.Ports {
		if int(sp.Port) == target.InternalPort || sp.TargetPort.IntValue() == target.InternalPort {
			port = sp.Port
			break
		}
	}
	return net.JoinHostPort(svc.Name, strconv.Itoa(int(port))), nil
}
