// Package kube is the orchestration backend of linkctl.
//
// Projects are matched to their workloads through a label (default
// "projectID") whose value is the project ID. The package covers the three
// workload interactions link reconciliation needs:
//
//   - LiveEnvPairs reads the env of the first matching Deployment's pod
//     template, flattened across containers into NAME=value pairs.
//   - PatchConfigMap replaces the data of the project's ConfigMap with the
//     desired link set.
//   - RestartDeployment bumps the linkctl/restartedAt pod template annotation,
//     which rolls the Deployment.
//
// LinkURL resolves a target project to "<service>:<port>" so other workloads
// can reach it over cluster DNS.
//
// NewClientset builds a client from the user's kubeconfig. Both constructor
// hooks are package variables so tests can swap in a fake clientset.
package kube
