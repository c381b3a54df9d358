package synth

import (
	"sort"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// kindPriority ranks kinds so that documents apply cleanly when consumed
// top to bottom: namespaces first, then identity, configuration, storage,
// RBAC, networking entry points, workloads, and ingress last.
var kindPriority = map[string]int{
	"Namespace":             0,
	"ServiceAccount":        1,
	"Secret":                2,
	"ConfigMap":             3,
	"PersistentVolume":      4,
	"PersistentVolumeClaim": 5,
	"Role":                  6,
	"ClusterRole":           7,
	"RoleBinding":           8,
	"ClusterRoleBinding":    9,
	"Service":               10,
	"Deployment":            11,
	"StatefulSet":           12,
	"DaemonSet":             13,
	"Job":                   14,
	"CronJob":               15,
	"Ingress":               16,
}

// defaultPriority sorts unknown kinds after every listed one.
const defaultPriority = 999

// Priority returns the presentation rank for a kind. Unlisted kinds get
// defaultPriority.
func Priority(kind string) int {
	if p, ok := kindPriority[kind]; ok {
		return p
	}
	return defaultPriority
}

// OrderDocuments sorts docs in place by kind priority, then by name. The
// sort is stable, so documents tied on both keys keep their dependency
// order.
func OrderDocuments(docs []*unstructured.Unstructured) {
	sort.SliceStable(docs, func(i, j int) bool {
		pi, pj := Priority(docs[i].GetKind()), Priority(docs[j].GetKind())
		if pi != pj {
			return pi < pj
		}
		return docs[i].GetName() < docs[j].GetName()
	})
}
