// Package kinds provides ready-made resource constructs for common
// document kinds, plus composites assembled from them. Simple kinds build
// their documents as plain maps; workload and networking kinds go through
// the typed API structs and are converted.
package kinds

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
)

// toDocument converts a typed API object into the unstructured form
// documents are emitted in.
func toDocument(obj interface{}) (*unstructured.Unstructured, error) {
	raw, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return nil, err
	}
	pruneConverterArtifacts(raw)
	return &unstructured.Unstructured{Object: raw}, nil
}

// pruneConverterArtifacts drops fields the converter materializes on
// typed objects that have no place in a synthesized document: the root
// status block and null creationTimestamp entries.
func pruneConverterArtifacts(obj map[string]interface{}) {
	delete(obj, "status")
	pruneNullTimestamps(obj)
}

func pruneNullTimestamps(value interface{}) {
	switch v := value.(type) {
	case map[string]interface{}:
		if ts, ok := v["creationTimestamp"]; ok && ts == nil {
			delete(v, "creationTimestamp")
		}
		for _, nested := range v {
			pruneNullTimestamps(nested)
		}
	case []interface{}:
		for _, item := range v {
			pruneNullTimestamps(item)
		}
	}
}
