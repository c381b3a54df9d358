package synth

import (
	"testing"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func hashDoc(name, value, stamp string) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "ConfigMap",
		"metadata": map[string]interface{}{
			"name": name,
			"annotations": map[string]interface{}{
				AnnotationSynthesizedAt: stamp,
				AnnotationPath:          "app/" + name,
			},
		},
		"data": map[string]interface{}{
			"KEY": value,
		},
	}}
}

func mustHash(t *testing.T, docs ...*unstructured.Unstructured) string {
	t.Helper()
	r := &Result{Documents: docs, SynthesizedAt: time.Now().UTC()}
	if err := r.ComputeHash(); err != nil {
		t.Fatalf("ComputeHash: %v", err)
	}
	return r.Hash
}

func TestComputeHashIgnoresTimestamp(t *testing.T) {
	first := mustHash(t, hashDoc("settings", "value", "2026-01-01T00:00:00Z"))
	second := mustHash(t, hashDoc("settings", "value", "2026-06-15T12:30:00Z"))
	if first != second {
		t.Errorf("hash moved with the timestamp annotation: %q vs %q", first, second)
	}
}

func TestComputeHashTracksContent(t *testing.T) {
	stamp := "2026-01-01T00:00:00Z"
	base := mustHash(t, hashDoc("settings", "value", stamp))

	if got := mustHash(t, hashDoc("settings", "changed", stamp)); got == base {
		t.Error("hash did not move when document data changed")
	}
	if got := mustHash(t, hashDoc("renamed", "value", stamp)); got == base {
		t.Error("hash did not move when the document name changed")
	}
}

func TestComputeHashTracksOrder(t *testing.T) {
	stamp := "2026-01-01T00:00:00Z"
	a := hashDoc("alpha", "1", stamp)
	b := hashDoc("beta", "2", stamp)

	if mustHash(t, a, b) == mustHash(t, b, a) {
		t.Error("hash should depend on document order")
	}
}

func TestComputeHashLeavesDocumentsIntact(t *testing.T) {
	doc := hashDoc("settings", "value", "2026-01-01T00:00:00Z")
	mustHash(t, doc)

	if _, ok := doc.GetAnnotations()[AnnotationSynthesizedAt]; !ok {
		t.Error("hashing stripped the timestamp annotation from the original document")
	}
}

func TestHasChanged(t *testing.T) {
	r := &Result{Documents: []*unstructured.Unstructured{hashDoc("settings", "value", "2026-01-01T00:00:00Z")}}
	if err := r.ComputeHash(); err != nil {
		t.Fatalf("ComputeHash: %v", err)
	}

	if !r.HasChanged("") {
		t.Error("empty previous hash should always count as changed")
	}
	if r.HasChanged(r.Hash) {
		t.Error("identical hash should not count as changed")
	}
	if !r.HasChanged("ffffffffffffffff") {
		t.Error("different hash should count as changed")
	}
}
