package synth

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Result is the output of one synthesis run.
type Result struct {
	// Documents holds the synthesized manifests in presentation order.
	Documents []*unstructured.Unstructured

	// SynthesizedAt is the instant stamped into every document.
	SynthesizedAt time.Time

	// Hash fingerprints the documents. Two runs over the same tree
	// produce the same hash even though their timestamps differ.
	Hash string
}

// ComputeHash fingerprints the documents with xxhash over their canonical
// JSON. The synthesized-at annotation is excluded so the hash only moves
// when content does; the path annotation stays in because it is content.
func (r *Result) ComputeHash() error {
	digest := xxhash.New()
	for _, doc := range r.Documents {
		clone := doc.DeepCopy()
		if annotations := clone.GetAnnotations(); annotations != nil {
			delete(annotations, AnnotationSynthesizedAt)
			clone.SetAnnotations(annotations)
		}
		data, err := json.Marshal(clone.Object)
		if err != nil {
			return fmt.Errorf("failed to marshal %s/%s: %w", clone.GetKind(), clone.GetName(), err)
		}
		if _, err := digest.Write(data); err != nil {
			return fmt.Errorf("failed to hash %s/%s: %w", clone.GetKind(), clone.GetName(), err)
		}
	}
	r.Hash = fmt.Sprintf("%016x", digest.Sum64())
	return nil
}

// HasChanged reports whether this result differs from a previous run's
// hash. An empty previous hash always counts as changed.
func (r *Result) HasChanged(previous string) bool {
	if previous == "" {
		return true
	}
	return r.Hash != previous
}
