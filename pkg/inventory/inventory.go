// Package inventory records the documents of a synthesis run so the next
// run can report what changed. The inventory file lives alongside the
// written manifests; documents are compared by content hash with the
// volatile timestamp annotation excluded.
package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/cespare/xxhash/v2"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/chazu/tryworks/pkg/graph"
	"github.com/chazu/tryworks/pkg/synth"
)

// FileName is the inventory file kept next to the written manifests.
const FileName = ".tryworks-inventory.json"

// Item records one synthesized document.
type Item struct {
	// Key identifies the document as kind/namespace/name.
	Key string `json:"key"`

	Kind      string `json:"kind"`
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name"`

	// Hash fingerprints the document content.
	Hash string `json:"hash"`
}

// Inventory is the document set of one synthesis run, keyed like Item.Key.
type Inventory struct {
	Items map[string]Item `json:"items"`
}

// New creates an empty inventory.
func New() *Inventory {
	return &Inventory{Items: make(map[string]Item)}
}

// FromDocuments builds the inventory describing docs. Two documents with
// the same key cannot be recorded; the synthesizer's validation rejects
// such trees, so a collision here means the documents bypassed it.
func FromDocuments(docs []*unstructured.Unstructured) (*Inventory, error) {
	inv := New()
	for _, doc := range docs {
		key := graph.DocumentKey(doc)
		if _, exists := inv.Items[key]; exists {
			return nil, fmt.Errorf("duplicate document %s", key)
		}
		hash, err := documentHash(doc)
		if err != nil {
			return nil, err
		}
		inv.Items[key] = Item{
			Key:       key,
			Kind:      doc.GetKind(),
			Namespace: doc.GetNamespace(),
			Name:      doc.GetName(),
			Hash:      hash,
		}
	}
	return inv, nil
}

// documentHash fingerprints one document the way synth.Result hashes the
// whole run: canonical JSON with the synthesized-at annotation removed.
func documentHash(doc *unstructured.Unstructured) (string, error) {
	clone := doc.DeepCopy()
	if annotations := clone.GetAnnotations(); annotations != nil {
		delete(annotations, synth.AnnotationSynthesizedAt)
		clone.SetAnnotations(annotations)
	}
	data, err := json.Marshal(clone.Object)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", graph.DocumentKey(doc), err)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data)), nil
}

// Changes summarizes the difference between two runs. Keys are sorted.
type Changes struct {
	Added   []string
	Changed []string
	Removed []string
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Changed) == 0 && len(c.Removed) == 0
}

// Diff compares a previous inventory to the current one. A nil previous
// inventory makes every current document an addition.
func Diff(previous, current *Inventory) Changes {
	var changes Changes

	for key, item := range current.Items {
		if previous == nil {
			changes.Added = append(changes.Added, key)
			continue
		}
		prev, ok := previous.Items[key]
		switch {
		case !ok:
			changes.Added = append(changes.Added, key)
		case prev.Hash != item.Hash:
			changes.Changed = append(changes.Changed, key)
		}
	}
	if previous != nil {
		for key := range previous.Items {
			if _, ok := current.Items[key]; !ok {
				changes.Removed = append(changes.Removed, key)
			}
		}
	}

	sort.Strings(changes.Added)
	sort.Strings(changes.Changed)
	sort.Strings(changes.Removed)
	return changes
}

// Load reads an inventory file. A missing file is not an error; it returns
// a nil inventory so callers can tell a first run from an empty one.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory %s: %w", path, err)
	}

	var inv Inventory
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("failed to parse inventory %s: %w", path, err)
	}
	if inv.Items == nil {
		inv.Items = make(map[string]Item)
	}
	return &inv, nil
}

// Save writes the inventory to path.
func (inv *Inventory) Save(path string) error {
	data, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal inventory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write inventory %s: %w", path, err)
	}
	return nil
}
