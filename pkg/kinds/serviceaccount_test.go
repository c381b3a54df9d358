package kinds

import (
	"testing"

	"github.com/chazu/tryworks/pkg/schema"
)

func TestServiceAccountDocument(t *testing.T) {
	root := mustScope(t, nil, "app")
	sa, err := NewServiceAccount(root, "runner", ServiceAccountProps{})
	if err != nil {
		t.Fatalf("NewServiceAccount returned error: %v", err)
	}

	doc, err := sa.Document()
	if err != nil {
		t.Fatalf("Document returned error: %v", err)
	}
	if got := doc.GetKind(); got != "ServiceAccount" {
		t.Errorf("kind = %q, want ServiceAccount", got)
	}
	if got := doc.GetName(); got != "app-runner" {
		t.Errorf("name = %q, want app-runner", got)
	}
}

func TestServiceAccountPassesWithoutSchema(t *testing.T) {
	// No shape is seeded for this kind, so checking must succeed
	// trivially.
	root := mustScope(t, nil, "app")
	sa, err := NewServiceAccount(root, "runner", ServiceAccountProps{})
	if err != nil {
		t.Fatalf("NewServiceAccount returned error: %v", err)
	}
	doc, err := sa.Document()
	if err != nil {
		t.Fatalf("Document returned error: %v", err)
	}

	result := schema.NewSeededRegistry().ValidateManifest(doc)
	if !result.Valid() {
		t.Errorf("schema-free kind failed validation: %s", result.Summary())
	}
	if len(result.Problems) != 0 {
		t.Errorf("schema-free kind produced problems: %v", result.Problems)
	}
}
