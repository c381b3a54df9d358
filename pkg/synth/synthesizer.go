// Package synth drives one end-to-end compilation of a construct tree
// into an ordered document list: tree validation, dependency detection
// and ordering, document production, the final shape and schema gates,
// and the presentation ordering of the output.
package synth

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/chazu/tryworks/pkg/construct"
	"github.com/chazu/tryworks/pkg/graph"
	"github.com/chazu/tryworks/pkg/schema"
	"github.com/chazu/tryworks/pkg/validation"
)

// Annotations stamped onto every synthesized document. Caller values on
// these two keys are always overwritten.
const (
	AnnotationSynthesizedAt = "tryworks.io/synthesized-at"
	AnnotationPath          = "tryworks.io/path"
)

// CodeMalformedDocument marks a finished document missing one of its
// identity fields.
const CodeMalformedDocument = "MALFORMED_DOCUMENT"

// Config wires the synthesizer's collaborators. Unset fields get fresh
// defaults from NewSynthesizer.
type Config struct {
	// Tracker supplies dependency ordering. Every run rebuilds its
	// registry, so one tracker must not serve concurrent runs.
	Tracker *graph.Tracker

	// Validator gates the tree before any document is produced.
	Validator *validation.Validator

	// Schemas checks finished documents.
	Schemas *schema.Registry

	// Logger receives progress and schema warnings.
	Logger *zap.Logger
}

// Synthesizer compiles construct trees. One synthesizer can run many
// times, but never concurrently.
type Synthesizer struct {
	tracker   *graph.Tracker
	validator *validation.Validator
	schemas   *schema.Registry
	logger    *zap.Logger
}

// NewSynthesizer builds a synthesizer, filling unset collaborators with a
// fresh tracker, the default validator, the seeded schema registry, and a
// no-op logger.
func NewSynthesizer(cfg Config) *Synthesizer {
	s := &Synthesizer{
		tracker:   cfg.Tracker,
		validator: cfg.Validator,
		schemas:   cfg.Schemas,
		logger:    cfg.Logger,
	}
	if s.tracker == nil {
		s.tracker = graph.NewTracker()
	}
	if s.validator == nil {
		s.validator = validation.NewValidator()
	}
	if s.schemas == nil {
		s.schemas = schema.NewSeededRegistry()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Synth compiles the tree under root. The run is fail-fast: the first
// invalid resource, cycle, or malformed document aborts it.
func (s *Synthesizer) Synth(root construct.Construct) (*Result, error) {
	if root == nil {
		return nil, fmt.Errorf("cannot synthesize a nil construct")
	}

	nodes := slices.Collect(root.TreeNode().All())
	s.logger.Info("starting synthesis",
		zap.String("root", root.TreeNode().Path()),
		zap.Int("constructs", len(nodes)))

	treeResult := s.validator.ValidateConstruct(root, validation.DefaultOptions())
	if !treeResult.Valid() {
		return nil, &ValidationError{Path: root.TreeNode().Path(), Problems: treeResult.Problems}
	}

	s.tracker.AutoDetect(nodes)
	if cycles := s.tracker.DetectCycles(root); len(cycles) > 0 {
		return nil, &graph.CircularDependencyError{Cycles: cycles}
	}

	resources, err := s.tracker.OrderedResources(nodes)
	if err != nil {
		return nil, err
	}

	synthesizedAt := time.Now().UTC()
	stamp := synthesizedAt.Format(time.RFC3339)

	documents := make([]*unstructured.Unstructured, 0, len(resources))
	for _, res := range resources {
		path := res.TreeNode().Path()

		if problems := res.Validate(); len(problems) > 0 {
			return nil, &ValidationError{Path: path, Problems: problems}
		}

		doc, err := res.Document()
		if err != nil {
			return nil, fmt.Errorf("failed to produce document for %s: %w", path, err)
		}

		annotations := doc.GetAnnotations()
		if annotations == nil {
			annotations = make(map[string]string, 2)
		}
		annotations[AnnotationSynthesizedAt] = stamp
		annotations[AnnotationPath] = path
		doc.SetAnnotations(annotations)

		if problems := checkDocumentShape(doc, path); len(problems) > 0 {
			return nil, &ValidationError{Path: path, Problems: problems}
		}

		check := s.schemas.ValidateManifest(doc)
		if !check.Valid() {
			return nil, &ValidationError{Path: path, Problems: check.Problems}
		}
		for _, p := range check.Problems {
			if p.Severity == validation.SeverityWarning {
				s.logger.Warn("schema warning",
					zap.String("construct", path),
					zap.String("field", p.Path),
					zap.String("code", p.Code),
					zap.String("detail", p.Message))
			}
		}

		documents = append(documents, doc)
		s.logger.Debug("synthesized document",
			zap.String("construct", path),
			zap.String("kind", doc.GetKind()),
			zap.String("name", doc.GetName()))
	}

	OrderDocuments(documents)

	result := &Result{
		Documents:     documents,
		SynthesizedAt: synthesizedAt,
	}
	if err := result.ComputeHash(); err != nil {
		return nil, fmt.Errorf("failed to hash result: %w", err)
	}

	s.logger.Info("synthesis complete",
		zap.Int("documents", len(documents)),
		zap.String("hash", result.Hash))
	return result, nil
}

// checkDocumentShape re-verifies the finished document's identity fields.
// Resource validation already ran, but a Document implementation can emit
// output inconsistent with its own Validate.
func checkDocumentShape(doc *unstructured.Unstructured, path string) []validation.Problem {
	var problems []validation.Problem
	if doc.GetAPIVersion() == "" {
		problems = append(problems, validation.Errorf(path, CodeMalformedDocument,
			"document has no apiVersion"))
	}
	if doc.GetKind() == "" {
		problems = append(problems, validation.Errorf(path, CodeMalformedDocument,
			"document has no kind"))
	}
	if _, ok := doc.Object["metadata"]; !ok {
		problems = append(problems, validation.Errorf(path, CodeMalformedDocument,
			"document has no metadata"))
	} else if doc.GetName() == "" {
		problems = append(problems, validation.Errorf(path, CodeMalformedDocument,
			"document has no metadata.name"))
	}
	return problems
}
