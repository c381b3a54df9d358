// Package writer persists synthesized documents to disk as YAML, either
// as one combined stream or as one numbered file per document.
package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sourcegraph/conc/pool"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"
)

// Config controls where and how documents are written.
type Config struct {
	// Dir receives the output files. It is created if missing.
	Dir string

	// FilePerResource writes one numbered file per document instead of a
	// single combined stream. The zero-padded index preserves document
	// order for consumers that read the directory sorted.
	FilePerResource bool

	// FileName names the combined stream in single-file mode.
	FileName string

	// Workers bounds concurrent writes in file-per-resource mode.
	Workers int
}

// DefaultConfig returns the writer defaults: a combined dist/app.k8s.yaml.
func DefaultConfig() Config {
	return Config{
		Dir:      "dist",
		FileName: "app.k8s.yaml",
		Workers:  4,
	}
}

// Writer persists document lists. Documents are written in the order
// given; the synthesizer has already arranged them for presentation.
type Writer struct {
	cfg Config
}

// New builds a writer, filling unset config fields from DefaultConfig.
func New(cfg Config) *Writer {
	defaults := DefaultConfig()
	if cfg.Dir == "" {
		cfg.Dir = defaults.Dir
	}
	if cfg.FileName == "" {
		cfg.FileName = defaults.FileName
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	return &Writer{cfg: cfg}
}

// Write persists docs and returns the paths written, in document order.
func (w *Writer) Write(docs []*unstructured.Unstructured) ([]string, error) {
	if err := os.MkdirAll(w.cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", w.cfg.Dir, err)
	}
	if w.cfg.FilePerResource {
		return w.writeFilePerResource(docs)
	}
	return w.writeSingleFile(docs)
}

func (w *Writer) writeSingleFile(docs []*unstructured.Unstructured) ([]string, error) {
	var buf strings.Builder
	for _, doc := range docs {
		data, err := yaml.Marshal(doc.Object)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s/%s: %w", doc.GetKind(), doc.GetName(), err)
		}
		buf.WriteString("---\n")
		buf.Write(data)
	}

	path := filepath.Join(w.cfg.Dir, w.cfg.FileName)
	if err := os.WriteFile(path, []byte(buf.String()), 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return []string{path}, nil
}

func (w *Writer) writeFilePerResource(docs []*unstructured.Unstructured) ([]string, error) {
	// Paths are assigned up front so the returned list keeps document
	// order regardless of which goroutine finishes first.
	paths := make([]string, len(docs))
	for i, doc := range docs {
		paths[i] = filepath.Join(w.cfg.Dir, fmt.Sprintf("%04d-%s.k8s.yaml", i, doc.GetName()))
	}

	p := pool.New().WithMaxGoroutines(w.cfg.Workers).WithErrors()
	for i, doc := range docs {
		p.Go(func() error {
			data, err := yaml.Marshal(doc.Object)
			if err != nil {
				return fmt.Errorf("failed to marshal %s/%s: %w", doc.GetKind(), doc.GetName(), err)
			}
			if err := os.WriteFile(paths[i], data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", paths[i], err)
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}
