package schema

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	tryworkscue "github.com/chazu/tryworks/cue"
)

// Loader compiles CUE shape modules from the embedded filesystem, from
// user files, or from raw content.
type Loader struct {
	ctx *cue.Context
}

// NewLoader creates a loader with a fresh CUE context.
func NewLoader() *Loader {
	return &Loader{ctx: cuecontext.New()}
}

// LoadEmbedded compiles the shape module bundled with the binary.
func (l *Loader) LoadEmbedded() (cue.Value, error) {
	content, err := readCUEFiles(tryworkscue.SchemaFS, tryworkscue.SchemaDir)
	if err != nil {
		return cue.Value{}, fmt.Errorf("failed to read embedded schemas: %w", err)
	}
	return l.LoadContent(content)
}

// LoadFile reads and compiles a single CUE file from disk.
func (l *Loader) LoadFile(path string) (cue.Value, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	v, err := l.LoadContent(content)
	if err != nil {
		return cue.Value{}, fmt.Errorf("failed to compile %s: %w", path, err)
	}
	return v, nil
}

// LoadContent compiles raw CUE source.
func (l *Loader) LoadContent(content []byte) (cue.Value, error) {
	v := l.ctx.CompileBytes(content)
	if v.Err() != nil {
		return cue.Value{}, fmt.Errorf("failed to compile CUE content: %w", v.Err())
	}
	return v, nil
}

// readCUEFiles concatenates every .cue file under dir. The files of a
// shape module share one namespace, so concatenation and a single compile
// preserve their meaning.
func readCUEFiles(fsys fs.FS, dir string) ([]byte, error) {
	var content []byte
	err := fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".cue" {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		content = append(content, data...)
		content = append(content, '\n')
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("no .cue files found under %s", dir)
	}
	return content, nil
}

// RegisterShapes extracts every entry of the value's top-level "schemas"
// struct into r. Keys are "<apiVersion>/<Kind>" strings; the split happens
// on the last slash, since apiVersion itself may contain a group slash.
func RegisterShapes(r *Registry, v cue.Value) error {
	shapes := v.LookupPath(cue.ParsePath("schemas"))
	if !shapes.Exists() {
		return fmt.Errorf("no \"schemas\" declaration found in CUE module")
	}
	if shapes.Err() != nil {
		return fmt.Errorf("error in schemas declaration: %w", shapes.Err())
	}

	iter, err := shapes.Fields()
	if err != nil {
		return fmt.Errorf("failed to iterate schemas: %w", err)
	}

	extractor := NewExtractor()
	for iter.Next() {
		key := strings.TrimSuffix(iter.Selector().String(), "?")
		key = strings.Trim(key, `"`)

		idx := strings.LastIndex(key, "/")
		if idx <= 0 || idx == len(key)-1 {
			return fmt.Errorf("schema key %q is not an apiVersion/Kind pair", key)
		}
		apiVersion, kind := key[:idx], key[idx+1:]

		shape, err := extractor.CueToJSONSchema(iter.Value())
		if err != nil {
			return fmt.Errorf("failed to extract shape for %s: %w", key, err)
		}
		r.Register(apiVersion, kind, *shape)
	}
	return nil
}

// RegisterEmbedded loads the bundled shape module into r.
func RegisterEmbedded(r *Registry) error {
	v, err := NewLoader().LoadEmbedded()
	if err != nil {
		return err
	}
	return RegisterShapes(r, v)
}

// RegisterFile loads one user CUE shape file into r.
func RegisterFile(r *Registry, path string) error {
	v, err := NewLoader().LoadFile(path)
	if err != nil {
		return err
	}
	return RegisterShapes(r, v)
}
