package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"

	"github.com/chazu/tryworks/internal/cli/config"
	"github.com/chazu/tryworks/pkg/schema"
	"github.com/chazu/tryworks/pkg/synth"
	"github.com/chazu/tryworks/pkg/validation"
)

var validateSchemaFiles []string

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [dir]",
		Short: "Check written manifests against the known document shapes",
		Long: `Load the YAML manifests from a directory and run the structural and
schema checks over every document.

The directory defaults to output.dir from tryworks.yaml. Extra shape files
can be supplied with --schema or the schemas list in tryworks.yaml.

Examples:
  tryworks validate
  tryworks validate manifests
  tryworks validate --schema schemas/widgets.cue`,
		Args: cobra.MaximumNArgs(1),
		RunE: runValidate,
	}

	cmd.Flags().StringArrayVar(&validateSchemaFiles, "schema", nil, "Extra CUE shape file (repeatable)")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	errorColor := color.New(color.FgRed, color.Bold)
	warnColor := color.New(color.FgYellow)
	successColor := color.New(color.FgGreen, color.Bold)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dir := cfg.Output.Dir
	if len(args) > 0 {
		dir = args[0]
	}

	registry := schema.NewSeededRegistry()
	if err := schema.RegisterEmbedded(registry); err != nil {
		return fmt.Errorf("failed to load embedded shapes: %w", err)
	}
	schemaFiles := append(append([]string{}, cfg.Schemas...), validateSchemaFiles...)
	for _, path := range schemaFiles {
		if err := schema.RegisterFile(registry, path); err != nil {
			return err
		}
	}

	manifests, err := collectManifests(dir)
	if err != nil {
		return err
	}
	if len(manifests) == 0 {
		return fmt.Errorf("no manifests found in %s", dir)
	}

	var errCount, warnCount, docCount int
	for _, path := range manifests {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		for i, docText := range splitDocuments(data) {
			docCount++
			subject := fmt.Sprintf("%s (document %d)", path, i+1)

			var doc unstructured.Unstructured
			if err := yaml.Unmarshal([]byte(docText), &doc.Object); err != nil {
				errCount++
				errorColor.Printf("✗ %s: %v\n", subject, err)
				continue
			}

			problems := structuralProblems(&doc)
			if len(problems) == 0 {
				problems = registry.ValidateManifest(&doc).Problems
			}
			for _, p := range problems {
				switch p.Severity {
				case validation.SeverityError:
					errCount++
					errorColor.Printf("✗ %s: %s\n", subject, p.Message)
				case validation.SeverityWarning:
					warnCount++
					warnColor.Printf("! %s: %s\n", subject, p.Message)
				}
			}
		}
	}

	if errCount > 0 {
		return fmt.Errorf("validation failed: %d error(s) across %d document(s)", errCount, docCount)
	}

	successColor.Printf("All %d document(s) valid (%d file(s), %d warning(s))\n",
		docCount, len(manifests), warnCount)
	return nil
}

// structuralProblems checks the identity fields a document needs before a
// shape lookup makes sense.
func structuralProblems(doc *unstructured.Unstructured) []validation.Problem {
	var problems []validation.Problem
	if doc.GetAPIVersion() == "" {
		problems = append(problems, validation.Errorf("", synth.CodeMalformedDocument,
			"document has no apiVersion"))
	}
	if doc.GetKind() == "" {
		problems = append(problems, validation.Errorf("", synth.CodeMalformedDocument,
			"document has no kind"))
	}
	if doc.GetName() == "" {
		problems = append(problems, validation.Errorf("", synth.CodeMalformedDocument,
			"document has no metadata.name"))
	}
	return problems
}

// splitDocuments splits a YAML stream on document separators, dropping
// empty chunks.
func splitDocuments(data []byte) []string {
	var docs []string
	for _, chunk := range strings.Split(string(data), "\n---") {
		chunk = strings.TrimSpace(strings.TrimPrefix(chunk, "---"))
		if chunk != "" {
			docs = append(docs, chunk)
		}
	}
	return docs
}
