package commands

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"

	"github.com/chazu/tryworks/internal/cli/config"
	"github.com/chazu/tryworks/pkg/inventory"
)

var (
	synthOutput          string
	synthFilePerResource bool
	synthVerbose         bool
)

// NewSynthCommand creates the synth command
func NewSynthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Run the construct program and collect its manifests",
		Long: `Execute the app command from tryworks.yaml and report the manifest
files it writes.

The output directory is exported to the app process as TRYWORKS_OUTPUT_DIR,
and TRYWORKS_FILE_PER_RESOURCE=1 when one file per document is requested.

Examples:
  tryworks synth
  tryworks synth --output manifests
  tryworks synth --file-per-resource`,
		RunE: runSynth,
	}

	cmd.Flags().StringVarP(&synthOutput, "output", "o", "", "Output directory (overrides tryworks.yaml)")
	cmd.Flags().BoolVar(&synthFilePerResource, "file-per-resource", false, "Write one file per document")
	cmd.Flags().BoolVarP(&synthVerbose, "verbose", "v", false, "Print the app command before running it")

	return cmd
}

func runSynth(cmd *cobra.Command, args []string) error {
	successColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgCyan)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	outputDir := cfg.Output.Dir
	if synthOutput != "" {
		outputDir = synthOutput
	}
	filePerResource := cfg.Output.FilePerResource || synthFilePerResource

	parts := strings.Fields(cfg.App)
	if len(parts) == 0 {
		return fmt.Errorf("app command is empty; set 'app' in tryworks.yaml")
	}

	if synthVerbose {
		infoColor.Printf("Running: %s\n", cfg.App)
	}

	app := exec.Command(parts[0], parts[1:]...)
	app.Stdout = os.Stdout
	app.Stderr = os.Stderr
	app.Env = append(os.Environ(), "TRYWORKS_OUTPUT_DIR="+outputDir)
	if filePerResource {
		app.Env = append(app.Env, "TRYWORKS_FILE_PER_RESOURCE=1")
	}

	if err := app.Run(); err != nil {
		return fmt.Errorf("app command failed: %w", err)
	}

	manifests, err := collectManifests(outputDir)
	if err != nil {
		return err
	}
	if len(manifests) == 0 {
		return fmt.Errorf("no manifests found in %s; the app may not have written any", outputDir)
	}

	docs, err := loadDocuments(manifests)
	if err != nil {
		return err
	}
	for _, path := range manifests {
		infoColor.Printf("  ✓ %s\n", path)
	}

	if err := reportChanges(outputDir, docs); err != nil {
		return err
	}

	successColor.Printf("\nSynthesized %d document(s) across %d file(s) in %s\n",
		len(docs), len(manifests), outputDir)
	return nil
}

// loadDocuments parses every document of the given manifest files.
func loadDocuments(paths []string) ([]*unstructured.Unstructured, error) {
	var docs []*unstructured.Unstructured
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		for i, docText := range splitDocuments(data) {
			doc := &unstructured.Unstructured{}
			if err := yaml.Unmarshal([]byte(docText), &doc.Object); err != nil {
				return nil, fmt.Errorf("failed to parse %s document %d: %w", path, i+1, err)
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// reportChanges diffs this run against the recorded inventory of the last
// one and saves the new inventory.
func reportChanges(outputDir string, docs []*unstructured.Unstructured) error {
	addColor := color.New(color.FgGreen)
	changeColor := color.New(color.FgYellow)
	removeColor := color.New(color.FgRed)

	current, err := inventory.FromDocuments(docs)
	if err != nil {
		return err
	}

	invPath := filepath.Join(outputDir, inventory.FileName)
	previous, err := inventory.Load(invPath)
	if err != nil {
		return err
	}

	if previous != nil {
		changes := inventory.Diff(previous, current)
		if changes.Empty() {
			fmt.Println("\nNo changes since the last run")
		} else {
			fmt.Println()
			for _, key := range changes.Added {
				addColor.Printf("  + %s\n", key)
			}
			for _, key := range changes.Changed {
				changeColor.Printf("  ~ %s\n", key)
			}
			for _, key := range changes.Removed {
				removeColor.Printf("  - %s\n", key)
			}
		}
	}

	return current.Save(invPath)
}

// collectManifests lists the YAML files in dir, sorted by name so numbered
// per-resource files keep their document order.
func collectManifests(dir string) ([]string, error) {
	var manifests []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
		}
		manifests = append(manifests, matches...)
	}
	sort.Strings(manifests)
	return manifests, nil
}
