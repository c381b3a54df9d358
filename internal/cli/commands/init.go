package commands

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var (
	initModule    string
	initNamespace string
)

// validateProjectName validates project name with security checks
func validateProjectName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) == 0 || len(name) > 100 {
		return fmt.Errorf("project name must be 1-100 characters")
	}

	if filepath.IsAbs(name) {
		return fmt.Errorf("project name cannot be an absolute path")
	}

	matched, _ := regexp.MatchString(`^[a-zA-Z0-9_-]+$`, name)
	if !matched {
		return fmt.Errorf("project name can only contain letters, numbers, dashes, and underscores")
	}

	return nil
}

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [project-name]",
		Short: "Scaffold a new tryworks project",
		Long: `Create a construct program with a sample web service, a tryworks.yaml,
and a go.mod wired to the tryworks library.

Examples:
  tryworks init my-app
  tryworks init my-app --namespace production
  tryworks init my-app --module github.com/acme/my-app`,
		Args: cobra.ExactArgs(1),
		RunE: runInit,
	}

	cmd.Flags().StringVar(&initModule, "module", "", "Go module path (default example.com/<project-name>)")
	cmd.Flags().StringVar(&initNamespace, "namespace", "", "Target namespace (default <project-name>)")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	successColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgCyan)

	projectName := args[0]
	if err := validateProjectName(projectName); err != nil {
		return err
	}

	module := initModule
	if module == "" {
		module = "example.com/" + projectName
	}
	namespace := initNamespace
	if namespace == "" {
		namespace = projectName
	}

	projectPath := filepath.Join(".", projectName)
	if _, err := os.Stat(projectPath); err == nil {
		return fmt.Errorf("directory %s already exists", projectName)
	}

	infoColor.Printf("Creating project: %s\n\n", projectName)

	if err := os.MkdirAll(projectPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", projectPath, err)
	}

	data := map[string]interface{}{
		"ProjectName": projectName,
		"Module":      module,
		"Namespace":   namespace,
	}

	files := map[string]string{
		"main.go":       "templates/main.go.tmpl",
		"go.mod":        "templates/gomod.tmpl",
		"tryworks.yaml": "templates/tryworks.yaml.tmpl",
		".gitignore":    "templates/gitignore.tmpl",
	}

	for destPath, tmplPath := range files {
		if err := renderTemplate(filepath.Join(projectPath, destPath), tmplPath, data); err != nil {
			return err
		}
		infoColor.Printf("  ✓ Created %s\n", destPath)
	}

	successColor.Printf("\nProject %s created!\n\n", projectName)
	infoColor.Println("Next steps:")
	infoColor.Printf("  cd %s\n", projectName)
	infoColor.Println("  go mod tidy")
	infoColor.Println("  tryworks synth")

	return nil
}

func renderTemplate(destPath, tmplPath string, data map[string]interface{}) error {
	tmplContent, err := templatesFS.ReadFile(tmplPath)
	if err != nil {
		return fmt.Errorf("failed to read template %s: %w", tmplPath, err)
	}

	tmpl, err := template.New(filepath.Base(tmplPath)).Parse(string(tmplContent))
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", tmplPath, err)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", destPath, err)
	}

	if err := tmpl.Execute(f, data); err != nil {
		f.Close()
		os.Remove(destPath)
		return fmt.Errorf("failed to render %s: %w", tmplPath, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("failed to close %s: %w", destPath, err)
	}

	return nil
}
