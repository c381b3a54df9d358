package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the tryworks project configuration.
type Config struct {
	// App is the command that executes the construct program. The synth
	// command runs it with the output directory exported in its
	// environment.
	App     string       `mapstructure:"app"`
	Output  OutputConfig `mapstructure:"output"`
	Schemas []string     `mapstructure:"schemas"`
}

// OutputConfig controls where the app writes its manifests.
type OutputConfig struct {
	Dir             string `mapstructure:"dir"`
	FileName        string `mapstructure:"file_name"`
	FilePerResource bool   `mapstructure:"file_per_resource"`
}

// Load reads tryworks.yaml from the working directory, falling back to
// defaults when no config file exists.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("app", "go run .")
	v.SetDefault("output.dir", "dist")
	v.SetDefault("output.file_name", "app.k8s.yaml")

	v.SetConfigName("tryworks")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("tryworks")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// InProject checks if the current directory holds a tryworks project.
func InProject() bool {
	if _, err := os.Stat("tryworks.yaml"); err == nil {
		return true
	}
	if _, err := os.Stat("tryworks.yml"); err == nil {
		return true
	}
	return false
}

// validateConfig validates the configuration.
func validateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.App) == "" {
		return fmt.Errorf("app command must not be empty")
	}
	if strings.ContainsAny(cfg.Output.FileName, "/\\") {
		return fmt.Errorf("output.file_name must be a bare file name, got: %s", cfg.Output.FileName)
	}
	return nil
}
