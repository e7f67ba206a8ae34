// Package config loads and validates the provisioning run
// configuration. A built-in default covers the no-config case; a YAML
// file overrides it.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full run configuration.
type Config struct {
	// OSReleasePath is the host identity source.
	OSReleasePath string `yaml:"os_release_path" validate:"required"`

	// OutputDir receives the run log and the provisioning report.
	OutputDir string `yaml:"output_dir" validate:"required"`

	// DatabasePath is the SQLite run-history database.
	DatabasePath string `yaml:"database_path" validate:"required"`

	// RequiredPackages are installed unconditionally, logical names.
	RequiredPackages []string `yaml:"required_packages" validate:"min=1,dive,required"`

	// OptionalPackages are offered one by one via the prompt.
	OptionalPackages []string `yaml:"optional_packages" validate:"dive,required"`

	// AttemptTimeout bounds each package-manager invocation. Zero
	// disables the bound.
	AttemptTimeout Duration `yaml:"attempt_timeout"`

	// Dotfiles configures the final dotfiles-repository clone.
	Dotfiles DotfilesConfig `yaml:"dotfiles"`
}

// Duration unmarshals from YAML strings like "90s" as well as plain
// nanosecond integers.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	*d = Duration(n)
	return nil
}

// DotfilesConfig describes the dotfiles clone collaborator. An empty
// RepoURL disables the step.
type DotfilesConfig struct {
	RepoURL string `yaml:"repo_url" validate:"omitempty,url"`

	// User is the account the clone runs as, never the privileged
	// invoking identity.
	User string `yaml:"user" validate:"required_with=RepoURL"`

	// TargetDir is the clone destination, typically under the user's
	// home directory.
	TargetDir string `yaml:"target_dir" validate:"required_with=RepoURL"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		OSReleasePath: "/etc/os-release",
		OutputDir:     "/var/log/hostprep",
		DatabasePath:  "/var/lib/hostprep/history.db",
		RequiredPackages: []string{
			"git",
			"curl",
			"wget",
			"vim",
			"htop",
			"unzip",
			"build-tools",
			"python3",
			"python3-pip",
			"openssh-client",
		},
		OptionalPackages: []string{
			"tmux",
			"zsh",
			"shellcheck",
			"fd",
			"tlp",
		},
		AttemptTimeout: Duration(10 * time.Minute),
	}
}

// Load reads a YAML config file over the defaults and validates the
// result. An empty path returns the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration against its struct tags.
func Validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
