package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if len(cfg.RequiredPackages) == 0 {
		t.Fatal("default config has no required packages")
	}
	if cfg.OSReleasePath != "/etc/os-release" {
		t.Errorf("OSReleasePath = %q", cfg.OSReleasePath)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	content := `
output_dir: /tmp/hostprep-test
required_packages:
  - git
  - curl
optional_packages:
  - tlp
attempt_timeout: 90s
dotfiles:
  repo_url: https://example.com/me/dotfiles.git
  user: me
  target_dir: /home/me/.dotfiles
`
	path := filepath.Join(t.TempDir(), "hostprep.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.OutputDir != "/tmp/hostprep-test" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if len(cfg.RequiredPackages) != 2 || cfg.RequiredPackages[0] != "git" {
		t.Errorf("RequiredPackages = %v", cfg.RequiredPackages)
	}
	if cfg.AttemptTimeout.Std() != 90*time.Second {
		t.Errorf("AttemptTimeout = %v", cfg.AttemptTimeout)
	}
	if cfg.Dotfiles.User != "me" {
		t.Errorf("Dotfiles.User = %q", cfg.Dotfiles.User)
	}
	// Untouched keys keep their defaults.
	if cfg.DatabasePath == "" {
		t.Error("DatabasePath default lost")
	}
}

func TestLoadRejectsEmptyRequiredList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hostprep.yaml")
	if err := os.WriteFile(path, []byte("required_packages: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for empty required package list")
	}
}

func TestLoadRejectsBadDotfilesURL(t *testing.T) {
	content := `
dotfiles:
  repo_url: "not a url"
  user: me
  target_dir: /home/me/.dotfiles
`
	path := filepath.Join(t.TempDir(), "hostprep.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for malformed repo url")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
