package distro

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hostprep/hostprep/pkg/runner"
)

// pathRunner is a Runner stub whose PATH contents are scripted.
type pathRunner struct {
	available map[string]bool
}

func (p *pathRunner) Run(_ context.Context, _ runner.Command) (runner.Result, error) {
	return runner.Result{}, nil
}

func (p *pathRunner) LookPath(name string) bool {
	return p.available[name]
}

func TestFamilyForID(t *testing.T) {
	tests := []struct {
		id   string
		want Family
	}{
		{"ubuntu", FamilyDebian},
		{"debian", FamilyDebian},
		{"linuxmint", FamilyDebian},
		{"alpine", FamilyAlpine},
		{"centos", FamilyRHELLike},
		{"fedora", FamilyRHELLike},
		{"rocky", FamilyRHELLike},
		{"UBUNTU", FamilyDebian},
		{" alpine ", FamilyAlpine},
		{"arch", FamilyUnsupported},
		{"", FamilyUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := FamilyForID(tt.id); got != tt.want {
				t.Errorf("FamilyForID(%q) = %s, want %s", tt.id, got, tt.want)
			}
		})
	}
}

func TestResolveRecognizedFamilies(t *testing.T) {
	tests := []struct {
		name        string
		identity    OSIdentity
		dnfOnPath   bool
		wantManager string
		wantFamily  Family
		wantEPEL    string
	}{
		{
			name:        "ubuntu uses apt-get",
			identity:    OSIdentity{ID: "ubuntu", PrettyName: "Ubuntu 24.04 LTS"},
			wantManager: "apt-get",
			wantFamily:  FamilyDebian,
		},
		{
			name:        "alpine uses apk",
			identity:    OSIdentity{ID: "alpine"},
			wantManager: "apk",
			wantFamily:  FamilyAlpine,
		},
		{
			name:        "centos prefers dnf",
			identity:    OSIdentity{ID: "centos"},
			dnfOnPath:   true,
			wantManager: "dnf",
			wantFamily:  FamilyRHELLike,
			wantEPEL:    "epel-release",
		},
		{
			name:        "centos falls back to yum without dnf",
			identity:    OSIdentity{ID: "centos"},
			dnfOnPath:   false,
			wantManager: "yum",
			wantFamily:  FamilyRHELLike,
			wantEPEL:    "epel-release",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(&pathRunner{available: map[string]bool{"dnf": tt.dnfOnPath}})
			profile, err := r.Resolve(tt.identity)
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}

			if profile.Family != tt.wantFamily {
				t.Errorf("family = %s, want %s", profile.Family, tt.wantFamily)
			}
			if profile.Manager != tt.wantManager {
				t.Errorf("manager = %s, want %s", profile.Manager, tt.wantManager)
			}
			if profile.EPELPackage != tt.wantEPEL {
				t.Errorf("epel package = %q, want %q", profile.EPELPackage, tt.wantEPEL)
			}
			if profile.Update.Path == "" || profile.Install.Path == "" || profile.Repair.Path == "" {
				t.Error("profile has incomplete command templates")
			}
		})
	}
}

func TestResolveUnsupported(t *testing.T) {
	r := NewResolver(&pathRunner{})
	_, err := r.Resolve(OSIdentity{ID: "plan9"})
	if err == nil {
		t.Fatal("expected error for unsupported distro")
	}

	var unsupported *UnsupportedDistroError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedDistroError, got %T", err)
	}
	if unsupported.ID != "plan9" {
		t.Errorf("error ID = %q, want plan9", unsupported.ID)
	}
}

func TestInstallCommand(t *testing.T) {
	r := NewResolver(&pathRunner{available: map[string]bool{"dnf": true}})
	profile, err := r.Resolve(OSIdentity{ID: "debian"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	cmd := profile.InstallCommand("git")
	if got, want := cmd.String(), "apt-get install -y git"; got != want {
		t.Errorf("install command = %q, want %q", got, want)
	}

	// The template must not accumulate package names across calls.
	cmd2 := profile.InstallCommand("curl")
	if got, want := cmd2.String(), "apt-get install -y curl"; got != want {
		t.Errorf("second install command = %q, want %q", got, want)
	}
	if len(profile.Install.Args) != 2 {
		t.Errorf("install template mutated: %v", profile.Install.Args)
	}
}

func TestParseOSRelease(t *testing.T) {
	input := `# a comment
NAME="Alpine Linux"
ID=alpine
PRETTY_NAME="Alpine Linux v3.20"
VERSION_ID=3.20.1

HOME_URL="https://alpinelinux.org/"
MALFORMED LINE
`

	values, err := ParseOSRelease(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseOSRelease() error: %v", err)
	}

	if values["ID"] != "alpine" {
		t.Errorf("ID = %q, want alpine", values["ID"])
	}
	if values["PRETTY_NAME"] != "Alpine Linux v3.20" {
		t.Errorf("PRETTY_NAME = %q", values["PRETTY_NAME"])
	}
	if _, ok := values["MALFORMED LINE"]; ok {
		t.Error("malformed line should be ignored")
	}
}

func TestLoadIdentity(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "os-release")
	content := "ID=ubuntu\nPRETTY_NAME=\"Ubuntu 24.04 LTS\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	identity, err := LoadIdentity(path)
	if err != nil {
		t.Fatalf("LoadIdentity() error: %v", err)
	}
	if identity.ID != "ubuntu" {
		t.Errorf("ID = %q, want ubuntu", identity.ID)
	}
	if identity.PrettyName != "Ubuntu 24.04 LTS" {
		t.Errorf("PrettyName = %q", identity.PrettyName)
	}
}

func TestLoadIdentityMissingFile(t *testing.T) {
	_, err := LoadIdentity(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected error for missing identity source")
	}
}

func TestLoadIdentityMissingID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "os-release")
	if err := os.WriteFile(path, []byte("NAME=Something\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadIdentity(path); err == nil {
		t.Fatal("expected error when ID key is absent")
	}
}
