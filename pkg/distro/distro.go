// Package distro resolves the host's distribution family and the
// package-manager command templates that go with it. A Profile is
// resolved once per run and never mutated afterwards.
package distro

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hostprep/hostprep/pkg/runner"
)

// DefaultOSReleasePath is the standard host identity source.
const DefaultOSReleasePath = "/etc/os-release"

// Family classifies distributions by their package manager lineage.
type Family string

const (
	FamilyDebian      Family = "debian"
	FamilyAlpine      Family = "alpine"
	FamilyRHELLike    Family = "rhel-like"
	FamilyUnsupported Family = "unsupported"
)

// OSIdentity is the host identification data read from os-release.
type OSIdentity struct {
	// ID is the machine-readable distribution identifier. Required.
	ID string

	// PrettyName is the human-readable name, informational only.
	PrettyName string
}

// Profile is the immutable per-run description of how to drive the
// host's package manager. All commands are structured templates: an
// executable plus fixed arguments, with only the concrete package
// name appended at install time.
type Profile struct {
	Family     Family
	ID         string
	PrettyName string

	// Manager is the package-manager executable (apt-get, apk, dnf, yum).
	Manager string

	// Update refreshes the package repositories.
	Update runner.Command

	// InstallPrefix is the install command without a package name.
	Install runner.Command

	// Repair attempts to fix broken package-manager state before a retry.
	Repair runner.Command

	// EPELPackage, when non-empty, names a repository package that is
	// best-effort installed once before the first regular install.
	EPELPackage string
}

// InstallCommand returns the full install invocation for one concrete
// package name.
func (p *Profile) InstallCommand(pkg string) runner.Command {
	args := make([]string, 0, len(p.Install.Args)+1)
	args = append(args, p.Install.Args...)
	args = append(args, pkg)
	return runner.Command{Path: p.Install.Path, Args: args}
}

// UnsupportedDistroError is returned when the host identity does not
// map to any known family. It is fatal: no provisioning state has been
// touched when it is raised.
type UnsupportedDistroError struct {
	ID string
}

func (e *UnsupportedDistroError) Error() string {
	return fmt.Sprintf("unsupported distribution: %q", e.ID)
}

// familyByID maps os-release ID values to families. Derivatives share
// their parent's package manager.
var familyByID = map[string]Family{
	"debian":     FamilyDebian,
	"ubuntu":     FamilyDebian,
	"linuxmint":  FamilyDebian,
	"pop":        FamilyDebian,
	"raspbian":   FamilyDebian,
	"elementary": FamilyDebian,
	"kali":       FamilyDebian,

	"alpine": FamilyAlpine,

	"rhel":      FamilyRHELLike,
	"centos":    FamilyRHELLike,
	"fedora":    FamilyRHELLike,
	"rocky":     FamilyRHELLike,
	"almalinux": FamilyRHELLike,
	"ol":        FamilyRHELLike,
	"amzn":      FamilyRHELLike,
}

// FamilyForID returns the family for an os-release ID, or
// FamilyUnsupported when the ID is unknown.
func FamilyForID(id string) Family {
	if f, ok := familyByID[strings.ToLower(strings.TrimSpace(id))]; ok {
		return f
	}
	return FamilyUnsupported
}

// Families lists every recognized family, in a stable order.
func Families() []Family {
	return []Family{FamilyDebian, FamilyAlpine, FamilyRHELLike}
}

// Resolver turns a host identity into a Profile. The runner is only
// used for PATH lookups (DNF to YUM fallback).
type Resolver struct {
	run runner.Runner
}

// NewResolver creates a Resolver.
func NewResolver(run runner.Runner) *Resolver {
	return &Resolver{run: run}
}

// Resolve maps the identity to a Profile. Unrecognized identities
// fail with UnsupportedDistroError before any state mutation.
func (r *Resolver) Resolve(identity OSIdentity) (*Profile, error) {
	family := FamilyForID(identity.ID)

	profile := &Profile{
		Family:     family,
		ID:         identity.ID,
		PrettyName: identity.PrettyName,
	}

	switch family {
	case FamilyDebian:
		profile.Manager = "apt-get"
		profile.Update = runner.Command{Path: "apt-get", Args: []string{"update"}}
		profile.Install = runner.Command{Path: "apt-get", Args: []string{"install", "-y"}}
		profile.Repair = runner.Command{Path: "apt-get", Args: []string{"install", "-f", "-y"}}

	case FamilyAlpine:
		profile.Manager = "apk"
		profile.Update = runner.Command{Path: "apk", Args: []string{"update"}}
		profile.Install = runner.Command{Path: "apk", Args: []string{"add"}}
		profile.Repair = runner.Command{Path: "apk", Args: []string{"fix"}}

	case FamilyRHELLike:
		manager := "dnf"
		if !r.run.LookPath("dnf") {
			manager = "yum"
		}
		profile.Manager = manager
		profile.Update = runner.Command{Path: manager, Args: []string{"makecache"}}
		profile.Install = runner.Command{Path: manager, Args: []string{"install", "-y"}}
		profile.Repair = runner.Command{Path: manager, Args: []string{"clean", "all"}}
		profile.EPELPackage = "epel-release"

	default:
		return nil, &UnsupportedDistroError{ID: identity.ID}
	}

	return profile, nil
}

// ParseOSRelease parses os-release key-value data. Values may be
// quoted; comments and blank lines are ignored.
func ParseOSRelease(r io.Reader) (map[string]string, error) {
	values := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		values[strings.TrimSpace(key)] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read os-release data: %w", err)
	}

	return values, nil
}

// LoadIdentity reads the host identity from an os-release file. A
// missing file or a missing ID key is a fatal precondition: profile
// resolution is never reached and no report is generated.
func LoadIdentity(path string) (OSIdentity, error) {
	f, err := os.Open(path)
	if err != nil {
		return OSIdentity{}, fmt.Errorf("host identity source unavailable: %w", err)
	}
	defer f.Close()

	values, err := ParseOSRelease(f)
	if err != nil {
		return OSIdentity{}, err
	}

	id, ok := values["ID"]
	if !ok || id == "" {
		return OSIdentity{}, fmt.Errorf("host identity source %s has no ID key", path)
	}

	return OSIdentity{
		ID:         id,
		PrettyName: values["PRETTY_NAME"],
	}, nil
}
