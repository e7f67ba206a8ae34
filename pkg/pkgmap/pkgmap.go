// Package pkgmap maps logical package names to the concrete names a
// distribution family installs them under. The mapping is pure and
// total: every (logical, family) pair yields a result, possibly
// NotApplicable for packages a family simply does not ship.
package pkgmap

import (
	"sort"

	"github.com/hostprep/hostprep/pkg/distro"
)

// ResolvedPackage is the result of mapping one logical name through a
// family. When Applicable is false the package does not exist for the
// family and must be skipped, not attempted.
type ResolvedPackage struct {
	Logical    string
	Name       string
	Applicable bool
}

type mapping struct {
	name          string
	notApplicable bool
}

// aliases carries only the names that differ per family or are absent
// somewhere. Logical names not listed here install under their own
// name on every family.
var aliases = map[string]map[distro.Family]mapping{
	"python3-pip": {
		distro.FamilyDebian:   {name: "python3-pip"},
		distro.FamilyAlpine:   {name: "py3-pip"},
		distro.FamilyRHELLike: {name: "python3-pip"},
	},
	"build-tools": {
		distro.FamilyDebian:   {name: "build-essential"},
		distro.FamilyAlpine:   {name: "build-base"},
		distro.FamilyRHELLike: {name: "gcc-c++"},
	},
	"openssh-client": {
		distro.FamilyDebian:   {name: "openssh-client"},
		distro.FamilyAlpine:   {name: "openssh-client"},
		distro.FamilyRHELLike: {name: "openssh-clients"},
	},
	"fd": {
		distro.FamilyDebian:   {name: "fd-find"},
		distro.FamilyAlpine:   {name: "fd"},
		distro.FamilyRHELLike: {name: "fd-find"},
	},
	"shellcheck": {
		distro.FamilyDebian:   {name: "shellcheck"},
		distro.FamilyAlpine:   {name: "shellcheck"},
		distro.FamilyRHELLike: {name: "ShellCheck"},
	},
	"tlp": {
		distro.FamilyDebian:   {name: "tlp"},
		distro.FamilyAlpine:   {notApplicable: true},
		distro.FamilyRHELLike: {name: "tlp"},
	},
	"software-properties": {
		distro.FamilyDebian:   {name: "software-properties-common"},
		distro.FamilyAlpine:   {notApplicable: true},
		distro.FamilyRHELLike: {notApplicable: true},
	},
}

// Resolve maps a logical name for a family. Names without an alias
// entry pass through unchanged, which keeps the mapping total by
// construction.
func Resolve(logical string, family distro.Family) ResolvedPackage {
	if perFamily, ok := aliases[logical]; ok {
		if m, ok := perFamily[family]; ok {
			if m.notApplicable {
				return ResolvedPackage{Logical: logical, Applicable: false}
			}
			return ResolvedPackage{Logical: logical, Name: m.name, Applicable: true}
		}
		// Alias table covers every recognized family; an absent entry
		// only happens for FamilyUnsupported, which never reaches here.
		return ResolvedPackage{Logical: logical, Applicable: false}
	}
	return ResolvedPackage{Logical: logical, Name: logical, Applicable: true}
}

// Aliased returns the logical names with explicit per-family entries,
// sorted for stable output.
func Aliased() []string {
	names := make([]string, 0, len(aliases))
	for name := range aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
