package pkgmap

import (
	"testing"

	"github.com/hostprep/hostprep/pkg/config"
	"github.com/hostprep/hostprep/pkg/distro"
)

func TestResolveAliases(t *testing.T) {
	tests := []struct {
		logical        string
		family         distro.Family
		wantName       string
		wantApplicable bool
	}{
		{"python3-pip", distro.FamilyDebian, "python3-pip", true},
		{"python3-pip", distro.FamilyAlpine, "py3-pip", true},
		{"python3-pip", distro.FamilyRHELLike, "python3-pip", true},
		{"build-tools", distro.FamilyDebian, "build-essential", true},
		{"build-tools", distro.FamilyAlpine, "build-base", true},
		{"build-tools", distro.FamilyRHELLike, "gcc-c++", true},
		{"openssh-client", distro.FamilyRHELLike, "openssh-clients", true},
		{"shellcheck", distro.FamilyRHELLike, "ShellCheck", true},
		{"tlp", distro.FamilyDebian, "tlp", true},
		{"tlp", distro.FamilyAlpine, "", false},
		{"tlp", distro.FamilyRHELLike, "tlp", true},
		{"software-properties", distro.FamilyAlpine, "", false},
		// Pass-through for names without an alias entry.
		{"git", distro.FamilyDebian, "git", true},
		{"htop", distro.FamilyAlpine, "htop", true},
		{"curl", distro.FamilyRHELLike, "curl", true},
	}

	for _, tt := range tests {
		t.Run(tt.logical+"/"+string(tt.family), func(t *testing.T) {
			got := Resolve(tt.logical, tt.family)
			if got.Applicable != tt.wantApplicable {
				t.Fatalf("Applicable = %v, want %v", got.Applicable, tt.wantApplicable)
			}
			if got.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", got.Name, tt.wantName)
			}
			if got.Logical != tt.logical {
				t.Errorf("Logical = %q, want %q", got.Logical, tt.logical)
			}
		})
	}
}

// Every aliased logical name must have a defined result for every
// recognized family, and resolution must be deterministic.
func TestResolveTotalAndDeterministic(t *testing.T) {
	for _, logical := range Aliased() {
		for _, family := range distro.Families() {
			first := Resolve(logical, family)
			second := Resolve(logical, family)
			if first != second {
				t.Errorf("Resolve(%q, %s) not deterministic: %+v vs %+v",
					logical, family, first, second)
			}
			if first.Applicable && first.Name == "" {
				t.Errorf("Resolve(%q, %s) applicable with empty name", logical, family)
			}
		}
	}
}

// The built-in package set resolves on every recognized family.
func TestResolveDefaultPackageSet(t *testing.T) {
	cfg := config.Default()
	for _, logical := range append(append([]string{}, cfg.RequiredPackages...), cfg.OptionalPackages...) {
		for _, family := range distro.Families() {
			got := Resolve(logical, family)
			if got.Applicable && got.Name == "" {
				t.Errorf("Resolve(%q, %s) applicable with empty name", logical, family)
			}
		}
	}
}

func TestAliasedSorted(t *testing.T) {
	names := Aliased()
	if len(names) == 0 {
		t.Fatal("no aliased names")
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("Aliased() not sorted: %q before %q", names[i-1], names[i])
		}
	}
}
