package facts

import (
	"testing"

	"github.com/hostprep/hostprep/pkg/distro"
)

func TestCollect(t *testing.T) {
	got, err := Collect(distro.OSIdentity{ID: "ubuntu", PrettyName: "Ubuntu 24.04 LTS"})
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}

	if got.OSName != "Ubuntu 24.04 LTS" {
		t.Errorf("OSName = %q, want pretty name", got.OSName)
	}
	if got.Kernel == "" {
		t.Error("Kernel is empty")
	}
	if got.Arch == "" {
		t.Error("Arch is empty")
	}
	if got.Hostname == "" {
		t.Error("Hostname is empty")
	}
}

func TestCollectFallsBackToID(t *testing.T) {
	got, err := Collect(distro.OSIdentity{ID: "alpine"})
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if got.OSName != "alpine" {
		t.Errorf("OSName = %q, want ID fallback", got.OSName)
	}
}
