package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hostprep/hostprep/pkg/distro"
	"github.com/hostprep/hostprep/pkg/facts"
	"github.com/hostprep/hostprep/pkg/ledger"
	"github.com/hostprep/hostprep/pkg/runner"
)

func testProfile() *distro.Profile {
	return &distro.Profile{
		Family:  distro.FamilyDebian,
		Manager: "apt-get",
		Update:  runner.Command{Path: "apt-get", Args: []string{"update"}},
		Install: runner.Command{Path: "apt-get", Args: []string{"install", "-y"}},
		Repair:  runner.Command{Path: "apt-get", Args: []string{"install", "-f", "-y"}},
	}
}

func testHost() facts.HostFacts {
	return facts.HostFacts{
		OSName:   "Ubuntu 24.04 LTS",
		Kernel:   "6.8.0-41-generic",
		Arch:     "x86_64",
		Hostname: "workstation",
	}
}

func testTiming() Timing {
	start := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	return Timing{Start: start, End: start.Add(3 * time.Minute)}
}

func summaryWith(entries ...ledger.Entry) ledger.Summary {
	agg := ledger.NewAggregator()
	for _, e := range entries {
		agg.Record(e.Spec, e.Outcome)
	}
	return agg.Summary()
}

func TestRenderAllSucceeded(t *testing.T) {
	summary := summaryWith(
		ledger.Entry{Spec: ledger.PackageSpec{Name: "git", Required: true}, Outcome: ledger.Installed(1)},
		ledger.Entry{Spec: ledger.PackageSpec{Name: "curl", Required: true}, Outcome: ledger.Installed(2)},
	)

	doc := Render(summary, testHost(), testProfile(), testTiming(), Outputs{
		ReportPath: "/var/log/hostprep/report.txt",
		LogPath:    "/var/log/hostprep/run.log",
	})

	for _, want := range []string{
		"Installed:  2",
		"Failed:     0",
		"Ubuntu 24.04 LTS",
		"6.8.0-41-generic",
		"workstation",
		"- git",
		"- curl (after 2 attempts)",
		"No specific errors recorded",
		"/var/log/hostprep/report.txt",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("report missing %q:\n%s", want, doc)
		}
	}

	// Clean runs carry no troubleshooting section.
	if strings.Contains(doc, "Troubleshooting") {
		t.Error("troubleshooting section present without failures")
	}

	// Empty categories render as None.
	if !strings.Contains(doc, "Failed Packages\n---------------\nNone") {
		t.Error("failed section should read None")
	}
}

func TestRenderWithFailures(t *testing.T) {
	agg := ledger.NewAggregator()
	agg.Record(ledger.PackageSpec{Name: "git", Required: true}, ledger.Installed(1))
	agg.Record(ledger.PackageSpec{Name: "tlp"}, ledger.Skipped("not applicable for distro"))
	agg.Record(ledger.PackageSpec{Name: "vim", Required: true}, ledger.Failed("E: broken index", 3))
	agg.AddDetail("vim: E: broken index")

	doc := Render(agg.Summary(), testHost(), testProfile(), testTiming(), Outputs{})

	for _, want := range []string{
		"Failed:     1",
		"- vim (3 attempts: E: broken index)",
		"- tlp (not applicable for distro)",
		"Troubleshooting",
		"apt-get update",
		"apt-get install -f -y",
		"apt-get install -y <package>",
		"- vim: E: broken index",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("report missing %q:\n%s", want, doc)
		}
	}
}

func TestRenderDeterministic(t *testing.T) {
	summary := summaryWith(
		ledger.Entry{Spec: ledger.PackageSpec{Name: "git"}, Outcome: ledger.Installed(1)},
	)
	a := Render(summary, testHost(), testProfile(), testTiming(), Outputs{})
	b := Render(summary, testHost(), testProfile(), testTiming(), Outputs{})
	if a != b {
		t.Error("Render is not deterministic")
	}
}

func TestSectionOrder(t *testing.T) {
	summary := summaryWith(
		ledger.Entry{Spec: ledger.PackageSpec{Name: "vim"}, Outcome: ledger.Failed("x", 3)},
	)
	doc := Render(summary, testHost(), testProfile(), testTiming(), Outputs{})

	sections := []string{
		"Execution Summary",
		"System Information",
		"Failed Packages",
		"Skipped Packages",
		"Successful Packages",
		"Error Details",
		"Troubleshooting",
		"Output Files",
	}
	last := -1
	for _, s := range sections {
		idx := strings.Index(doc, s)
		if idx < 0 {
			t.Fatalf("section %q missing", s)
		}
		if idx < last {
			t.Errorf("section %q out of order", s)
		}
		last = idx
	}
}

func TestPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "report.txt")
	if err := Persist(path, "content"); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "content" {
		t.Errorf("persisted %q", data)
	}
}

func TestFileNamesEmbedTimestamp(t *testing.T) {
	start := time.Date(2026, 8, 25, 10, 30, 45, 0, time.UTC)
	if got, want := FileName(start), "provision-report-20260825-103045.txt"; got != want {
		t.Errorf("FileName() = %q, want %q", got, want)
	}
	if got, want := LogFileName(start), "provision-20260825-103045.log"; got != want {
		t.Errorf("LogFileName() = %q, want %q", got, want)
	}
}
