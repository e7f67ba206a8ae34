// Package report renders the ledger and host metadata into the
// persisted, human-readable provisioning report.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hostprep/hostprep/pkg/distro"
	"github.com/hostprep/hostprep/pkg/facts"
	"github.com/hostprep/hostprep/pkg/ledger"
)

// Timing is the run's start and end timestamps.
type Timing struct {
	Start time.Time
	End   time.Time
}

// Outputs names the artifacts a run produced.
type Outputs struct {
	ReportPath string
	LogPath    string
}

const divider = "=============================================="

// Render produces the report document. It is a pure transformation of
// its inputs: same ledger, host and timing always yield the same text.
// Section order is fixed.
func Render(summary ledger.Summary, host facts.HostFacts, profile *distro.Profile, timing Timing, outputs Outputs) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n hostprep provisioning report\n%s\n\n", divider, divider)

	// Execution summary
	fmt.Fprintf(&b, "Execution Summary\n-----------------\n")
	fmt.Fprintf(&b, "Started:    %s\n", timing.Start.Format(time.RFC3339))
	fmt.Fprintf(&b, "Finished:   %s\n", timing.End.Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration:   %s\n", timing.End.Sub(timing.Start).Round(time.Second))
	fmt.Fprintf(&b, "Installed:  %d\n", summary.Installed)
	fmt.Fprintf(&b, "Skipped:    %d\n", summary.Skipped)
	fmt.Fprintf(&b, "Failed:     %d\n\n", summary.Failed)

	// System information
	fmt.Fprintf(&b, "System Information\n------------------\n")
	fmt.Fprintf(&b, "OS:              %s\n", host.OSName)
	fmt.Fprintf(&b, "Kernel:          %s\n", host.Kernel)
	fmt.Fprintf(&b, "Architecture:    %s\n", host.Arch)
	fmt.Fprintf(&b, "Hostname:        %s\n", host.Hostname)
	fmt.Fprintf(&b, "Distro family:   %s\n", profile.Family)
	fmt.Fprintf(&b, "Package manager: %s\n\n", profile.Manager)

	// Failed packages
	fmt.Fprintf(&b, "Failed Packages\n---------------\n")
	writeEntries(&b, summary.Entries, ledger.OutcomeFailed, func(e ledger.Entry) string {
		detail := fmt.Sprintf("%d attempts", e.Outcome.Attempts)
		if e.Outcome.LastError != "" {
			detail += ": " + e.Outcome.LastError
		}
		return detail
	})

	// Skipped packages
	fmt.Fprintf(&b, "Skipped Packages\n----------------\n")
	writeEntries(&b, summary.Entries, ledger.OutcomeSkipped, func(e ledger.Entry) string {
		return e.Outcome.Reason
	})

	// Successful packages
	fmt.Fprintf(&b, "Successful Packages\n-------------------\n")
	writeEntries(&b, summary.Entries, ledger.OutcomeInstalled, func(e ledger.Entry) string {
		if e.Outcome.Attempts > 1 {
			return fmt.Sprintf("after %d attempts", e.Outcome.Attempts)
		}
		return ""
	})

	// Error details
	fmt.Fprintf(&b, "Error Details\n-------------\n")
	if len(summary.Details) == 0 {
		fmt.Fprintf(&b, "No specific errors recorded\n\n")
	} else {
		for _, d := range summary.Details {
			fmt.Fprintf(&b, "- %s\n", d)
		}
		fmt.Fprintln(&b)
	}

	// Troubleshooting, only when something failed
	if summary.Failed > 0 {
		fmt.Fprintf(&b, "Troubleshooting\n---------------\n")
		fmt.Fprintf(&b, "Refresh the package index:  %s\n", profile.Update.String())
		fmt.Fprintf(&b, "Repair the package system:  %s\n", profile.Repair.String())
		fmt.Fprintf(&b, "Retry a single package:     %s <package>\n\n", profile.Install.String())
	}

	// Output locations
	fmt.Fprintf(&b, "Output Files\n------------\n")
	fmt.Fprintf(&b, "Report: %s\n", outputs.ReportPath)
	fmt.Fprintf(&b, "Log:    %s\n", outputs.LogPath)

	return b.String()
}

func writeEntries(b *strings.Builder, entries []ledger.Entry, kind ledger.OutcomeKind, detail func(ledger.Entry) string) {
	found := false
	for _, e := range entries {
		if e.Outcome.Kind != kind {
			continue
		}
		found = true
		if d := detail(e); d != "" {
			fmt.Fprintf(b, "- %s (%s)\n", e.Spec.Name, d)
		} else {
			fmt.Fprintf(b, "- %s\n", e.Spec.Name)
		}
	}
	if !found {
		fmt.Fprintf(b, "None\n")
	}
	fmt.Fprintln(b)
}

// Persist writes the report document. Its absence is never silently
// tolerated: any failure here is an unrecoverable run failure.
func Persist(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to persist report: %w", err)
	}
	return nil
}

// FileName returns the timestamped report filename for a run, so
// concurrent and historical runs never collide.
func FileName(start time.Time) string {
	return fmt.Sprintf("provision-report-%s.txt", start.Format("20060102-150405"))
}

// LogFileName returns the timestamped log filename for a run.
func LogFileName(start time.Time) string {
	return fmt.Sprintf("provision-%s.log", start.Format("20060102-150405"))
}
