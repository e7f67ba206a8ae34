// Package ledger keeps the append-only record of per-package outcomes
// for one provisioning run. The pipeline owns a single Aggregator and
// threads it explicitly; there are no package-level globals.
package ledger

import (
	"fmt"
	"time"
)

// PackageSpec is the logical identity of a package, independent of any
// distribution's naming.
type PackageSpec struct {
	Name     string
	Required bool
}

// OutcomeKind is the terminal state category for one package.
type OutcomeKind string

const (
	OutcomeInstalled OutcomeKind = "installed"
	OutcomeSkipped   OutcomeKind = "skipped"
	OutcomeFailed    OutcomeKind = "failed"
)

// PackageOutcome is produced exactly once per package per run and
// never revised.
type PackageOutcome struct {
	Kind OutcomeKind

	// Reason explains a skip ("not applicable for distro",
	// "declined by user").
	Reason string

	// LastError is the diagnostic from the final failed attempt. May
	// be empty when the underlying tool was silent.
	LastError string

	// Attempts is the number of install invocations performed.
	Attempts int

	// AttemptsExhausted is set when every allowed attempt failed.
	AttemptsExhausted bool
}

// Installed builds a success outcome.
func Installed(attempts int) PackageOutcome {
	return PackageOutcome{Kind: OutcomeInstalled, Attempts: attempts}
}

// Skipped builds a skip outcome with its reason.
func Skipped(reason string) PackageOutcome {
	return PackageOutcome{Kind: OutcomeSkipped, Reason: reason}
}

// Failed builds a failure outcome after the retry budget is spent.
func Failed(lastError string, attempts int) PackageOutcome {
	return PackageOutcome{
		Kind:              OutcomeFailed,
		LastError:         lastError,
		Attempts:          attempts,
		AttemptsExhausted: true,
	}
}

// Entry is one ledger line: a package and its terminal outcome.
type Entry struct {
	Spec       PackageSpec
	Outcome    PackageOutcome
	RecordedAt time.Time
}

// Summary is the read-only view handed to the report generator.
type Summary struct {
	Installed int
	Skipped   int
	Failed    int
	Entries   []Entry
	Details   []string
}

// Total returns the number of recorded packages.
func (s Summary) Total() int {
	return len(s.Entries)
}

// Aggregator is the mutable, append-only ledger. It is not safe for
// concurrent use; the single-threaded pipeline is its only writer.
type Aggregator struct {
	entries []Entry
	seen    map[string]bool
	details []string
	now     func() time.Time
}

// NewAggregator creates an empty ledger.
func NewAggregator() *Aggregator {
	return &Aggregator{
		seen: make(map[string]bool),
		now:  time.Now,
	}
}

// Record appends one terminal outcome. Recording the same package
// twice in a run is a caller defect and is rejected.
func (a *Aggregator) Record(spec PackageSpec, outcome PackageOutcome) error {
	if a.seen[spec.Name] {
		return fmt.Errorf("package %q already recorded", spec.Name)
	}
	a.seen[spec.Name] = true
	a.entries = append(a.entries, Entry{
		Spec:       spec,
		Outcome:    outcome,
		RecordedAt: a.now(),
	})
	return nil
}

// AddDetail appends a free-text error detail line.
func (a *Aggregator) AddDetail(text string) {
	a.details = append(a.details, text)
}

// Summary returns counts per outcome category plus the full ledger in
// recording order. The returned slices must be treated as read-only.
func (a *Aggregator) Summary() Summary {
	s := Summary{
		Entries: a.entries,
		Details: a.details,
	}
	for _, e := range a.entries {
		switch e.Outcome.Kind {
		case OutcomeInstalled:
			s.Installed++
		case OutcomeSkipped:
			s.Skipped++
		case OutcomeFailed:
			s.Failed++
		}
	}
	return s
}

// HasFailures reports whether any recorded outcome is a failure.
func (a *Aggregator) HasFailures() bool {
	for _, e := range a.entries {
		if e.Outcome.Kind == OutcomeFailed {
			return true
		}
	}
	return false
}
