// Package installer drives install attempts for a single package
// through the name mapper and the distro profile, with bounded retries
// and repair-and-refresh escalation between attempts.
package installer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hostprep/hostprep/pkg/distro"
	"github.com/hostprep/hostprep/pkg/ledger"
	"github.com/hostprep/hostprep/pkg/pkgmap"
	"github.com/hostprep/hostprep/pkg/runner"
)

const (
	// MaxAttempts bounds the install invocations per package.
	MaxAttempts = 3

	// RetryDelay is the fixed wait between attempts.
	RetryDelay = 2 * time.Second

	// ReasonNotApplicable is the skip reason for packages a family
	// does not ship.
	ReasonNotApplicable = "not applicable for distro"

	// ReasonInterrupted is the failure text when the run is cancelled
	// mid-retry with no diagnostic captured yet.
	ReasonInterrupted = "interrupted before retry budget was spent"
)

// attemptRecord tracks one attempt for the duration of a package's
// retry loop. Discarded once the package reaches a terminal outcome.
type attemptRecord struct {
	attempt    int
	ok         bool
	diagnostic string
}

// Installer executes install attempts sequentially. It is stateless
// across packages.
type Installer struct {
	run            runner.Runner
	log            zerolog.Logger
	retryDelay     time.Duration
	attemptTimeout time.Duration
	observeAttempt func(time.Duration)
	observeRepair  func(logical string, attempt int)
}

// Option configures an Installer.
type Option func(*Installer)

// WithRetryDelay overrides the fixed delay between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(i *Installer) { i.retryDelay = d }
}

// WithAttemptTimeout bounds each external invocation. Zero leaves the
// package manager unbounded.
func WithAttemptTimeout(d time.Duration) Option {
	return func(i *Installer) { i.attemptTimeout = d }
}

// WithAttemptObserver registers a callback invoked with the duration
// of every install invocation.
func WithAttemptObserver(fn func(time.Duration)) Option {
	return func(i *Installer) { i.observeAttempt = fn }
}

// WithRepairObserver registers a callback invoked before each
// repair-and-refresh pass between failed attempts.
func WithRepairObserver(fn func(logical string, attempt int)) Option {
	return func(i *Installer) { i.observeRepair = fn }
}

// New creates an Installer.
func New(run runner.Runner, log zerolog.Logger, opts ...Option) *Installer {
	inst := &Installer{
		run:        run,
		log:        log,
		retryDelay: RetryDelay,
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// Install resolves the logical name for the profile's family and
// attempts installation up to MaxAttempts times. Not-applicable
// packages are skipped without any external invocation. Between failed
// attempts the profile's repair and update commands run best-effort,
// followed by the retry delay. The exit status of the install command
// is the sole success signal.
func (i *Installer) Install(ctx context.Context, logical string, profile *distro.Profile) ledger.PackageOutcome {
	resolved := pkgmap.Resolve(logical, profile.Family)
	if !resolved.Applicable {
		i.log.Info().
			Str("package", logical).
			Str("family", string(profile.Family)).
			Msg("package not applicable, skipping")
		return ledger.Skipped(ReasonNotApplicable)
	}

	var last attemptRecord
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return interrupted(last, attempt-1)
		}

		last = i.attempt(ctx, profile, resolved.Name, attempt)
		if last.ok {
			i.log.Info().
				Str("package", logical).
				Str("concrete", resolved.Name).
				Int("attempt", attempt).
				Msg("package installed")
			return ledger.Installed(attempt)
		}

		i.log.Warn().
			Str("package", logical).
			Str("concrete", resolved.Name).
			Int("attempt", attempt).
			Str("diagnostic", last.diagnostic).
			Msg("install attempt failed")

		if attempt < MaxAttempts {
			if i.observeRepair != nil {
				i.observeRepair(logical, attempt)
			}
			i.repairAndRefresh(ctx, profile, attempt)
			if !i.wait(ctx) {
				return interrupted(last, attempt)
			}
		}
	}

	return ledger.Failed(last.diagnostic, MaxAttempts)
}

func (i *Installer) attempt(ctx context.Context, profile *distro.Profile, concrete string, attempt int) attemptRecord {
	cmd := profile.InstallCommand(concrete)
	cmd.Timeout = i.attemptTimeout

	result, err := i.run.Run(ctx, cmd)
	if i.observeAttempt != nil {
		i.observeAttempt(result.Duration)
	}
	if err != nil {
		return attemptRecord{attempt: attempt, diagnostic: err.Error()}
	}
	if result.Ok() {
		return attemptRecord{attempt: attempt, ok: true}
	}
	return attemptRecord{attempt: attempt, diagnostic: result.Diagnostic()}
}

// repairAndRefresh runs the profile's repair and update commands, both
// best-effort: their failures are logged and ignored.
func (i *Installer) repairAndRefresh(ctx context.Context, profile *distro.Profile, attempt int) {
	for _, cmd := range []runner.Command{profile.Repair, profile.Update} {
		cmd.Timeout = i.attemptTimeout
		result, err := i.run.Run(ctx, cmd)
		switch {
		case err != nil:
			i.log.Warn().
				Int("attempt", attempt).
				Str("command", cmd.String()).
				Err(err).
				Msg("recovery command did not run")
		case !result.Ok():
			i.log.Warn().
				Int("attempt", attempt).
				Str("command", cmd.String()).
				Int("exit_code", result.ExitCode).
				Msg("recovery command failed")
		default:
			i.log.Debug().
				Int("attempt", attempt).
				Str("command", cmd.String()).
				Msg("recovery command completed")
		}
	}
}

// wait blocks for the retry delay, honouring cancellation. Returns
// false when the context was cancelled before the delay elapsed.
func (i *Installer) wait(ctx context.Context) bool {
	select {
	case <-time.After(i.retryDelay):
		return true
	case <-ctx.Done():
		return false
	}
}

// interrupted builds the outcome for a run cancelled mid-retry. The
// budget was not spent, so AttemptsExhausted stays false.
func interrupted(last attemptRecord, attempts int) ledger.PackageOutcome {
	diag := last.diagnostic
	if diag == "" {
		diag = ReasonInterrupted
	}
	return ledger.PackageOutcome{
		Kind:      ledger.OutcomeFailed,
		LastError: diag,
		Attempts:  attempts,
	}
}
