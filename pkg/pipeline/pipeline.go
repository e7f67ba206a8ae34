// Package pipeline orchestrates a full provisioning run: host identity,
// distro resolution, the required and optional install passes, the
// dotfiles clone, and the final report. The report is persisted on
// every exit path, including interruption.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/hostprep/hostprep/pkg/config"
	"github.com/hostprep/hostprep/pkg/distro"
	"github.com/hostprep/hostprep/pkg/facts"
	"github.com/hostprep/hostprep/pkg/installer"
	"github.com/hostprep/hostprep/pkg/ledger"
	"github.com/hostprep/hostprep/pkg/report"
	"github.com/hostprep/hostprep/pkg/runner"
	"github.com/hostprep/hostprep/pkg/stores"
	"github.com/hostprep/hostprep/pkg/telemetry"
)

const (
	// DotfilesPackage is the pseudo-package name the dotfiles clone is
	// accounted under in the ledger and the report.
	DotfilesPackage = "dotfiles"

	// ReasonDeclined is the skip reason for optional packages the user
	// answered no to.
	ReasonDeclined = "declined by user"

	// ReasonNoDotfilesRepo is the skip reason when no repository is
	// configured.
	ReasonNoDotfilesRepo = "no dotfiles repository configured"

	// ReasonDotfilesDisabled is the skip reason when the clone was
	// switched off for this run.
	ReasonDotfilesDisabled = "dotfiles clone disabled"

	// ReasonRunInterrupted is the skip reason for packages never
	// reached because the run was cancelled.
	ReasonRunInterrupted = "run interrupted"
)

// Result summarizes a completed run.
type Result struct {
	RunID      string
	Summary    ledger.Summary
	ReportPath string
	LogPath    string
	Duration   time.Duration
}

// Pipeline wires the run collaborators together. Construct with New;
// the zero value is not usable.
type Pipeline struct {
	cfg config.Config
	run runner.Runner
	log *telemetry.Logger

	metrics  *telemetry.Metrics
	tracer   *telemetry.Tracer
	store    stores.Store
	prompter Prompter
	cloner   DotfilesCloner

	subscribers   []telemetry.EventSubscriber
	installerOpts []installer.Option

	assumeYes    bool
	skipDotfiles bool
	logPath      string
	now          func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore enables run-history persistence. Store failures never
// abort a run; they are logged and the run continues.
func WithStore(s stores.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithTracer attaches a tracer.
func WithTracer(t *telemetry.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// WithPrompter sets the prompter for the optional-package pass.
func WithPrompter(pr Prompter) Option {
	return func(p *Pipeline) { p.prompter = pr }
}

// WithCloner sets the dotfiles cloner.
func WithCloner(c DotfilesCloner) Option {
	return func(p *Pipeline) { p.cloner = c }
}

// WithEventSubscriber registers an extra subscriber on the run's
// event stream.
func WithEventSubscriber(fn telemetry.EventSubscriber) Option {
	return func(p *Pipeline) { p.subscribers = append(p.subscribers, fn) }
}

// WithInstallerOptions forwards options to the per-run installer.
func WithInstallerOptions(opts ...installer.Option) Option {
	return func(p *Pipeline) { p.installerOpts = append(p.installerOpts, opts...) }
}

// WithAssumeYes accepts every optional package without prompting.
func WithAssumeYes(yes bool) Option {
	return func(p *Pipeline) { p.assumeYes = yes }
}

// WithSkipDotfiles disables the dotfiles clone for this run.
func WithSkipDotfiles(skip bool) Option {
	return func(p *Pipeline) { p.skipDotfiles = skip }
}

// WithLogPath records the run log location in the report's output
// section. The log itself is managed by the caller.
func WithLogPath(path string) Option {
	return func(p *Pipeline) { p.logPath = path }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline.
func New(cfg config.Config, run runner.Runner, log *telemetry.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg: cfg,
		run: run,
		log: log,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics, _ = telemetry.NewMetrics(telemetry.MetricsConfig{})
	}
	if p.tracer == nil {
		p.tracer, _ = telemetry.NewTracer(telemetry.TracingConfig{}, "hostprep", "")
	}
	if p.prompter == nil {
		p.prompter = &StaticPrompter{}
	}
	if p.cloner == nil {
		p.cloner = NewGitCloner(run)
	}
	return p
}

// Run executes one provisioning run. Preconditions that fail before
// any provisioning state is touched return a FatalError; once the
// install passes start, every failure is captured in the ledger and
// the report is persisted regardless of how the run ends. A report
// that cannot be persisted is itself fatal.
func (p *Pipeline) Run(ctx context.Context) (result *Result, err error) {
	start := p.now()
	runID := uuid.New().String()
	log := p.log.NewComponentLogger("pipeline").WithRunID(runID)

	identity, lerr := distro.LoadIdentity(p.cfg.OSReleasePath)
	if lerr != nil {
		return nil, NewFatalError("identity", "host identity unavailable", lerr)
	}

	profile, rerr := distro.NewResolver(p.run).Resolve(identity)
	if rerr != nil {
		return nil, NewFatalError("resolve", "no usable package manager for this host", rerr)
	}

	host, ferr := facts.Collect(identity)
	if ferr != nil {
		return nil, NewFatalError("facts", "failed to collect host facts", ferr)
	}

	reportPath := filepath.Join(p.cfg.OutputDir, report.FileName(start))

	// Event rows and the run's terminal state must survive
	// cancellation, so store writes use an uncancellable context.
	storeCtx := context.WithoutCancel(ctx)

	events := telemetry.NewEventPublisher(runID)
	events.Subscribe(func(e telemetry.Event) { logEvent(log, e) })
	if p.store != nil {
		events.Subscribe(func(e telemetry.Event) {
			row := &stores.Event{
				RunID:     e.RunID,
				Type:      e.Type,
				Level:     e.Level,
				Message:   e.Message,
				Timestamp: e.Timestamp,
			}
			if e.Package != "" {
				pkg := e.Package
				row.Package = &pkg
			}
			if serr := p.store.AppendEvent(storeCtx, row); serr != nil {
				log.Warnf("failed to persist event %s: %v", e.Type, serr)
			}
		})
	}
	for _, sub := range p.subscribers {
		events.Subscribe(sub)
	}

	if p.store != nil {
		run := &stores.Run{
			ID:         runID,
			Hostname:   host.Hostname,
			Distro:     profile.ID,
			Family:     string(profile.Family),
			Status:     stores.RunStatusRunning,
			StartedAt:  start,
			ReportPath: reportPath,
		}
		if serr := p.store.CreateRun(storeCtx, run); serr != nil {
			log.Warnf("failed to record run start: %v", serr)
		}
	}

	inst := installer.New(p.run,
		log.NewComponentLogger("installer").Zerolog(),
		append([]installer.Option{
			installer.WithAttemptTimeout(p.cfg.AttemptTimeout.Std()),
			installer.WithAttemptObserver(p.metrics.RecordAttempt),
			installer.WithRepairObserver(func(pkg string, attempt int) {
				events.Publish(telemetry.EventTypeRepairTriggered, telemetry.EventLevelWarning, pkg,
					fmt.Sprintf("repair and refresh after attempt %d", attempt))
			}),
		}, p.installerOpts...)...)

	agg := ledger.NewAggregator()

	ctx, span := p.tracer.StartRunSpan(ctx, runID)
	span.SetAttributes(telemetry.AttrFamily.String(string(profile.Family)))

	// The report is built and persisted here no matter how the body
	// exits. Persistence failure is the one error this run cannot
	// absorb.
	defer func() {
		end := p.now()
		summary := agg.Summary()
		doc := report.Render(summary, host, profile, report.Timing{Start: start, End: end}, report.Outputs{
			ReportPath: reportPath,
			LogPath:    p.logPath,
		})
		perr := report.Persist(reportPath, doc)

		status := finalStatus(ctx, summary, perr)
		if p.store != nil {
			var errMsg *string
			if perr != nil {
				msg := perr.Error()
				errMsg = &msg
			}
			if serr := p.store.CompleteRun(storeCtx, runID, status, summary.Installed, summary.Skipped, summary.Failed, errMsg); serr != nil {
				log.Warnf("failed to record run completion: %v", serr)
			}
		}
		p.metrics.RecordRun(string(status), end.Sub(start))

		if perr != nil {
			events.Publish(telemetry.EventTypeRunFailed, telemetry.EventLevelError, "",
				fmt.Sprintf("report could not be persisted: %v", perr))
			telemetry.RecordError(span, perr)
			span.End()
			result = nil
			err = NewFatalError("report", "failed to persist provisioning report", perr)
			return
		}

		if summary.Failed > 0 {
			events.Publish(telemetry.EventTypeRunCompleted, telemetry.EventLevelWarning, "",
				fmt.Sprintf("run completed with %d failed package(s)", summary.Failed))
			telemetry.RecordError(span, fmt.Errorf("%d package(s) failed", summary.Failed))
		} else {
			events.Publish(telemetry.EventTypeRunCompleted, telemetry.EventLevelInfo, "",
				fmt.Sprintf("run completed, %d package(s) installed", summary.Installed))
			telemetry.RecordSuccess(span)
		}
		span.End()

		result = &Result{
			RunID:      runID,
			Summary:    summary,
			ReportPath: reportPath,
			LogPath:    p.logPath,
			Duration:   end.Sub(start),
		}
	}()

	events.Publish(telemetry.EventTypeRunStarted, telemetry.EventLevelInfo, "",
		fmt.Sprintf("provisioning %s host %s with %s", profile.ID, host.Hostname, profile.Manager))

	// Refresh indexes once up front, then enable supplemental
	// repositories where the family has one. Both best-effort.
	p.bestEffort(ctx, profile.Update, "index refresh", log)
	if profile.EPELPackage != "" {
		p.bestEffort(ctx, profile.InstallCommand(profile.EPELPackage), "supplemental repository enablement", log)
	}

	for _, name := range p.cfg.RequiredPackages {
		spec := ledger.PackageSpec{Name: name, Required: true}
		if ctx.Err() != nil {
			p.recordOutcome(storeCtx, log, agg, events, spec, ledger.Skipped(ReasonRunInterrupted))
			continue
		}
		p.installPackage(ctx, storeCtx, log, inst, agg, events, profile, spec)
	}

	for _, name := range p.cfg.OptionalPackages {
		spec := ledger.PackageSpec{Name: name}
		if ctx.Err() != nil {
			p.recordOutcome(storeCtx, log, agg, events, spec, ledger.Skipped(ReasonRunInterrupted))
			continue
		}

		accepted := p.assumeYes
		if !accepted {
			answer, perr := p.prompter.Confirm(fmt.Sprintf("Install optional package %q?", name))
			if perr != nil {
				log.Warnf("prompt for %s failed, treating as declined: %v", name, perr)
			}
			accepted = answer
		}
		if !accepted {
			p.recordOutcome(storeCtx, log, agg, events, spec, ledger.Skipped(ReasonDeclined))
			continue
		}
		p.installPackage(ctx, storeCtx, log, inst, agg, events, profile, spec)
	}

	p.cloneDotfiles(ctx, storeCtx, log, agg, events)

	return nil, nil
}

// installPackage runs one package through the installer under its own
// span and records the outcome.
func (p *Pipeline) installPackage(ctx, storeCtx context.Context, log *telemetry.Logger, inst *installer.Installer, agg *ledger.Aggregator, events *telemetry.EventPublisher, profile *distro.Profile, spec ledger.PackageSpec) {
	pctx, span := p.tracer.StartPackageSpan(ctx, spec.Name, spec.Required)
	outcome := inst.Install(pctx, spec.Name, profile)

	span.SetAttributes(telemetry.AttrOutcome.String(string(outcome.Kind)))
	if outcome.Kind == ledger.OutcomeFailed {
		telemetry.RecordError(span, errors.New(outcome.LastError))
	} else {
		telemetry.RecordSuccess(span)
	}
	span.End()

	p.recordOutcome(storeCtx, log, agg, events, spec, outcome)
}

// cloneDotfiles performs the final clone step and accounts it under
// the dotfiles pseudo-package.
func (p *Pipeline) cloneDotfiles(ctx, storeCtx context.Context, log *telemetry.Logger, agg *ledger.Aggregator, events *telemetry.EventPublisher) {
	spec := ledger.PackageSpec{Name: DotfilesPackage}

	var outcome ledger.PackageOutcome
	switch {
	case ctx.Err() != nil:
		outcome = ledger.Skipped(ReasonRunInterrupted)
	case p.skipDotfiles:
		outcome = ledger.Skipped(ReasonDotfilesDisabled)
	case p.cfg.Dotfiles.RepoURL == "":
		outcome = ledger.Skipped(ReasonNoDotfilesRepo)
	default:
		if cerr := p.cloner.Clone(ctx, p.cfg.Dotfiles); cerr != nil {
			outcome = ledger.Failed(cerr.Error(), 1)
		} else {
			outcome = ledger.Installed(1)
		}
	}

	p.recordOutcome(storeCtx, log, agg, events, spec, outcome)
}

// recordOutcome is the single funnel for terminal package outcomes:
// ledger, error details, metrics, events, and the history store.
func (p *Pipeline) recordOutcome(storeCtx context.Context, log *telemetry.Logger, agg *ledger.Aggregator, events *telemetry.EventPublisher, spec ledger.PackageSpec, outcome ledger.PackageOutcome) {
	if rerr := agg.Record(spec, outcome); rerr != nil {
		log.Warnf("ledger rejected entry for %s: %v", spec.Name, rerr)
		return
	}
	p.metrics.RecordPackage(string(outcome.Kind))

	installedType, failedType := telemetry.EventTypePackageInstalled, telemetry.EventTypePackageFailed
	if spec.Name == DotfilesPackage {
		installedType, failedType = telemetry.EventTypeDotfilesCloned, telemetry.EventTypeDotfilesFailed
	}

	switch outcome.Kind {
	case ledger.OutcomeInstalled:
		events.Publish(installedType, telemetry.EventLevelInfo, spec.Name,
			fmt.Sprintf("installed after %d attempt(s)", outcome.Attempts))
	case ledger.OutcomeSkipped:
		events.Publish(telemetry.EventTypePackageSkipped, telemetry.EventLevelInfo, spec.Name, outcome.Reason)
	case ledger.OutcomeFailed:
		diag := outcome.LastError
		if diag == "" {
			diag = "no diagnostic captured"
		}
		agg.AddDetail(fmt.Sprintf("%s: %s", spec.Name, diag))
		events.Publish(failedType, telemetry.EventLevelError, spec.Name, diag)
	}

	if p.store != nil {
		row := &stores.PackageResult{
			ID:         uuid.New().String(),
			RunID:      events.RunID(),
			Package:    spec.Name,
			Required:   spec.Required,
			Outcome:    string(outcome.Kind),
			Attempts:   outcome.Attempts,
			RecordedAt: p.now(),
		}
		if outcome.Reason != "" {
			reason := outcome.Reason
			row.Reason = &reason
		}
		if outcome.LastError != "" {
			lastErr := outcome.LastError
			row.LastError = &lastErr
		}
		if serr := p.store.AddPackageResult(storeCtx, row); serr != nil {
			log.Warnf("failed to persist result for %s: %v", spec.Name, serr)
		}
	}
}

// bestEffort runs a command whose failure never affects the run
// outcome.
func (p *Pipeline) bestEffort(ctx context.Context, cmd runner.Command, what string, log *telemetry.Logger) {
	if ctx.Err() != nil {
		return
	}
	cmd.Timeout = p.cfg.AttemptTimeout.Std()
	result, rerr := p.run.Run(ctx, cmd)
	switch {
	case rerr != nil:
		log.Warnf("%s did not run: %v", what, rerr)
	case !result.Ok():
		log.Warnf("%s failed with exit status %d", what, result.ExitCode)
	default:
		log.Debugf("%s completed", what)
	}
}

// finalStatus maps the run's end state onto a stored status.
func finalStatus(ctx context.Context, summary ledger.Summary, persistErr error) stores.RunStatus {
	switch {
	case persistErr != nil:
		return stores.RunStatusFailed
	case ctx.Err() != nil:
		return stores.RunStatusCancelled
	case summary.Failed > 0:
		return stores.RunStatusFailed
	default:
		return stores.RunStatusCompleted
	}
}

// logEvent mirrors the event stream into the structured log.
func logEvent(log *telemetry.Logger, e telemetry.Event) {
	zl := log.Zerolog()
	evt := zl.Info()
	switch e.Level {
	case telemetry.EventLevelWarning:
		evt = zl.Warn()
	case telemetry.EventLevelError:
		evt = zl.Error()
	}
	if e.Package != "" {
		evt = evt.Str("package", e.Package)
	}
	evt.Str("event", e.Type).Msg(e.Message)
}
