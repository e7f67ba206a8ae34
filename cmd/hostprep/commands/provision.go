package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/hostprep/hostprep/pkg/config"
	"github.com/hostprep/hostprep/pkg/pipeline"
	"github.com/hostprep/hostprep/pkg/report"
	"github.com/hostprep/hostprep/pkg/runner"
	"github.com/hostprep/hostprep/pkg/stores"
	"github.com/hostprep/hostprep/pkg/telemetry"
)

// ErrCompletedWithFailures marks a run that finished and persisted its
// report but left at least one package failed. The process exits with
// status 2 instead of 1.
var ErrCompletedWithFailures = errors.New("run completed with package failures")

func newProvisionCommand(version string) *cobra.Command {
	var (
		assumeYes      bool
		skipDotfiles   bool
		osReleasePath  string
		outputDir      string
		attemptTimeout time.Duration
		metricsListen  string
		traceExporter  string
		traceEndpoint  string
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision this host",
		Long: `Provision this host with the configured package set.

This command:
  - Identifies the distribution from os-release
  - Refreshes the package index and enables EPEL where applicable
  - Installs every required package with bounded retries
  - Offers each optional package, one prompt per package
  - Clones the configured dotfiles repository
  - Writes a timestamped report whatever the outcome`,
		Example: `  # Provision with the built-in package set
  sudo hostprep provision

  # Accept every optional package without prompting
  sudo hostprep provision --yes

  # Custom configuration, no dotfiles
  sudo hostprep provision -c hostprep.yaml --skip-dotfiles`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if osReleasePath != "" {
				cfg.OSReleasePath = osReleasePath
			}
			if outputDir != "" {
				cfg.OutputDir = outputDir
			}
			if attemptTimeout > 0 {
				cfg.AttemptTimeout = config.Duration(attemptTimeout)
			}

			// Package managers refuse half their verbs without root;
			// fail before touching anything.
			if os.Geteuid() != 0 {
				return fmt.Errorf("provision must run as root (euid %d)", os.Geteuid())
			}

			return provision(cmd.Context(), cfg, version, provisionOptions{
				assumeYes:     assumeYes,
				skipDotfiles:  skipDotfiles,
				metricsListen: metricsListen,
				traceExporter: traceExporter,
				traceEndpoint: traceEndpoint,
			})
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "accept all optional packages without prompting")
	cmd.Flags().BoolVar(&skipDotfiles, "skip-dotfiles", false, "skip the dotfiles clone")
	cmd.Flags().StringVar(&osReleasePath, "os-release", "", "override the os-release path")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "override the report and log directory")
	cmd.Flags().DurationVar(&attemptTimeout, "attempt-timeout", 0, "override the per-invocation timeout")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address for the run")
	cmd.Flags().StringVar(&traceExporter, "trace-exporter", "", "trace exporter (otlp, stdout)")
	cmd.Flags().StringVar(&traceEndpoint, "trace-endpoint", "", "OTLP gRPC endpoint")

	return cmd
}

type provisionOptions struct {
	assumeYes     bool
	skipDotfiles  bool
	metricsListen string
	traceExporter string
	traceEndpoint string
}

func provision(ctx context.Context, cfg config.Config, version string, opts provisionOptions) error {
	start := time.Now()

	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceVersion = version
	if verbose {
		tcfg.Logging.Level = "debug"
	}
	tcfg.Logging.FilePath = filepath.Join(cfg.OutputDir, report.LogFileName(start))
	if opts.metricsListen != "" {
		tcfg.Metrics.Enabled = true
		tcfg.Metrics.ListenAddress = opts.metricsListen
	}
	if opts.traceExporter != "" {
		tcfg.Tracing.Enabled = true
		tcfg.Tracing.Exporter = opts.traceExporter
		tcfg.Tracing.Endpoint = opts.traceEndpoint
	}
	if err := tcfg.Validate(); err != nil {
		return err
	}

	logger, err := telemetry.NewLogger(tcfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Close()

	metrics, err := telemetry.NewMetrics(tcfg.Metrics)
	if err != nil {
		return err
	}
	if err := metrics.Serve(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metrics.Shutdown(shutdownCtx)
	}()

	tracer, err := telemetry.NewTracer(tcfg.Tracing, tcfg.ServiceName, version)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = tracer.Shutdown(shutdownCtx)
	}()

	pipelineOpts := []pipeline.Option{
		pipeline.WithMetrics(metrics),
		pipeline.WithTracer(tracer),
		pipeline.WithLogPath(tcfg.Logging.FilePath),
		pipeline.WithAssumeYes(opts.assumeYes),
		pipeline.WithSkipDotfiles(opts.skipDotfiles),
		pipeline.WithPrompter(pipeline.NewConsolePrompter(os.Stdin, os.Stdout)),
	}

	// The history store is supplemental; a broken database downgrades
	// to a run without history rather than no run at all.
	if store, serr := openStore(ctx, cfg.DatabasePath); serr != nil {
		logger.Warnf("run history unavailable: %v", serr)
	} else {
		defer store.Close()
		pipelineOpts = append(pipelineOpts, pipeline.WithStore(store))
	}

	p := pipeline.New(cfg, runner.NewExecRunner(), logger, pipelineOpts...)
	result, err := p.Run(ctx)
	if err != nil {
		return err
	}

	printSummary(result)
	if result.Summary.Failed > 0 {
		return ErrCompletedWithFailures
	}
	return nil
}

func openStore(ctx context.Context, path string) (stores.Store, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func printSummary(result *pipeline.Result) {
	fmt.Printf("\nProvisioning finished in %s\n", result.Duration.Round(time.Second))
	fmt.Printf("  Installed: %d\n", result.Summary.Installed)
	fmt.Printf("  Skipped:   %d\n", result.Summary.Skipped)
	fmt.Printf("  Failed:    %d\n", result.Summary.Failed)
	fmt.Printf("Report: %s\n", result.ReportPath)
	fmt.Printf("Log:    %s\n", result.LogPath)
}
