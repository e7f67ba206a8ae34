package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hostprep/hostprep/pkg/config"
)

func newRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect provisioning run history",
	}

	cmd.AddCommand(newRunsListCommand())
	cmd.AddCommand(newRunsShowCommand())

	return cmd
}

func newRunsListCommand() *cobra.Command {
	var (
		databasePath string
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List past provisioning runs, newest first",
		Example: `  hostprep runs list
  hostprep runs list --limit 5 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), runsDatabasePath(databasePath))
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit, 0)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTARTED\tDISTRO\tSTATUS\tINSTALLED\tSKIPPED\tFAILED")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
					run.ID,
					run.StartedAt.Format(time.RFC3339),
					run.Distro,
					run.Status,
					run.Installed,
					run.Skipped,
					run.Failed,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&databasePath, "database", "", "run-history database path")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")

	return cmd
}

func newRunsShowCommand() *cobra.Command {
	var databasePath string

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its package results and events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), runsDatabasePath(databasePath))
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			results, err := store.ListPackageResults(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			events, err := store.ListEvents(cmd.Context(), run.ID, 200)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"run":      run,
					"packages": results,
					"events":   events,
				})
			}

			fmt.Printf("Run:      %s\n", run.ID)
			fmt.Printf("Host:     %s (%s, %s family)\n", run.Hostname, run.Distro, run.Family)
			fmt.Printf("Status:   %s\n", run.Status)
			fmt.Printf("Started:  %s\n", run.StartedAt.Format(time.RFC3339))
			if run.CompletedAt != nil {
				fmt.Printf("Finished: %s\n", run.CompletedAt.Format(time.RFC3339))
			}
			fmt.Printf("Report:   %s\n", run.ReportPath)

			fmt.Println("\nPackages:")
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "  PACKAGE\tREQUIRED\tOUTCOME\tATTEMPTS\tDETAIL")
			for _, r := range results {
				detail := ""
				if r.Reason != nil {
					detail = *r.Reason
				}
				if r.LastError != nil {
					detail = *r.LastError
				}
				fmt.Fprintf(w, "  %s\t%v\t%s\t%d\t%s\n", r.Package, r.Required, r.Outcome, r.Attempts, detail)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Println("\nEvents:")
			for _, e := range events {
				fmt.Printf("  %s  %-20s %s\n", e.Timestamp.Format(time.RFC3339), e.Type, e.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&databasePath, "database", "", "run-history database path")

	return cmd
}

// runsDatabasePath prefers the flag, then the configured database,
// then the built-in default.
func runsDatabasePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg, err := config.Load(configPath); err == nil {
		return cfg.DatabasePath
	}
	return config.Default().DatabasePath
}
