package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hostprep/hostprep/pkg/config"
	"github.com/hostprep/hostprep/pkg/distro"
	"github.com/hostprep/hostprep/pkg/facts"
	"github.com/hostprep/hostprep/pkg/runner"
)

func newDetectCommand() *cobra.Command {
	var osReleasePath string

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Show how this host would be provisioned",
		Long: `Identify the distribution and print the resolved package-manager
profile without installing anything. Useful for checking what a
provision run would do on this host.`,
		Example: `  hostprep detect
  hostprep detect --json
  hostprep detect --os-release /tmp/os-release`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := osReleasePath
			if path == "" {
				path = config.Default().OSReleasePath
			}

			identity, err := distro.LoadIdentity(path)
			if err != nil {
				return err
			}
			profile, err := distro.NewResolver(runner.NewExecRunner()).Resolve(identity)
			if err != nil {
				return err
			}
			host, err := facts.Collect(identity)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"host":    host,
					"family":  profile.Family,
					"manager": profile.Manager,
					"update":  profile.Update.String(),
					"install": profile.Install.String(),
					"repair":  profile.Repair.String(),
					"epel":    profile.EPELPackage,
				})
			}

			fmt.Printf("Host:     %s\n", host.Hostname)
			fmt.Printf("OS:       %s (%s)\n", host.OSName, identity.ID)
			fmt.Printf("Kernel:   %s %s\n", host.Kernel, host.Arch)
			fmt.Printf("Family:   %s\n", profile.Family)
			fmt.Printf("Manager:  %s\n", profile.Manager)
			fmt.Printf("Update:   %s\n", profile.Update.String())
			fmt.Printf("Install:  %s <package>\n", profile.Install.String())
			fmt.Printf("Repair:   %s\n", profile.Repair.String())
			if profile.EPELPackage != "" {
				fmt.Printf("EPEL:     %s\n", profile.EPELPackage)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&osReleasePath, "os-release", "", "override the os-release path")

	return cmd
}
