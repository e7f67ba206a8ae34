package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hostprep/hostprep/pkg/distro"
	"github.com/hostprep/hostprep/pkg/pkgmap"
)

func newMappingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Show the package-name mapping table",
		Long: `Print the curated package-name aliases per distro family. Logical
names outside this table install under their own name everywhere.`,
		Example: `  hostprep mappings
  hostprep mappings --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			families := distro.Families()

			if jsonOutput {
				table := make(map[string]map[string]string)
				for _, logical := range pkgmap.Aliased() {
					row := make(map[string]string)
					for _, family := range families {
						resolved := pkgmap.Resolve(logical, family)
						if !resolved.Applicable {
							row[string(family)] = "-"
							continue
						}
						row[string(family)] = resolved.Name
					}
					table[logical] = row
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(table)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprint(w, "LOGICAL")
			for _, family := range families {
				fmt.Fprintf(w, "\t%s", family)
			}
			fmt.Fprintln(w)
			for _, logical := range pkgmap.Aliased() {
				fmt.Fprint(w, logical)
				for _, family := range families {
					resolved := pkgmap.Resolve(logical, family)
					if !resolved.Applicable {
						fmt.Fprint(w, "\t-")
						continue
					}
					fmt.Fprintf(w, "\t%s", resolved.Name)
				}
				fmt.Fprintln(w)
			}
			return w.Flush()
		},
	}

	return cmd
}
