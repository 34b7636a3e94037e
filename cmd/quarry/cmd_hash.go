package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/internal/drift"
	"github.com/quarrydb/quarry/internal/schemafile"
	"github.com/quarrydb/quarry/internal/ui"
)

// hashCmd prints the merkle fingerprint of the schema directory.
func hashCmd() *cobra.Command {
	var showTables, diff bool

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Print the schema fingerprint",
		Long: `Fingerprint the schema directory with a merkle tree over its planned
tables. Two schemas with the same root hash create identical databases.
With --diff, the fingerprint is compared against the applied snapshot
and the differing tables are listed.`,
		Example: `  # Print the root hash
  quarry hash

  # Print per-table hashes too
  quarry hash --tables

  # Name tables that changed since the last apply
  quarry hash --diff`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			_, targets, err := loadTargets(cfg)
			if err != nil {
				return err
			}
			fp, err := drift.Hash(targets)
			if err != nil {
				return err
			}

			fmt.Println(fp.Root)
			if showTables {
				names := make([]string, 0, len(fp.Tables))
				for name := range fp.Tables {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Printf("  %s  %s\n", fp.Tables[name], name)
				}
			}

			if diff {
				current, err := schemafile.LoadSnapshot(cfg.Snapshot)
				if err != nil {
					return err
				}
				snapFP, err := drift.Hash(relationsOf(current))
				if err != nil {
					return err
				}
				changed := drift.Compare(snapFP, fp)
				if len(changed) == 0 {
					fmt.Println(ui.Success("no drift since last apply"))
				} else {
					for _, name := range changed {
						fmt.Println(ui.Warning(name))
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showTables, "tables", false, "print per-table hashes")
	cmd.Flags().BoolVar(&diff, "diff", false, "compare against the applied snapshot")
	return cmd
}
