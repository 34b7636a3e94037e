package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/internal/ui"
)

// checkCmd validates schema files without touching a database.
func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate schema files",
		Long: `Load every YAML file in the schema directory, validate the entity
definitions, and flatten them for the configured dialect. No database
connection is made.`,
		Example: `  # Validate the default schema directory
  quarry check

  # Validate another directory against postgres rules
  quarry check --schema-dir db/schemas --dialect postgres`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			entities, rels, err := loadTargets(cfg)
			if err != nil {
				return err
			}

			tables := 0
			for _, rel := range rels {
				tables += 1 + len(rel.Lists)
			}
			for _, e := range entities {
				fmt.Println(ui.Success(e.QualifiedName()))
			}
			fmt.Println(ui.Dim(fmt.Sprintf("%d entities, %d tables", len(entities), tables)))
			return nil
		},
	}
}
