// Command quarry manages relational schemas defined in YAML entity files:
// validating them, planning migrations against the last applied snapshot,
// applying the plan to a database, and fingerprinting the result.
//
// Usage:
//
//	quarry check              Validate schema files
//	quarry plan               Show the migration plan
//	quarry apply              Apply the migration plan
//	quarry hash               Print the schema fingerprint
//	quarry watch              Re-check schema files on change
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Database drivers.
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/quarrydb/quarry/internal/ui"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

var (
	flagConfig      string
	flagDatabaseURL string
	flagDialect     string
	flagSchemaDir   string
)

func main() {
	root := &cobra.Command{
		Use:           "quarry",
		Short:         "Schema migrations from YAML entity definitions",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file (default quarry.yaml)")
	root.PersistentFlags().StringVar(&flagDatabaseURL, "database-url", "", "database connection string")
	root.PersistentFlags().StringVar(&flagDialect, "dialect", "", "sql dialect (postgres, sqlite)")
	root.PersistentFlags().StringVar(&flagSchemaDir, "schema-dir", "", "directory of schema YAML files")

	root.AddCommand(
		checkCmd(),
		planCmd(),
		applyCmd(),
		hashCmd(),
		watchCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Error(err.Error()))
		os.Exit(1)
	}
}
