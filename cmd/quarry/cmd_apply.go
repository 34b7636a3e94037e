package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/internal/qerr"
	"github.com/quarrydb/quarry/internal/schemafile"
	"github.com/quarrydb/quarry/internal/ui"
	"github.com/quarrydb/quarry/pkg/migrate"
	"github.com/quarrydb/quarry/pkg/sqlite"
)

// applyCmd executes the migration plan against the configured database.
func applyCmd() *cobra.Command {
	var dryRun, allowUnsafe bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the migration plan",
		Long: `Plan the migration from the last applied snapshot to the schema
directory, execute it against the database, and update the snapshot.
Destructive steps are refused unless --allow-unsafe is set.`,
		Example: `  # Apply pending changes
  quarry apply

  # Preview the SQL without executing it
  quarry apply --dry-run

  # Allow steps that drop tables or columns
  quarry apply --allow-unsafe`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return qerr.New(qerr.ErrSQLConnection, "no database_url configured").
					WithHelp("set database_url in quarry.yaml, QUARRY_DATABASE_URL, or --database-url")
			}

			plan, targets, err := loadPlan(cfg)
			if err != nil {
				return err
			}
			steps, err := plan.Plan()
			if err != nil {
				printPlan(plan)
				return err
			}
			if len(steps) == 0 {
				fmt.Println(ui.Success("schema is up to date"))
				return nil
			}
			if plan.HasUnsafe() && !allowUnsafe {
				printPlan(plan)
				return qerr.New(qerr.ErrMigrationPlan, "plan contains destructive steps").
					WithHelp("re-run with --allow-unsafe to execute them")
			}
			if dryRun {
				printPlan(plan)
				return nil
			}

			// SQLite plans can be rehearsed in a throwaway database before
			// touching the real one.
			if driverName(cfg.Dialect) == "sqlite" {
				if err := rehearse(cmd.Context(), steps, allowUnsafe); err != nil {
					return err
				}
			}

			db, err := sql.Open(driverName(cfg.Dialect), cfg.DatabaseURL)
			if err != nil {
				return qerr.Wrap(qerr.ErrSQLConnection, err, "cannot open database")
			}
			defer db.Close()

			ctx := cmd.Context()
			if err := db.PingContext(ctx); err != nil {
				return qerr.Wrap(qerr.ErrSQLConnection, err, "cannot reach database")
			}
			if err := execSteps(ctx, db, plan); err != nil {
				return err
			}
			if err := schemafile.SaveSnapshot(cfg.Snapshot, targets); err != nil {
				return err
			}
			fmt.Println(ui.Success(fmt.Sprintf("applied %d steps", len(steps))))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without executing it")
	cmd.Flags().BoolVar(&allowUnsafe, "allow-unsafe", false, "execute destructive steps")
	return cmd
}

// rehearse runs the steps against an in-memory database, so a broken plan
// fails before the real database sees any of it.
func rehearse(ctx context.Context, steps []migrate.Step, allowUnsafe bool) error {
	m, err := sqlite.Open(":memory:")
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Backend().Migrate(ctx, steps, allowUnsafe); err != nil {
		return qerr.Wrap(qerr.ErrMigrationPlan, err, "plan failed rehearsal")
	}
	return nil
}

func execSteps(ctx context.Context, db *sql.DB, plan migrate.Named) error {
	steps, err := plan.Plan()
	if err != nil {
		return err
	}
	for _, step := range steps {
		fmt.Println("  " + ui.Dim(step.SQL))
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			return qerr.Wrap(qerr.ErrSQLExecution, err, "migration step failed").
				WithSQL(step.SQL)
		}
	}
	return nil
}
