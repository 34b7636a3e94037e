package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/internal/ui"
	"github.com/quarrydb/quarry/pkg/migrate"
)

// planCmd shows the migration plan without applying it.
func planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show the migration plan",
		Long: `Diff the schema directory against the last applied snapshot and print
the SQL steps, in execution order. Destructive steps are marked; tables
whose changes are ambiguous are reported as errors.`,
		Example: `  # Show what apply would execute
  quarry plan`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			plan, _, err := loadPlan(cfg)
			if err != nil {
				return err
			}

			printPlan(plan)
			if _, err := plan.Plan(); err != nil {
				return err
			}
			return nil
		},
	}
}

// printPlan lists the plan table by table, errors first.
func printPlan(plan migrate.Named) {
	names := make([]string, 0, len(plan))
	for name := range plan {
		names = append(names, name)
	}
	sort.Strings(names)

	empty := true
	for _, name := range names {
		m := plan[name]
		if m.Empty() {
			continue
		}
		empty = false
		fmt.Println(ui.Bold(name))
		for _, e := range m.Errors {
			fmt.Println("  " + ui.Error(e))
		}
		for _, step := range m.Steps {
			if step.Safe {
				fmt.Println("  " + step.SQL)
			} else {
				fmt.Println("  " + ui.Warning(step.SQL))
			}
		}
	}

	switch {
	case empty:
		fmt.Println(ui.Success("schema is up to date"))
	case plan.HasUnsafe():
		fmt.Println(ui.Warning("plan contains destructive steps; apply needs --allow-unsafe"))
	}
}
