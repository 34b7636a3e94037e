// Package migrate represents schema migrations and plans them by diffing
// the deployed relational schema against the target one.
//
// A migration for a single table is either a list of ordered SQL steps or a
// list of blocking errors, never both. Table migrations are grouped by name
// into a Named set; merging sets is last-write-wins per table, and the final
// execution order interleaves steps of all tables by priority so that every
// table exists before any cross-table constraint is added.
package migrate

import (
	"sort"

	"github.com/quarrydb/quarry/internal/qerr"
)

// Step priorities, lower runs first. Creating tables precedes in-table
// alterations; destructive column drops follow; foreign keys come after
// every referenced table exists; table drops run last.
const (
	PriorityCreateTable = iota
	PriorityAlter
	PriorityDropColumn
	PriorityForeignKey
	PriorityDropTable
)

// Step is one SQL statement of a migration plan.
type Step struct {
	// SQL is the complete statement, ready for the target dialect.
	SQL string

	// Safe is false when executing the step can lose data.
	Safe bool

	// Priority orders steps across merged table migrations.
	Priority int
}

// SingleMigration is the planned migration of one table. Exactly one of
// Errors and Steps is populated: a table that cannot be migrated
// automatically reports why instead of a partial plan.
type SingleMigration struct {
	// Table is the SQL table name this migration applies to.
	Table string

	// Errors lists the blockers preventing an automatic plan.
	Errors []string

	// Steps is the ordered statement list, empty when the table is unchanged.
	Steps []Step
}

// OK reports whether the migration has no blocking errors.
func (m SingleMigration) OK() bool {
	return len(m.Errors) == 0
}

// Empty reports whether the migration changes nothing.
func (m SingleMigration) Empty() bool {
	return len(m.Errors) == 0 && len(m.Steps) == 0
}

// Unsafe returns the steps that can lose data.
func (m SingleMigration) Unsafe() []Step {
	var out []Step
	for _, s := range m.Steps {
		if !s.Safe {
			out = append(out, s)
		}
	}
	return out
}

// Named groups table migrations by table name.
type Named map[string]SingleMigration

// Merge overlays other onto n, last write wins per table. Neither input is
// modified.
func (n Named) Merge(other Named) Named {
	out := make(Named, len(n)+len(other))
	for k, v := range n {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Plan flattens the set into one executable step list, ordered by priority
// with ties broken by table name so plans are deterministic. It fails if any
// table migration carries blocking errors.
func (n Named) Plan() ([]Step, error) {
	names := make([]string, 0, len(n))
	for name := range n {
		names = append(names, name)
	}
	sort.Strings(names)

	var steps []Step
	for _, name := range names {
		m := n[name]
		if !m.OK() {
			e := qerr.New(qerr.ErrMigrationPlan, "table cannot be migrated automatically").
				With("table", name)
			for _, msg := range m.Errors {
				e = e.With("blocker", msg)
			}
			return nil, e
		}
		steps = append(steps, m.Steps...)
	}

	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Priority < steps[j].Priority
	})
	return steps, nil
}

// HasUnsafe reports whether any table migration contains a destructive step.
func (n Named) HasUnsafe() bool {
	for _, m := range n {
		if len(m.Unsafe()) > 0 {
			return true
		}
	}
	return false
}
