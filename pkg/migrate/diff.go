package migrate

import (
	"fmt"

	"github.com/quarrydb/quarry/pkg/dialect"
	"github.com/quarrydb/quarry/pkg/schema"
)

// Diff plans the migration taking one table from its deployed shape to the
// target shape. A nil current plans table creation; a nil target plans the
// (destructive) drop. Identical shapes plan to an empty migration.
func Diff(current, target *schema.Relation, d dialect.Dialect) SingleMigration {
	switch {
	case current == nil && target == nil:
		return SingleMigration{}
	case current == nil:
		return createRelation(target, d)
	case target == nil:
		return SingleMigration{
			Table: current.Name,
			Steps: []Step{{
				SQL:      d.DropTableSQL(current.Name),
				Safe:     false,
				Priority: PriorityDropTable,
			}},
		}
	default:
		return alterRelation(current, target, d)
	}
}

// PlanRelations diffs a deployed schema against a set of target relations.
// List side tables of the targets are expanded and planned like any other
// table; deployed tables absent from the targets are planned for dropping.
func PlanRelations(current map[string]*schema.Relation, targets []*schema.Relation, d dialect.Dialect) Named {
	out := make(Named)

	seen := make(map[string]bool)
	for _, t := range targets {
		for _, rel := range Expand(t) {
			seen[rel.Name] = true
			m := Diff(current[rel.Name], rel, d)
			if !m.Empty() {
				out[rel.Name] = m
			}
		}
	}
	for name, rel := range current {
		if !seen[name] {
			m := Diff(rel, nil, d)
			out[name] = m
		}
	}
	return out
}

// Expand returns the relation followed by its list side tables, recursively.
func Expand(rel *schema.Relation) []*schema.Relation {
	out := []*schema.Relation{rel}
	for _, side := range rel.Lists {
		out = append(out, Expand(side)...)
	}
	return out
}

// createRelation plans a fresh table: CREATE TABLE first, unique indexes
// next, foreign keys after every table exists. Dialects that cannot add
// constraints later inline the foreign keys into CREATE TABLE instead.
func createRelation(rel *schema.Relation, d dialect.Dialect) SingleMigration {
	m := SingleMigration{Table: rel.Name}

	sql, err := d.CreateTableSQL(rel)
	if err != nil {
		m.Errors = append(m.Errors, err.Error())
		return m
	}
	m.Steps = append(m.Steps, Step{SQL: sql, Safe: true, Priority: PriorityCreateTable})

	for _, u := range rel.Uniques {
		if u.Kind != schema.UniqueIndex && len(u.Exprs) == 0 {
			continue // inlined into CREATE TABLE
		}
		sql, err := d.CreateUniqueSQL(rel.Name, u)
		if err != nil {
			m.Errors = append(m.Errors, err.Error())
			continue
		}
		m.Steps = append(m.Steps, Step{SQL: sql, Safe: true, Priority: PriorityAlter})
	}

	if d.SupportsAddForeignKey() {
		for _, fk := range rel.ForeignKeys {
			sql, err := d.AddForeignKeySQL(rel.Name, fk)
			if err != nil {
				m.Errors = append(m.Errors, err.Error())
				continue
			}
			m.Steps = append(m.Steps, Step{SQL: sql, Safe: true, Priority: PriorityForeignKey})
		}
	}

	if !m.OK() {
		m.Steps = nil
	}
	return m
}

// alterRelation plans the in-place migration between two shapes of the same
// table. Changes with no single safe rendering (type changes, nullability
// flips, new NOT NULL columns without defaults) become blocking errors
// rather than guessed statements.
func alterRelation(current, target *schema.Relation, d dialect.Dialect) SingleMigration {
	m := SingleMigration{Table: target.Name}

	for _, col := range target.Columns {
		old := current.Column(col.Name)
		if old == nil {
			if !col.Nullable && col.Default == "" && !col.PrimaryKey {
				m.Errors = append(m.Errors, fmt.Sprintf(
					"new column %q is NOT NULL without a default; existing rows need a backfill", col.Name))
				continue
			}
			sql, err := d.AddColumnSQL(target.Name, col)
			if err != nil {
				m.Errors = append(m.Errors, err.Error())
				continue
			}
			m.Steps = append(m.Steps, Step{SQL: sql, Safe: true, Priority: PriorityAlter})
			continue
		}
		if old.Kind != col.Kind {
			m.Errors = append(m.Errors, fmt.Sprintf(
				"column %q changes type from %s to %s; conversion is ambiguous", col.Name, old.Kind, col.Kind))
		}
		if old.Nullable != col.Nullable {
			m.Errors = append(m.Errors, fmt.Sprintf(
				"column %q changes nullability; migrate it manually", col.Name))
		}
	}
	for _, col := range current.Columns {
		if target.Column(col.Name) == nil {
			m.Steps = append(m.Steps, Step{
				SQL:      d.DropColumnSQL(target.Name, col.Name),
				Safe:     false,
				Priority: PriorityDropColumn,
			})
		}
	}

	m.diffUniques(current, target, d)
	m.diffForeignKeys(current, target, d)

	if !m.OK() {
		m.Steps = nil
	}
	return m
}

func (m *SingleMigration) diffUniques(current, target *schema.Relation, d dialect.Dialect) {
	for _, u := range target.Uniques {
		old := current.Unique(u.Name)
		if old != nil && sameUnique(*old, u) {
			continue
		}
		if old != nil {
			m.Steps = append(m.Steps, Step{
				SQL:      d.DropUniqueSQL(target.Name, *old),
				Safe:     true,
				Priority: PriorityAlter,
			})
		}
		sql, err := d.CreateUniqueSQL(target.Name, u)
		if err != nil {
			m.Errors = append(m.Errors, err.Error())
			continue
		}
		m.Steps = append(m.Steps, Step{SQL: sql, Safe: true, Priority: PriorityAlter})
	}
	for _, u := range current.Uniques {
		if target.Unique(u.Name) == nil {
			m.Steps = append(m.Steps, Step{
				SQL:      d.DropUniqueSQL(target.Name, u),
				Safe:     true,
				Priority: PriorityAlter,
			})
		}
	}
}

func (m *SingleMigration) diffForeignKeys(current, target *schema.Relation, d dialect.Dialect) {
	currentFK := make(map[string]schema.ForeignKey, len(current.ForeignKeys))
	for _, fk := range current.ForeignKeys {
		currentFK[fk.Name] = fk
	}
	targetFK := make(map[string]schema.ForeignKey, len(target.ForeignKeys))
	for _, fk := range target.ForeignKeys {
		targetFK[fk.Name] = fk
	}

	for _, fk := range target.ForeignKeys {
		old, ok := currentFK[fk.Name]
		if ok && sameForeignKey(old, fk) {
			continue
		}
		if ok {
			sql, err := d.DropForeignKeySQL(target.Name, fk.Name)
			if err != nil {
				m.Errors = append(m.Errors, err.Error())
				continue
			}
			m.Steps = append(m.Steps, Step{SQL: sql, Safe: true, Priority: PriorityForeignKey})
		}
		sql, err := d.AddForeignKeySQL(target.Name, fk)
		if err != nil {
			m.Errors = append(m.Errors, err.Error())
			continue
		}
		m.Steps = append(m.Steps, Step{SQL: sql, Safe: true, Priority: PriorityForeignKey})
	}
	for _, fk := range current.ForeignKeys {
		if _, ok := targetFK[fk.Name]; ok {
			continue
		}
		sql, err := d.DropForeignKeySQL(target.Name, fk.Name)
		if err != nil {
			m.Errors = append(m.Errors, err.Error())
			continue
		}
		m.Steps = append(m.Steps, Step{SQL: sql, Safe: true, Priority: PriorityForeignKey})
	}
}

func sameUnique(a, b schema.UniqueSpec) bool {
	return a.Kind == b.Kind &&
		sameStrings(a.Columns, b.Columns) &&
		sameStrings(a.Exprs, b.Exprs)
}

func sameForeignKey(a, b schema.ForeignKey) bool {
	return a.RefTable == b.RefTable &&
		a.OnDelete == b.OnDelete &&
		a.OnUpdate == b.OnUpdate &&
		sameStrings(a.Columns, b.Columns) &&
		sameStrings(a.RefColumns, b.RefColumns)
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
