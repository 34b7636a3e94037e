package dialect

import (
	"strings"

	"github.com/quarrydb/quarry/internal/qerr"
	"github.com/quarrydb/quarry/pkg/schema"
)

// renderConfig carries the dialect-specific hooks shared DDL builders use.
type renderConfig struct {
	quote     func(string) string
	columnDef func(col schema.Column) (string, error)

	// inlineForeignKeys controls whether CREATE TABLE embeds foreign key
	// constraints. Dialects without ALTER TABLE ADD CONSTRAINT set this.
	inlineForeignKeys bool
}

// buildCreateTableSQL renders a CREATE TABLE statement for a relation.
// The primary key column is declared inline; table-level PRIMARY KEY and
// UNIQUE constraints follow the columns. Unique indexes are not inlined;
// they become separate CREATE UNIQUE INDEX statements.
func buildCreateTableSQL(rel *schema.Relation, cfg renderConfig) (string, error) {
	var b strings.Builder

	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(cfg.quote(rel.Name))
	b.WriteString(" (\n")

	first := true
	writeSep := func() {
		if !first {
			b.WriteString(",\n")
		}
		first = false
	}

	for _, col := range rel.Columns {
		def, err := cfg.columnDef(col)
		if err != nil {
			return "", err
		}
		writeSep()
		b.WriteString("  ")
		b.WriteString(def)
	}

	for _, u := range rel.Uniques {
		if len(u.Exprs) > 0 || u.Kind == schema.UniqueIndex {
			continue
		}
		writeSep()
		b.WriteString("  ")
		if u.Kind == schema.UniquePrimary {
			b.WriteString("PRIMARY KEY (")
		} else {
			b.WriteString("CONSTRAINT ")
			b.WriteString(cfg.quote(u.Name))
			b.WriteString(" UNIQUE (")
		}
		writeColumnList(&b, u.Columns, cfg.quote)
		b.WriteString(")")
	}

	if cfg.inlineForeignKeys {
		for _, fk := range rel.ForeignKeys {
			writeSep()
			b.WriteString("  ")
			b.WriteString(foreignKeyClause(fk, cfg.quote))
		}
	}

	b.WriteString("\n)")
	return b.String(), nil
}

// buildAddColumnSQL renders ALTER TABLE ADD COLUMN.
func buildAddColumnSQL(table string, col schema.Column, cfg renderConfig) (string, error) {
	def, err := cfg.columnDef(col)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("ALTER TABLE ")
	b.WriteString(cfg.quote(table))
	b.WriteString(" ADD COLUMN ")
	b.WriteString(def)
	return b.String(), nil
}

// buildDropColumnSQL renders ALTER TABLE DROP COLUMN.
func buildDropColumnSQL(table, column string, quote func(string) string) string {
	var b strings.Builder
	b.WriteString("ALTER TABLE ")
	b.WriteString(quote(table))
	b.WriteString(" DROP COLUMN ")
	b.WriteString(quote(column))
	return b.String()
}

// buildCreateUniqueSQL renders a unique key that lives outside CREATE TABLE:
// a unique index over columns and/or raw expressions.
func buildCreateUniqueSQL(table string, u schema.UniqueSpec, quote func(string) string) (string, error) {
	if len(u.Columns) == 0 && len(u.Exprs) == 0 {
		return "", qerr.New(qerr.ErrSchemaInvalid, "unique key has no members").
			With("unique", u.Name)
	}
	var b strings.Builder
	b.WriteString("CREATE UNIQUE INDEX IF NOT EXISTS ")
	b.WriteString(quote(u.Name))
	b.WriteString(" ON ")
	b.WriteString(quote(table))
	b.WriteString(" (")
	wrote := false
	for _, col := range u.Columns {
		if wrote {
			b.WriteString(", ")
		}
		b.WriteString(quote(col))
		wrote = true
	}
	for _, expr := range u.Exprs {
		if wrote {
			b.WriteString(", ")
		}
		b.WriteString("(")
		b.WriteString(expr)
		b.WriteString(")")
		wrote = true
	}
	b.WriteString(")")
	return b.String(), nil
}

// foreignKeyClause renders the constraint body shared by inline and
// ALTER TABLE forms.
func foreignKeyClause(fk schema.ForeignKey, quote func(string) string) string {
	var b strings.Builder
	b.WriteString("FOREIGN KEY (")
	writeColumnList(&b, fk.Columns, quote)
	b.WriteString(") REFERENCES ")
	b.WriteString(quote(fk.RefTable))
	b.WriteString(" (")
	writeColumnList(&b, fk.RefColumns, quote)
	b.WriteString(")")
	if fk.OnDelete != schema.NoAction {
		b.WriteString(" ON DELETE ")
		b.WriteString(fk.OnDelete.SQL())
	}
	if fk.OnUpdate != schema.NoAction {
		b.WriteString(" ON UPDATE ")
		b.WriteString(fk.OnUpdate.SQL())
	}
	return b.String()
}

func writeColumnList(b *strings.Builder, cols []string, quote func(string) string) {
	for i, col := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quote(col))
	}
}

// doubleQuote escapes and wraps an identifier in double quotes, the form
// both supported dialects accept.
func doubleQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
