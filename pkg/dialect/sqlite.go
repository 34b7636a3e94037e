package dialect

import (
	"strings"

	"github.com/quarrydb/quarry/internal/qerr"
	"github.com/quarrydb/quarry/pkg/primitive"
	"github.com/quarrydb/quarry/pkg/schema"
)

// sqlite implements Dialect for SQLite.
type sqlite struct{}

// SQLite returns the SQLite dialect implementation.
func SQLite() Dialect {
	return &sqlite{}
}

func (d *sqlite) BackendName() string {
	return "sqlite"
}

// AutokeyType reports the shape of backend-generated keys. SQLite rowid
// aliases are 64-bit integers.
func (d *sqlite) AutokeyType() *schema.PrimitiveType {
	return schema.Primitive(primitive.KindInt64)
}

// -----------------------------------------------------------------------------
// Type mappings
// -----------------------------------------------------------------------------

func (d *sqlite) TypeName(kind primitive.Kind) string {
	switch kind {
	case primitive.KindString:
		return "TEXT"
	case primitive.KindBlob:
		return "BLOB"
	case primitive.KindInt64:
		return "INTEGER"
	case primitive.KindDouble:
		return "REAL"
	case primitive.KindBool:
		return "INTEGER"
	case primitive.KindDate, primitive.KindTimeOfDay,
		primitive.KindUTCTime, primitive.KindZonedTime:
		// Temporal values are stored in their ISO 8601 text form.
		return "TEXT"
	default:
		return "TEXT"
	}
}

// -----------------------------------------------------------------------------
// Identifiers
// -----------------------------------------------------------------------------

func (d *sqlite) QuoteIdent(name string) string {
	return doubleQuote(name)
}

func (d *sqlite) Placeholder(index int) string {
	return "?"
}

// SupportsAddForeignKey reports false: SQLite cannot add constraints to an
// existing table, so foreign keys are inlined into CREATE TABLE and adding
// one later requires a table rebuild.
func (d *sqlite) SupportsAddForeignKey() bool {
	return false
}

// -----------------------------------------------------------------------------
// SQL generation
// -----------------------------------------------------------------------------

func (d *sqlite) CreateTableSQL(rel *schema.Relation) (string, error) {
	return buildCreateTableSQL(rel, d.renderConfig())
}

func (d *sqlite) DropTableSQL(table string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(table)
}

func (d *sqlite) AddColumnSQL(table string, col schema.Column) (string, error) {
	return buildAddColumnSQL(table, col, d.renderConfig())
}

func (d *sqlite) DropColumnSQL(table, column string) string {
	return buildDropColumnSQL(table, column, d.QuoteIdent)
}

func (d *sqlite) AddForeignKeySQL(table string, fk schema.ForeignKey) (string, error) {
	return "", qerr.New(qerr.ErrMigrationPlan,
		"sqlite cannot add a foreign key to an existing table").
		WithSQL("ALTER TABLE " + table).
		WithHelp("recreate the table with the constraint inlined")
}

func (d *sqlite) DropForeignKeySQL(table, constraint string) (string, error) {
	return "", qerr.New(qerr.ErrMigrationPlan,
		"sqlite cannot drop a foreign key from an existing table").
		WithSQL("ALTER TABLE " + table).
		WithHelp("recreate the table without the constraint")
}

func (d *sqlite) CreateUniqueSQL(table string, u schema.UniqueSpec) (string, error) {
	return buildCreateUniqueSQL(table, u, d.QuoteIdent)
}

func (d *sqlite) DropUniqueSQL(table string, u schema.UniqueSpec) string {
	// Inline UNIQUE constraints cannot be dropped without a rebuild; named
	// unique indexes can.
	return "DROP INDEX IF EXISTS " + d.QuoteIdent(u.Name)
}

// -----------------------------------------------------------------------------
// Helper methods
// -----------------------------------------------------------------------------

func (d *sqlite) renderConfig() renderConfig {
	return renderConfig{
		quote:             d.QuoteIdent,
		columnDef:         d.columnDefSQL,
		inlineForeignKeys: true,
	}
}

// columnDefSQL renders one column definition. Auto-incrementing primary keys
// must be spelled INTEGER PRIMARY KEY AUTOINCREMENT to alias the rowid.
func (d *sqlite) columnDefSQL(col schema.Column) (string, error) {
	var b strings.Builder
	b.WriteString(d.QuoteIdent(col.Name))
	if col.PrimaryKey && col.AutoIncrement {
		b.WriteString(" INTEGER PRIMARY KEY AUTOINCREMENT")
		return b.String(), nil
	}
	b.WriteString(" ")
	b.WriteString(d.TypeName(col.Kind))
	if col.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	} else if !col.Nullable {
		b.WriteString(" NOT NULL")
	}
	if col.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(col.Default)
	}
	return b.String(), nil
}
