package dialect

import (
	"strconv"
	"strings"

	"github.com/quarrydb/quarry/pkg/primitive"
	"github.com/quarrydb/quarry/pkg/schema"
)

// postgres implements Dialect for PostgreSQL.
type postgres struct{}

// Postgres returns the PostgreSQL dialect implementation.
func Postgres() Dialect {
	return &postgres{}
}

func (d *postgres) BackendName() string {
	return "postgres"
}

// AutokeyType reports the shape of backend-generated keys: 64-bit integers
// backed by an identity column.
func (d *postgres) AutokeyType() *schema.PrimitiveType {
	return schema.Primitive(primitive.KindInt64)
}

// -----------------------------------------------------------------------------
// Type mappings
// -----------------------------------------------------------------------------

func (d *postgres) TypeName(kind primitive.Kind) string {
	switch kind {
	case primitive.KindString:
		return "TEXT"
	case primitive.KindBlob:
		return "BYTEA"
	case primitive.KindInt64:
		return "BIGINT"
	case primitive.KindDouble:
		return "DOUBLE PRECISION"
	case primitive.KindBool:
		return "BOOLEAN"
	case primitive.KindDate:
		return "DATE"
	case primitive.KindTimeOfDay:
		return "TIME"
	case primitive.KindUTCTime:
		return "TIMESTAMPTZ"
	case primitive.KindZonedTime:
		// Stored as text to preserve the zone offset; TIMESTAMPTZ normalizes
		// to an instant and loses the local representation.
		return "TEXT"
	default:
		return "TEXT"
	}
}

// -----------------------------------------------------------------------------
// Identifiers
// -----------------------------------------------------------------------------

func (d *postgres) QuoteIdent(name string) string {
	return doubleQuote(name)
}

func (d *postgres) Placeholder(index int) string {
	return "$" + strconv.Itoa(index)
}

func (d *postgres) SupportsAddForeignKey() bool {
	return true
}

// -----------------------------------------------------------------------------
// SQL generation
// -----------------------------------------------------------------------------

func (d *postgres) CreateTableSQL(rel *schema.Relation) (string, error) {
	return buildCreateTableSQL(rel, d.renderConfig())
}

func (d *postgres) DropTableSQL(table string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(table)
}

func (d *postgres) AddColumnSQL(table string, col schema.Column) (string, error) {
	return buildAddColumnSQL(table, col, d.renderConfig())
}

func (d *postgres) DropColumnSQL(table, column string) string {
	return buildDropColumnSQL(table, column, d.QuoteIdent)
}

func (d *postgres) AddForeignKeySQL(table string, fk schema.ForeignKey) (string, error) {
	var b strings.Builder
	b.WriteString("ALTER TABLE ")
	b.WriteString(d.QuoteIdent(table))
	b.WriteString(" ADD CONSTRAINT ")
	b.WriteString(d.QuoteIdent(fk.Name))
	b.WriteString(" ")
	b.WriteString(foreignKeyClause(fk, d.QuoteIdent))
	return b.String(), nil
}

func (d *postgres) DropForeignKeySQL(table, constraint string) (string, error) {
	return "ALTER TABLE " + d.QuoteIdent(table) +
		" DROP CONSTRAINT " + d.QuoteIdent(constraint), nil
}

func (d *postgres) CreateUniqueSQL(table string, u schema.UniqueSpec) (string, error) {
	return buildCreateUniqueSQL(table, u, d.QuoteIdent)
}

func (d *postgres) DropUniqueSQL(table string, u schema.UniqueSpec) string {
	if u.Kind == schema.UniqueIndex || len(u.Exprs) > 0 {
		return "DROP INDEX IF EXISTS " + d.QuoteIdent(u.Name)
	}
	return "ALTER TABLE " + d.QuoteIdent(table) + " DROP CONSTRAINT " + d.QuoteIdent(u.Name)
}

// -----------------------------------------------------------------------------
// Helper methods
// -----------------------------------------------------------------------------

func (d *postgres) renderConfig() renderConfig {
	return renderConfig{
		quote:     d.QuoteIdent,
		columnDef: d.columnDefSQL,
	}
}

// columnDefSQL renders one column definition.
func (d *postgres) columnDefSQL(col schema.Column) (string, error) {
	var b strings.Builder
	b.WriteString(d.QuoteIdent(col.Name))
	b.WriteString(" ")
	b.WriteString(d.TypeName(col.Kind))
	if col.AutoIncrement {
		b.WriteString(" GENERATED BY DEFAULT AS IDENTITY")
	}
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
