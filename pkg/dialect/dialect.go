// Package dialect provides database-specific SQL generation for the
// relational form of entities: type names, identifier quoting, placeholders,
// and the DDL statements the migration planner emits.
// Implementations exist for PostgreSQL and SQLite.
package dialect

import (
	"github.com/quarrydb/quarry/pkg/primitive"
	"github.com/quarrydb/quarry/pkg/schema"
)

// Dialect is the interface for database-specific SQL generation.
// Every Dialect is also a schema.Descriptor, so it can be passed anywhere
// backend-dependent behavior (autokey shape, type naming) is needed.
type Dialect interface {
	schema.Descriptor

	// TypeName maps a primitive kind to the dialect's column type.
	TypeName(kind primitive.Kind) string

	// QuoteIdent quotes a table or column name.
	QuoteIdent(name string) string

	// Placeholder returns a parameter placeholder for the given index (1-based).
	// PostgreSQL: $1, $2, ... SQLite: ?, ?, ...
	Placeholder(index int) string

	// SupportsAddForeignKey reports whether foreign keys can be added to an
	// existing table with ALTER TABLE.
	SupportsAddForeignKey() bool

	// -------------------------------------------------------------------------
	// DDL generation
	// -------------------------------------------------------------------------

	// CreateTableSQL generates the CREATE TABLE statement for a relation,
	// inlining primary key, uniques, and (where supported) foreign keys.
	CreateTableSQL(rel *schema.Relation) (string, error)

	// DropTableSQL generates DROP TABLE IF EXISTS.
	DropTableSQL(table string) string

	// AddColumnSQL generates ALTER TABLE ADD COLUMN.
	AddColumnSQL(table string, col schema.Column) (string, error)

	// DropColumnSQL generates ALTER TABLE DROP COLUMN.
	DropColumnSQL(table, column string) string

	// AddForeignKeySQL generates ALTER TABLE ADD CONSTRAINT FOREIGN KEY.
	AddForeignKeySQL(table string, fk schema.ForeignKey) (string, error)

	// DropForeignKeySQL generates the statement removing a named foreign key
	// constraint.
	DropForeignKeySQL(table, constraint string) (string, error)

	// CreateUniqueSQL generates the statement realizing a unique key that
	// was not inlined into CREATE TABLE (unique indexes).
	CreateUniqueSQL(table string, u schema.UniqueSpec) (string, error)

	// DropUniqueSQL generates the statement removing a unique key.
	DropUniqueSQL(table string, u schema.UniqueSpec) string
}

// Get returns the dialect implementation for the given name.
// Valid names: "postgres", "postgresql", "sqlite", "sqlite3".
// Returns nil if the dialect is not supported.
func Get(name string) Dialect {
	switch name {
	case "postgres", "postgresql":
		return Postgres()
	case "sqlite", "sqlite3":
		return SQLite()
	default:
		return nil
	}
}

// Names returns the list of supported dialect names.
func Names() []string {
	return []string{"postgres", "sqlite"}
}
