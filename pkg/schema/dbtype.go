// Package schema defines the structural description of mapped types: entities,
// their constructors, fields, unique keys, and the type-descriptor tree that
// connects application values to database columns.
//
// Schema values are immutable once built. They are derived once per mapped
// type and shared freely between concurrent operations.
package schema

import (
	"github.com/quarrydb/quarry/internal/qerr"
	"github.com/quarrydb/quarry/internal/strutil"
	"github.com/quarrydb/quarry/pkg/primitive"
)

// DbType describes how a field is represented in the database. It is a
// closed tree: a primitive column, an embedded structure flattened into the
// owner's columns, or a list stored in a side table.
type DbType interface {
	// isDbType seals the variant set.
	isDbType()
}

// -----------------------------------------------------------------------------
// PrimitiveType
// -----------------------------------------------------------------------------

// PrimitiveType is a single database column of a primitive kind.
type PrimitiveType struct {
	Kind     primitive.Kind // Column value variant
	Nullable bool           // True if the column allows NULL
	Default  string         // Literal SQL default, empty if none
	Parent   *ParentRef     // Foreign key reference, nil if none
}

func (*PrimitiveType) isDbType() {}

// Primitive returns a non-nullable column of the given kind.
func Primitive(kind primitive.Kind) *PrimitiveType {
	return &PrimitiveType{Kind: kind}
}

// AsNullable returns a copy of t that allows NULL.
func (t *PrimitiveType) AsNullable() *PrimitiveType {
	c := *t
	c.Nullable = true
	return &c
}

// WithDefault returns a copy of t carrying a literal SQL default.
func (t *PrimitiveType) WithDefault(lit string) *PrimitiveType {
	c := *t
	c.Default = lit
	return &c
}

// WithParent returns a copy of t carrying a foreign key reference.
func (t *PrimitiveType) WithParent(ref *ParentRef) *PrimitiveType {
	c := *t
	c.Parent = ref
	return &c
}

// -----------------------------------------------------------------------------
// EmbeddedType
// -----------------------------------------------------------------------------

// EmbeddedType is a sub-record stored inline within its owner's columns.
//
// By default the columns of an embedded field are named by concatenating the
// embedding field name with the inner column names (address ~> city becomes
// address_city). When Authoritative is set, the inner column names are used
// as declared and outer concatenation stops at this embedding.
type EmbeddedType struct {
	Authoritative bool       // Inner column names are used as-is
	Fields        []Field    // Ordered (name, type) pairs
	Parent        *ParentRef // Foreign key reference for the whole structure, nil if none
}

func (*EmbeddedType) isDbType() {}

// Field is one named member of an embedded structure or constructor.
type Field struct {
	Name string
	Type DbType
}

// FieldNamed returns the field with the given name and its ordinal, or
// (-1, zero) when absent.
func (e *EmbeddedType) FieldNamed(name string) (int, Field) {
	for i, f := range e.Fields {
		if f.Name == name {
			return i, f
		}
	}
	return -1, Field{}
}

// -----------------------------------------------------------------------------
// ListType
// -----------------------------------------------------------------------------

// ListType is a homogeneous sequence stored in a named side table and
// addressed from the owner row by a surrogate integer id.
type ListType struct {
	TableName string // Side table name; derived from owner and field if empty
	Elem      DbType // Element type
}

func (*ListType) isDbType() {}

// -----------------------------------------------------------------------------
// ParentRef - foreign key references
// -----------------------------------------------------------------------------

// RefAction is a referential action applied on delete or update of the
// referenced row.
type RefAction int

const (
	// NoAction leaves the referencing row untouched (constraint still checked).
	NoAction RefAction = iota
	// Restrict forbids deleting or updating the referenced row.
	Restrict
	// Cascade propagates the delete or update.
	Cascade
	// SetNull nulls the referencing columns.
	SetNull
	// SetDefault resets the referencing columns to their defaults.
	SetDefault
)

// SQL returns the SQL spelling of the action.
func (a RefAction) SQL() string {
	switch a {
	case Restrict:
		return "RESTRICT"
	case Cascade:
		return "CASCADE"
	case SetNull:
		return "SET NULL"
	case SetDefault:
		return "SET DEFAULT"
	default:
		return "NO ACTION"
	}
}

// ParentRef is a reference to the table a column (or embedded structure)
// points at. Exactly one of Entity or Table is set: Entity references a
// mapped entity, optionally pinned to one of its unique keys; Table
// references an unmapped table by (schema, name, columns).
type ParentRef struct {
	// Mapped entity reference.
	Entity     *Entity // Referenced entity, nil for unmapped references
	UniqueName string  // Pin to one of the entity's uniques; empty = primary key

	// Unmapped table reference.
	Table   *TableRef // Referenced raw table, nil for entity references

	OnDelete RefAction
	OnUpdate RefAction
}

// TableRef identifies a table this core does not have a model for.
type TableRef struct {
	Schema  string
	Name    string
	Columns []string
}

// RefEntity builds a reference to a mapped entity's primary key.
func RefEntity(e *Entity) *ParentRef {
	return &ParentRef{Entity: e}
}

// RefEntityUnique builds a reference pinned to one of the entity's uniques.
func RefEntityUnique(e *Entity, unique string) *ParentRef {
	return &ParentRef{Entity: e, UniqueName: unique}
}

// RefTable builds a reference to an unmapped table.
func RefTable(schema, name string, columns ...string) *ParentRef {
	return &ParentRef{Table: &TableRef{Schema: schema, Name: name, Columns: columns}}
}

// WithActions returns a copy of r with the given referential actions.
func (r *ParentRef) WithActions(onDelete, onUpdate RefAction) *ParentRef {
	c := *r
	c.OnDelete = onDelete
	c.OnUpdate = onUpdate
	return &c
}

// validate checks that the reference names exactly one target.
func (r *ParentRef) validate() error {
	if (r.Entity == nil) == (r.Table == nil) {
		return qerr.New(qerr.ErrSchemaInvalid,
			"parent reference must name exactly one of: mapped entity, unmapped table")
	}
	if r.Table != nil {
		if r.Table.Name == "" {
			return qerr.New(qerr.ErrSchemaInvalid, "unmapped table reference requires a table name")
		}
		if len(r.Table.Columns) == 0 {
			return qerr.New(qerr.ErrSchemaInvalid, "unmapped table reference requires at least one column")
		}
	}
	return nil
}

// targetTable returns the SQL table name the reference points at.
func (r *ParentRef) targetTable() string {
	if r.Entity != nil {
		return r.Entity.SQLName()
	}
	return strutil.SQLName(r.Table.Schema, r.Table.Name)
}

// -----------------------------------------------------------------------------
// Cycle detection
// -----------------------------------------------------------------------------

// checkEmbeddingCycles walks the type tree and fails when an embedded
// structure (transitively) embeds itself. Identity is pointer identity of the
// *EmbeddedType, which is how shared definitions are expressed.
func checkEmbeddingCycles(t DbType, path []*EmbeddedType) error {
	switch v := t.(type) {
	case *PrimitiveType:
		return nil
	case *ListType:
		return checkEmbeddingCycles(v.Elem, path)
	case *EmbeddedType:
		for _, seen := range path {
			if seen == v {
				return qerr.New(qerr.ErrSchemaCycle,
					"embedded structure embeds itself (transitively)")
			}
		}
		path = append(path, v)
		for _, f := range v.Fields {
			if err := checkEmbeddingCycles(f.Type, path); err != nil {
				return qerr.Wrap(qerr.ErrSchemaCycle, err, "cycle through embedded field").
					WithField(f.Name)
			}
		}
		return nil
	default:
		return qerr.New(qerr.ErrSchemaInvalid, "unknown type descriptor variant")
	}
}
