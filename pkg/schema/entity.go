package schema

import (
	"fmt"
	"regexp"

	"github.com/quarrydb/quarry/internal/qerr"
	"github.com/quarrydb/quarry/internal/strutil"
)

// Validation messages shared across Entity, Constructor, and Unique.
const (
	msgEntityNameRequired      = "entity name is required"
	msgConstructorRequired     = "entity must have at least one constructor"
	msgConstructorNameRequired = "constructor name is required"
	msgFieldNameRequired       = "field name is required"
	msgUniqueNeedsMember       = "unique key must have at least one member"
)

// validIdentifierPattern matches safe SQL identifiers (lowercase snake_case).
var validIdentifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidateIdentifier checks that a name is a safe SQL identifier (lowercase snake_case).
func ValidateIdentifier(name string) error {
	if !validIdentifierPattern.MatchString(name) {
		return qerr.New(qerr.ErrSchemaInvalid,
			fmt.Sprintf("invalid identifier %q; must match [a-z_][a-z0-9_]*", name))
	}
	return nil
}

// -----------------------------------------------------------------------------
// Entity - mapped top-level type
// -----------------------------------------------------------------------------

// Entity describes one mapped top-level persistable type.
//
// The constructor list is non-empty and its order is canonical: for sum types
// the ordinal of a constructor in this list is the discriminant stored with
// each row. The list is never re-sorted.
type Entity struct {
	Name       string        // Entity name (snake_case)
	Namespace  string        // Optional logical grouping (e.g. "auth", "billing")
	TypeParams []TypeParam   // Instantiated type-parameter descriptors
	Ctors      []Constructor // Ordered constructors; index = discriminant
}

// TypeParam records one instantiated type parameter of a generic entity.
type TypeParam struct {
	Name string // Parameter name as declared
	Type DbType // Concrete descriptor it was instantiated with
}

// SQLName returns the table name in namespace_entity format.
func (e *Entity) SQLName() string {
	return strutil.SQLName(e.Namespace, e.Name)
}

// QualifiedName returns the dotted reference (namespace.entity).
func (e *Entity) QualifiedName() string {
	return strutil.QualifiedName(e.Namespace, e.Name)
}

// IsSum reports whether the entity has more than one constructor.
func (e *Entity) IsSum() bool {
	return len(e.Ctors) > 1
}

// Ctor returns the constructor with the given name, or nil if absent.
func (e *Entity) Ctor(name string) *Constructor {
	for i := range e.Ctors {
		if e.Ctors[i].Name == name {
			return &e.Ctors[i]
		}
	}
	return nil
}

// Discriminant returns the canonical ordinal of the named constructor,
// or -1 if absent.
func (e *Entity) Discriminant(name string) int {
	for i := range e.Ctors {
		if e.Ctors[i].Name == name {
			return i
		}
	}
	return -1
}

// Validate checks that the entity definition is well-formed: identifier
// syntax, a non-empty constructor list, no duplicate names, unique members
// that reference declared fields, and no embedding cycles anywhere in the
// reachable type tree.
func (e *Entity) Validate() error {
	if e.Name == "" {
		return qerr.New(qerr.ErrSchemaInvalid, msgEntityNameRequired)
	}
	if err := ValidateIdentifier(e.Name); err != nil {
		return err
	}
	if e.Namespace != "" {
		if err := ValidateIdentifier(e.Namespace); err != nil {
			return err
		}
	}
	if len(e.Ctors) == 0 {
		return qerr.New(qerr.ErrSchemaInvalid, msgConstructorRequired).
			WithEntity(e.Namespace, e.Name)
	}

	seenCtors := make(map[string]bool, len(e.Ctors))
	for i := range e.Ctors {
		c := &e.Ctors[i]
		if seenCtors[c.Name] {
			return qerr.New(qerr.ErrSchemaDuplicate, "duplicate constructor name").
				WithEntity(e.Namespace, e.Name).
				With("constructor", c.Name)
		}
		seenCtors[c.Name] = true
		if err := c.validate(); err != nil {
			return qerr.Wrap(qerr.ErrSchemaInvalid, err, "invalid constructor").
				WithEntity(e.Namespace, e.Name).
				With("constructor", c.Name)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Constructor - one variant of a (possibly sum-typed) entity
// -----------------------------------------------------------------------------

// Constructor is one variant of an entity. It carries its own ordered field
// list and the unique keys scoped to it.
type Constructor struct {
	Name    string   // Constructor name (snake_case)
	Autokey string   // Field name of the backend-generated key, empty if none
	Fields  []Field  // Ordered (name, type) pairs
	Uniques []Unique // Unique keys scoped to this constructor
}

// FieldNamed returns the field with the given name and its ordinal, or
// (-1, zero) when absent.
func (c *Constructor) FieldNamed(name string) (int, Field) {
	for i, f := range c.Fields {
		if f.Name == name {
			return i, f
		}
	}
	return -1, Field{}
}

// Unique returns the unique key with the given name, or nil if absent.
func (c *Constructor) Unique(name string) *Unique {
	for i := range c.Uniques {
		if c.Uniques[i].Name == name {
			return &c.Uniques[i]
		}
	}
	return nil
}

// validate checks the constructor's fields and uniques.
func (c *Constructor) validate() error {
	if c.Name == "" {
		return qerr.New(qerr.ErrSchemaInvalid, msgConstructorNameRequired)
	}
	if err := ValidateIdentifier(c.Name); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		if f.Name == "" {
			return qerr.New(qerr.ErrSchemaInvalid, msgFieldNameRequired)
		}
		if err := ValidateIdentifier(f.Name); err != nil {
			return err
		}
		if seen[f.Name] {
			return qerr.New(qerr.ErrSchemaDuplicate, "duplicate field name").
				WithField(f.Name)
		}
		seen[f.Name] = true
		if f.Type == nil {
			return qerr.New(qerr.ErrSchemaInvalid, "field type is required").
				WithField(f.Name)
		}
		if err := checkEmbeddingCycles(f.Type, nil); err != nil {
			return qerr.Wrap(qerr.ErrSchemaCycle, err, "field type contains an embedding cycle").
				WithField(f.Name)
		}
		if err := validateParentRefs(f.Type); err != nil {
			return qerr.Wrap(qerr.ErrSchemaInvalid, err, "invalid parent reference").
				WithField(f.Name)
		}
	}

	if c.Autokey != "" && seen[c.Autokey] {
		// The autokey column is synthesized by the backend; a field with the
		// same name would collide.
		return qerr.New(qerr.ErrSchemaDuplicate, "autokey name collides with a declared field").
			WithField(c.Autokey)
	}

	for i := range c.Uniques {
		if err := c.Uniques[i].validate(c); err != nil {
			return err
		}
	}
	return nil
}

// validateParentRefs walks the type tree checking every ParentRef.
func validateParentRefs(t DbType) error {
	switch v := t.(type) {
	case *PrimitiveType:
		if v.Parent != nil {
			return v.Parent.validate()
		}
		return nil
	case *EmbeddedType:
		if v.Parent != nil {
			if err := v.Parent.validate(); err != nil {
				return err
			}
		}
		for _, f := range v.Fields {
			if err := validateParentRefs(f.Type); err != nil {
				return err
			}
		}
		return nil
	case *ListType:
		return validateParentRefs(v.Elem)
	default:
		return nil
	}
}

// -----------------------------------------------------------------------------
// Unique - unique key definition
// -----------------------------------------------------------------------------

// UniqueKind distinguishes how a unique key is realized.
type UniqueKind int

const (
	// UniqueConstraint is a plain UNIQUE constraint.
	UniqueConstraint UniqueKind = iota
	// UniqueIndex is a unique index.
	UniqueIndex
	// UniquePrimary is the primary key.
	UniquePrimary
)

// String returns the lowercase name of the kind.
func (k UniqueKind) String() string {
	switch k {
	case UniqueIndex:
		return "index"
	case UniquePrimary:
		return "primary"
	default:
		return "constraint"
	}
}

// Unique is a named constraint/index/primary combination of fields or raw
// expressions guaranteeing row uniqueness.
type Unique struct {
	Name          string         // Optional; auto-generated by backends if empty
	Kind          UniqueKind     // constraint, index, or primary
	AutoIncrement bool           // Only meaningful for UniquePrimary
	Members       []UniqueMember // Ordered members
}

// UniqueMember is either a (field name, type) pair or an opaque expression.
type UniqueMember struct {
	Field string // Field name; empty when Expr is set
	Type  DbType // Field type; nil when Expr is set
	Expr  string // Raw expression; empty when Field is set
}

// FieldMember builds a unique member referencing a declared field.
func FieldMember(name string, t DbType) UniqueMember {
	return UniqueMember{Field: name, Type: t}
}

// ExprMember builds a unique member over an opaque expression.
func ExprMember(expr string) UniqueMember {
	return UniqueMember{Expr: expr}
}

// validate checks the unique key against its owning constructor.
func (u *Unique) validate(c *Constructor) error {
	if u.Name != "" {
		if err := ValidateIdentifier(u.Name); err != nil {
			return err
		}
	}
	if len(u.Members) == 0 {
		return qerr.New(qerr.ErrSchemaInvalid, msgUniqueNeedsMember).
			With("unique", u.Name)
	}
	if u.AutoIncrement && u.Kind != UniquePrimary {
		return qerr.New(qerr.ErrSchemaInvalid, "auto-increment is only valid on a primary key").
			With("unique", u.Name)
	}
	for _, m := range u.Members {
		if (m.Field == "") == (m.Expr == "") {
			return qerr.New(qerr.ErrSchemaInvalid,
				"unique member must be exactly one of: field, expression").
				With("unique", u.Name)
		}
		if m.Field != "" {
			if i, _ := c.FieldNamed(m.Field); i < 0 && m.Field != c.Autokey {
				return qerr.New(qerr.ErrFieldNotFound, "unique member references unknown field").
					With("unique", u.Name).
					WithField(m.Field)
			}
		}
	}
	return nil
}
