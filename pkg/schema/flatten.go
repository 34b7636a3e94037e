package schema

import (
	"github.com/quarrydb/quarry/internal/qerr"
	"github.com/quarrydb/quarry/internal/strutil"
	"github.com/quarrydb/quarry/pkg/primitive"
)

// DiscriminantColumn is the column storing the constructor ordinal of
// sum-typed entities. Single-constructor entities do not carry it.
const DiscriminantColumn = "variant"

// ListKeyColumn and ListPosColumn address rows of a list side table:
// the surrogate list id and the element position within the list.
const (
	ListKeyColumn = "list_id"
	ListPosColumn = "pos"
	ListValColumn = "value"
)

// Relation is the flattened, relational form of an entity: one table with
// concrete columns, plus one side table per reachable list field. This is
// what the migration planner diffs and what backends render SQL from.
type Relation struct {
	Name        string       // SQL table name (namespace_entity)
	Columns     []Column     // Ordered column definitions
	ForeignKeys []ForeignKey // Constraints collected from parent references
	Uniques     []UniqueSpec // Unique keys from all constructors
	Lists       []*Relation  // Side tables for list-valued fields
}

// Column is one concrete table column.
type Column struct {
	Name          string
	Kind          primitive.Kind
	Nullable      bool
	Default       string // Literal SQL default, empty if none
	PrimaryKey    bool
	AutoIncrement bool
}

// ForeignKey is a flattened foreign key constraint.
type ForeignKey struct {
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
	OnDelete   RefAction
	OnUpdate   RefAction
}

// UniqueSpec is a flattened unique key: plain columns and/or raw expressions.
type UniqueSpec struct {
	Name    string
	Kind    UniqueKind
	Columns []string
	Exprs   []string
}

// Column returns the column with the given name, or nil if absent.
func (r *Relation) Column(name string) *Column {
	for i := range r.Columns {
		if r.Columns[i].Name == name {
			return &r.Columns[i]
		}
	}
	return nil
}

// Unique returns the unique spec with the given name, or nil if absent.
func (r *Relation) Unique(name string) *UniqueSpec {
	for i := range r.Uniques {
		if r.Uniques[i].Name == name {
			return &r.Uniques[i]
		}
	}
	return nil
}

// PrimaryColumn returns the primary key column, or nil if none.
func (r *Relation) PrimaryColumn() *Column {
	for i := range r.Columns {
		if r.Columns[i].PrimaryKey {
			return &r.Columns[i]
		}
	}
	return nil
}

// flattener accumulates state while lowering one entity.
type flattener struct {
	desc Descriptor
	rel  *Relation
}

// Flatten lowers an entity into its relational form against the given
// backend descriptor. The entity is validated first; sum-typed entities get
// a discriminant column, and fields not shared by every constructor become
// nullable because rows of other constructors leave them empty.
func Flatten(e *Entity, desc Descriptor) (*Relation, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	f := &flattener{desc: desc, rel: &Relation{Name: e.SQLName()}}

	if err := f.addAutokey(e); err != nil {
		return nil, err
	}
	if e.IsSum() {
		f.rel.Columns = append(f.rel.Columns, Column{
			Name: DiscriminantColumn,
			Kind: primitive.KindInt64,
		})
	}

	// Count, per column name, how many constructors declare the field so
	// fields missing from some constructor can be made nullable afterwards.
	declared := make(map[string]int)

	for ci := range e.Ctors {
		c := &e.Ctors[ci]
		for _, fld := range c.Fields {
			names, err := f.addField(nil, fld, false)
			if err != nil {
				return nil, qerr.Wrap(qerr.ErrSchemaInvalid, err, "cannot flatten field").
					WithEntity(e.Namespace, e.Name).
					WithField(fld.Name)
			}
			for _, n := range names {
				declared[n]++
			}
		}
		for ui := range c.Uniques {
			spec, err := f.flattenUnique(c, &c.Uniques[ui])
			if err != nil {
				return nil, err
			}
			f.rel.Uniques = append(f.rel.Uniques, spec)
		}
	}

	if e.IsSum() {
		for i := range f.rel.Columns {
			col := &f.rel.Columns[i]
			if col.PrimaryKey || col.Name == DiscriminantColumn {
				continue
			}
			if declared[col.Name] < len(e.Ctors) {
				col.Nullable = true
			}
		}
	}

	return f.rel, nil
}

// addAutokey synthesizes the backend-generated primary key column. Every
// constructor declaring an autokey must agree on its name; entities without
// one use a unit key and get no synthesized column.
func (f *flattener) addAutokey(e *Entity) error {
	name := ""
	for i := range e.Ctors {
		ak := e.Ctors[i].Autokey
		if ak == "" {
			continue
		}
		if name == "" {
			name = ak
		} else if name != ak {
			return qerr.New(qerr.ErrSchemaInvalid, "constructors disagree on the autokey name").
				WithEntity(e.Namespace, e.Name).
				With("first", name).
				With("second", ak)
		}
	}
	if name == "" {
		return nil
	}

	akType := f.desc.AutokeyType()
	f.rel.Columns = append(f.rel.Columns, Column{
		Name:          name,
		Kind:          akType.Kind,
		Default:       akType.Default,
		PrimaryKey:    true,
		AutoIncrement: akType.Kind == primitive.KindInt64,
	})
	return nil
}

// addField lowers one field into columns (and possibly side tables),
// returning the names of the columns it produced on the owner relation.
// prefixes is the embedding path outward-first; forceNullable propagates the
// nullability of an enclosing embedding.
func (f *flattener) addField(prefixes []string, fld Field, forceNullable bool) ([]string, error) {
	switch t := fld.Type.(type) {
	case *PrimitiveType:
		name := strutil.ColumnPath(prefixes, fld.Name)
		if existing := f.rel.Column(name); existing != nil {
			// Shared between constructors: shapes must agree.
			if existing.Kind != t.Kind {
				return nil, qerr.New(qerr.ErrSchemaInvalid,
					"constructors declare the same column with different types").
					With("column", name)
			}
			return []string{name}, nil
		}
		f.rel.Columns = append(f.rel.Columns, Column{
			Name:     name,
			Kind:     t.Kind,
			Nullable: t.Nullable || forceNullable,
			Default:  t.Default,
		})
		if t.Parent != nil {
			if err := f.addForeignKey([]string{name}, t.Parent); err != nil {
				return nil, err
			}
		}
		return []string{name}, nil

	case *EmbeddedType:
		// Authoritative embeddings drop the accumulated prefix: their
		// declared column names are used as-is.
		inner := append(append([]string(nil), prefixes...), fld.Name)
		if t.Authoritative {
			inner = nil
		}
		var produced []string
		for _, sub := range t.Fields {
			names, err := f.addField(inner, sub, forceNullable)
			if err != nil {
				return nil, err
			}
			produced = append(produced, names...)
		}
		if t.Parent != nil {
			if err := f.addForeignKey(produced, t.Parent); err != nil {
				return nil, err
			}
		}
		return produced, nil

	case *ListType:
		name := strutil.ColumnPath(prefixes, fld.Name)
		side, err := f.listRelation(name, t)
		if err != nil {
			return nil, err
		}
		f.rel.Lists = append(f.rel.Lists, side)
		// The owner row stores the surrogate list id.
		f.rel.Columns = append(f.rel.Columns, Column{
			Name:     name,
			Kind:     primitive.KindInt64,
			Nullable: forceNullable,
		})
		return []string{name}, nil

	default:
		return nil, qerr.New(qerr.ErrSchemaInvalid, "unknown type descriptor variant").
			WithField(fld.Name)
	}
}

// listRelation builds the side table storing a list-valued field.
func (f *flattener) listRelation(ownerColumn string, t *ListType) (*Relation, error) {
	name := t.TableName
	if name == "" {
		name = strutil.ListTableName(f.rel.Name, ownerColumn)
	}

	side := &Relation{Name: name}
	side.Columns = append(side.Columns,
		Column{Name: ListKeyColumn, Kind: primitive.KindInt64},
		Column{Name: ListPosColumn, Kind: primitive.KindInt64},
	)

	sub := &flattener{desc: f.desc, rel: side}
	switch elem := t.Elem.(type) {
	case *PrimitiveType:
		if _, err := sub.addField(nil, Field{Name: ListValColumn, Type: elem}, false); err != nil {
			return nil, err
		}
	case *EmbeddedType:
		for _, fld := range elem.Fields {
			if _, err := sub.addField(nil, fld, false); err != nil {
				return nil, err
			}
		}
	default:
		return nil, qerr.New(qerr.ErrSchemaInvalid,
			"list elements must be primitive or embedded values")
	}

	side.Uniques = append(side.Uniques, UniqueSpec{
		Name:    name + "_key",
		Kind:    UniquePrimary,
		Columns: []string{ListKeyColumn, ListPosColumn},
	})
	return side, nil
}

// addForeignKey lowers a parent reference into a ForeignKey constraint.
func (f *flattener) addForeignKey(columns []string, ref *ParentRef) error {
	fk := ForeignKey{
		Columns:  columns,
		RefTable: ref.targetTable(),
		OnDelete: ref.OnDelete,
		OnUpdate: ref.OnUpdate,
	}

	if ref.Entity != nil {
		cols, err := refColumns(ref.Entity, ref.UniqueName)
		if err != nil {
			return err
		}
		fk.RefColumns = cols
	} else {
		fk.RefColumns = append([]string(nil), ref.Table.Columns...)
	}

	if len(fk.Columns) != len(fk.RefColumns) {
		return qerr.New(qerr.ErrSchemaInvalid,
			"foreign key column count must match referenced column count").
			With("columns", len(fk.Columns)).
			With("ref_columns", len(fk.RefColumns))
	}

	fk.Name = "fk_" + f.rel.Name + "_" + fk.Columns[0]
	f.rel.ForeignKeys = append(f.rel.ForeignKeys, fk)
	return nil
}

// refColumns resolves the columns a mapped-entity reference points at: the
// pinned unique's members, or the entity's autokey / primary key.
func refColumns(e *Entity, uniqueName string) ([]string, error) {
	if uniqueName != "" {
		for i := range e.Ctors {
			if u := e.Ctors[i].Unique(uniqueName); u != nil {
				var cols []string
				for _, m := range u.Members {
					if m.Field == "" {
						return nil, qerr.New(qerr.ErrSchemaInvalid,
							"cannot reference an expression member of a unique key").
							With("unique", uniqueName)
					}
					cols = append(cols, m.Field)
				}
				return cols, nil
			}
		}
		return nil, qerr.New(qerr.ErrSchemaInvalid, "referenced unique key not found").
			WithEntity(e.Namespace, e.Name).
			With("unique", uniqueName)
	}

	for i := range e.Ctors {
		if ak := e.Ctors[i].Autokey; ak != "" {
			return []string{ak}, nil
		}
	}
	for i := range e.Ctors {
		for _, u := range e.Ctors[i].Uniques {
			if u.Kind != UniquePrimary {
				continue
			}
			var cols []string
			for _, m := range u.Members {
				if m.Field != "" {
					cols = append(cols, m.Field)
				}
			}
			if len(cols) > 0 {
				return cols, nil
			}
		}
	}
	return nil, qerr.New(qerr.ErrSchemaInvalid,
		"referenced entity has neither an autokey nor a primary key").
		WithEntity(e.Namespace, e.Name)
}

// flattenUnique expands a unique key's members into concrete columns.
func (f *flattener) flattenUnique(c *Constructor, u *Unique) (UniqueSpec, error) {
	spec := UniqueSpec{Name: u.Name, Kind: u.Kind}
	for _, m := range u.Members {
		if m.Expr != "" {
			spec.Exprs = append(spec.Exprs, m.Expr)
			continue
		}
		switch t := m.Type.(type) {
		case *EmbeddedType:
			// An embedded member covers all of its flattened columns.
			chain := FieldChain{Name: m.Field, Type: t}
			cols, err := embeddedColumns(chain, t)
			if err != nil {
				return UniqueSpec{}, err
			}
			spec.Columns = append(spec.Columns, cols...)
		default:
			spec.Columns = append(spec.Columns, m.Field)
		}
	}
	if spec.Name == "" {
		base := "uq_" + f.rel.Name
		for _, col := range spec.Columns {
			base += "_" + col
		}
		spec.Name = base
	}
	return spec, nil
}

// embeddedColumns lists the column names produced by an embedded structure
// reached through the given chain.
func embeddedColumns(chain FieldChain, t *EmbeddedType) ([]string, error) {
	var cols []string
	for _, fld := range t.Fields {
		sub, err := chain.Then(fld.Name)
		if err != nil {
			return nil, err
		}
		if inner, ok := fld.Type.(*EmbeddedType); ok {
			nested, err := embeddedColumns(sub, inner)
			if err != nil {
				return nil, err
			}
			cols = append(cols, nested...)
			continue
		}
		cols = append(cols, sub.ColumnName())
	}
	return cols, nil
}
