// Package schemafile loads entity definitions from YAML schema files and
// persists the relation snapshot the migration planner diffs against.
package schemafile

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quarrydb/quarry/internal/qerr"
	"github.com/quarrydb/quarry/internal/strutil"
	"github.com/quarrydb/quarry/pkg/primitive"
	"github.com/quarrydb/quarry/pkg/schema"
)

// File is the top-level document of one schema YAML file.
type File struct {
	Namespace string      `yaml:"namespace"`
	Entities  []EntityDef `yaml:"entities"`
}

// EntityDef defines one entity. Entities with a single implicit constructor
// may declare fields directly; sum types list constructors explicitly.
type EntityDef struct {
	Name         string      `yaml:"name"`
	Autokey      string      `yaml:"autokey"`
	Fields       []FieldDef  `yaml:"fields"`
	Uniques      []UniqueDef `yaml:"uniques"`
	Constructors []CtorDef   `yaml:"constructors"`
}

// CtorDef defines one constructor of a sum-typed entity.
type CtorDef struct {
	Name    string      `yaml:"name"`
	Autokey string      `yaml:"autokey"`
	Fields  []FieldDef  `yaml:"fields"`
	Uniques []UniqueDef `yaml:"uniques"`
}

// FieldDef defines one field. Type names the primitive kind, or "embedded"
// (with nested Fields) or "list" (with Elem).
type FieldDef struct {
	Name     string     `yaml:"name"`
	Type     string     `yaml:"type"`
	Nullable bool       `yaml:"nullable"`
	Default  string     `yaml:"default"`
	Fields   []FieldDef `yaml:"fields"`
	Elem     *FieldDef  `yaml:"elem"`

	// Authoritative keeps embedded column names as declared instead of
	// prefixing them with the field name.
	Authoritative bool `yaml:"authoritative"`

	References *RefDef `yaml:"references"`
}

// RefDef defines a foreign key target.
type RefDef struct {
	Entity   string   `yaml:"entity"` // qualified name (namespace.entity)
	Unique   string   `yaml:"unique"` // optional unique key pin
	Table    string   `yaml:"table"`  // unmapped table, as namespace.name
	Columns  []string `yaml:"columns"`
	OnDelete string   `yaml:"on_delete"`
	OnUpdate string   `yaml:"on_update"`
}

// UniqueDef defines a unique key over fields and/or raw expressions.
type UniqueDef struct {
	Name   string   `yaml:"name"`
	Kind   string   `yaml:"kind"` // constraint (default), index, primary
	Fields []string `yaml:"fields"`
	Exprs  []string `yaml:"exprs"`
}

// LoadDir loads every *.yaml and *.yml file in dir and resolves
// cross-entity references over the whole set.
func LoadDir(dir string) ([]*schema.Entity, error) {
	glob, err := filepath.Glob(filepath.Join(dir, "*.y*ml"))
	if err != nil {
		return nil, qerr.Wrap(qerr.ErrSchemaInvalid, err, "cannot list schema files")
	}
	sort.Strings(glob)
	if len(glob) == 0 {
		return nil, qerr.New(qerr.ErrSchemaInvalid, "no schema files found").
			With("dir", dir)
	}
	return LoadFiles(glob...)
}

// LoadFiles loads the given schema files. Identifiers (namespaces, entity,
// constructor, and field names) may be written in camelCase; they are
// normalized to snake_case before validation.
func LoadFiles(paths ...string) ([]*schema.Entity, error) {
	l := &loader{byName: make(map[string]*schema.Entity)}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, qerr.Wrap(qerr.ErrSchemaInvalid, err, "cannot read schema file").
				With("file", path)
		}
		var f File
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, qerr.Wrap(qerr.ErrSchemaInvalid, err, "malformed schema file").
				With("file", path)
		}
		if err := l.addFile(&f); err != nil {
			return nil, qerr.Wrap(qerr.ErrSchemaInvalid, err, "invalid schema file").
				With("file", path)
		}
	}
	if err := l.resolve(); err != nil {
		return nil, err
	}

	out := l.entities
	for _, e := range out {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// loader accumulates entities across files and defers reference resolution
// until every entity is known.
type loader struct {
	entities []*schema.Entity
	byName   map[string]*schema.Entity
	pending  []pendingRef
}

// pendingRef is a parent reference waiting for its target entity.
type pendingRef struct {
	set    func(*schema.ParentRef)
	def    *RefDef
	entity string // owning entity, for error context
}

func (l *loader) addFile(f *File) error {
	for i := range f.Entities {
		e, err := l.entity(strutil.ToSnakeCase(f.Namespace), &f.Entities[i])
		if err != nil {
			return err
		}
		key := e.QualifiedName()
		if _, dup := l.byName[key]; dup {
			return qerr.New(qerr.ErrSchemaDuplicate, "entity defined twice").
				WithEntity(e.Namespace, e.Name)
		}
		l.byName[key] = e
		l.entities = append(l.entities, e)
	}
	return nil
}

func (l *loader) entity(namespace string, def *EntityDef) (*schema.Entity, error) {
	e := &schema.Entity{Name: strutil.ToSnakeCase(def.Name), Namespace: namespace}

	ctors := def.Constructors
	if len(ctors) == 0 {
		// Single implicit constructor named after the entity.
		ctors = []CtorDef{{
			Name:    def.Name,
			Autokey: def.Autokey,
			Fields:  def.Fields,
			Uniques: def.Uniques,
		}}
	} else if len(def.Fields) > 0 {
		return nil, qerr.New(qerr.ErrSchemaInvalid,
			"entity declares both top-level fields and explicit constructors").
			WithEntity(namespace, def.Name)
	}

	for i := range ctors {
		c, err := l.ctor(e, &ctors[i])
		if err != nil {
			return nil, err
		}
		e.Ctors = append(e.Ctors, c)
	}
	return e, nil
}

func (l *loader) ctor(e *schema.Entity, def *CtorDef) (schema.Constructor, error) {
	c := schema.Constructor{
		Name:    strutil.ToSnakeCase(def.Name),
		Autokey: strutil.ToSnakeCase(def.Autokey),
	}

	for i := range def.Fields {
		t, err := l.fieldType(e, &def.Fields[i])
		if err != nil {
			return c, err
		}
		c.Fields = append(c.Fields, schema.Field{Name: strutil.ToSnakeCase(def.Fields[i].Name), Type: t})
	}
	for _, u := range def.Uniques {
		unique, err := uniqueDef(&c, u)
		if err != nil {
			return c, err
		}
		c.Uniques = append(c.Uniques, unique)
	}
	return c, nil
}

func (l *loader) fieldType(e *schema.Entity, def *FieldDef) (schema.DbType, error) {
	switch def.Type {
	case "embedded":
		emb := &schema.EmbeddedType{Authoritative: def.Authoritative}
		for i := range def.Fields {
			t, err := l.fieldType(e, &def.Fields[i])
			if err != nil {
				return nil, err
			}
			emb.Fields = append(emb.Fields, schema.Field{Name: strutil.ToSnakeCase(def.Fields[i].Name), Type: t})
		}
		if def.References != nil {
			l.deferRef(e, def.References, func(r *schema.ParentRef) { emb.Parent = r })
		}
		return emb, nil

	case "list":
		if def.Elem == nil {
			return nil, qerr.New(qerr.ErrSchemaInvalid, "list field needs an elem").
				WithField(def.Name)
		}
		elem, err := l.fieldType(e, def.Elem)
		if err != nil {
			return nil, err
		}
		return &schema.ListType{Elem: elem}, nil

	default:
		kind, err := kindNamed(def.Type)
		if err != nil {
			return nil, qerr.Wrap(qerr.ErrSchemaInvalid, err, "unknown field type").
				WithField(def.Name)
		}
		t := schema.Primitive(kind)
		if def.Nullable {
			t = t.AsNullable()
		}
		if def.Default != "" {
			t = t.WithDefault(def.Default)
		}
		pt := t
		if def.References != nil {
			l.deferRef(e, def.References, func(r *schema.ParentRef) { pt.Parent = r })
		}
		return pt, nil
	}
}

func (l *loader) deferRef(e *schema.Entity, def *RefDef, set func(*schema.ParentRef)) {
	l.pending = append(l.pending, pendingRef{set: set, def: def, entity: e.QualifiedName()})
}

// resolve binds deferred parent references now that every entity exists.
func (l *loader) resolve() error {
	for _, p := range l.pending {
		ref, err := l.parentRef(p.def)
		if err != nil {
			return qerr.Wrap(qerr.ErrSchemaInvalid, err, "cannot resolve reference").
				With("entity", p.entity)
		}
		p.set(ref)
	}
	return nil
}

func (l *loader) parentRef(def *RefDef) (*schema.ParentRef, error) {
	var ref *schema.ParentRef
	switch {
	case def.Entity != "":
		ns, name := splitQualified(def.Entity)
		key := strutil.QualifiedName(strutil.ToSnakeCase(ns), strutil.ToSnakeCase(name))
		target, ok := l.byName[key]
		if !ok {
			return nil, qerr.New(qerr.ErrSchemaInvalid, "referenced entity is not defined").
				With("target", def.Entity)
		}
		if def.Unique != "" {
			ref = schema.RefEntityUnique(target, def.Unique)
		} else {
			ref = schema.RefEntity(target)
		}
	case def.Table != "":
		ns, name := splitQualified(def.Table)
		ref = schema.RefTable(ns, name, def.Columns...)
	default:
		return nil, qerr.New(qerr.ErrSchemaInvalid, "reference names neither an entity nor a table")
	}

	onDelete, err := actionNamed(def.OnDelete)
	if err != nil {
		return nil, err
	}
	onUpdate, err := actionNamed(def.OnUpdate)
	if err != nil {
		return nil, err
	}
	return ref.WithActions(onDelete, onUpdate), nil
}

func uniqueDef(c *schema.Constructor, def UniqueDef) (schema.Unique, error) {
	u := schema.Unique{Name: def.Name}
	switch def.Kind {
	case "", "constraint":
		u.Kind = schema.UniqueConstraint
	case "index":
		u.Kind = schema.UniqueIndex
	case "primary":
		u.Kind = schema.UniquePrimary
	default:
		return u, qerr.New(qerr.ErrSchemaInvalid, "unknown unique kind").
			With("kind", def.Kind)
	}
	for _, name := range def.Fields {
		name = strutil.ToSnakeCase(name)
		_, f := c.FieldNamed(name)
		u.Members = append(u.Members, schema.FieldMember(name, f.Type))
	}
	for _, expr := range def.Exprs {
		u.Members = append(u.Members, schema.ExprMember(expr))
	}
	return u, nil
}

func kindNamed(name string) (primitive.Kind, error) {
	switch name {
	case "string", "text":
		return primitive.KindString, nil
	case "blob", "bytes":
		return primitive.KindBlob, nil
	case "int", "int64", "integer":
		return primitive.KindInt64, nil
	case "double", "float":
		return primitive.KindDouble, nil
	case "bool", "boolean":
		return primitive.KindBool, nil
	case "date":
		return primitive.KindDate, nil
	case "time":
		return primitive.KindTimeOfDay, nil
	case "timestamp", "utc_time":
		return primitive.KindUTCTime, nil
	case "zoned_time":
		return primitive.KindZonedTime, nil
	default:
		return 0, qerr.Newf(qerr.ErrSchemaInvalid, "no primitive kind named %q", name)
	}
}

func actionNamed(name string) (schema.RefAction, error) {
	switch name {
	case "", "no_action":
		return schema.NoAction, nil
	case "restrict":
		return schema.Restrict, nil
	case "cascade":
		return schema.Cascade, nil
	case "set_null":
		return schema.SetNull, nil
	case "set_default":
		return schema.SetDefault, nil
	default:
		return 0, qerr.Newf(qerr.ErrSchemaInvalid, "no referential action named %q", name)
	}
}

func splitQualified(s string) (ns, name string) {
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}
