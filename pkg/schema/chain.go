package schema

import (
	"github.com/quarrydb/quarry/internal/qerr"
	"github.com/quarrydb/quarry/internal/strutil"
)

// FieldChain is a resolved, backend-independent path from an entity's root to
// a specific (possibly nested) column: the leaf (name, type) plus the ordered
// list of embeddings it was reached through.
//
// Ancestors are stored innermost-first: Ancestors[0] is the embedding closest
// to the leaf, Ancestors[len-1] the one on the entity itself.
type FieldChain struct {
	Name      string      // Leaf column name as declared
	Type      DbType      // Leaf type descriptor
	Ancestors []Embedding // Innermost-first embedding path; empty for root fields
}

// Embedding is one step of an embedding path: the field name the structure
// was embedded under, and its definition.
type Embedding struct {
	FieldName string
	Def       *EmbeddedType
}

// ChainOf resolves a root-level field of a constructor into a FieldChain.
func ChainOf(c *Constructor, field string) (FieldChain, error) {
	i, f := c.FieldNamed(field)
	if i < 0 {
		return FieldChain{}, qerr.New(qerr.ErrFieldNotFound, "no such field on constructor").
			With("constructor", c.Name).
			WithField(field)
	}
	return FieldChain{Name: f.Name, Type: f.Type}, nil
}

// Then resolves one step deeper: it navigates into the named field of the
// chain's leaf type. The leaf must be an embedded structure; navigating
// through any other descriptor is a structural configuration error, not a
// per-row runtime condition.
//
// Composition is associative: the current leaf becomes the innermost
// ancestor of the new chain, so the innermost-first order is preserved.
func (c FieldChain) Then(field string) (FieldChain, error) {
	emb, ok := c.Type.(*EmbeddedType)
	if !ok {
		return FieldChain{}, qerr.New(qerr.ErrNotEmbedded,
			"nested access is only legal through embedded structures").
			WithField(c.Name).
			With("nested", field)
	}
	i, f := emb.FieldNamed(field)
	if i < 0 {
		return FieldChain{}, qerr.New(qerr.ErrFieldNotFound, "no such field on embedded structure").
			WithField(field)
	}

	ancestors := make([]Embedding, 0, len(c.Ancestors)+1)
	ancestors = append(ancestors, Embedding{FieldName: c.Name, Def: emb})
	ancestors = append(ancestors, c.Ancestors...)

	return FieldChain{Name: f.Name, Type: f.Type, Ancestors: ancestors}, nil
}

// ColumnName computes the actual column name for the chain: ancestor field
// names are concatenated outward unless an ancestor embedding declares its
// column names authoritative, in which case concatenation stops there.
func (c FieldChain) ColumnName() string {
	var prefixes []string
	for _, anc := range c.Ancestors { // innermost-first
		if anc.Def.Authoritative {
			break
		}
		prefixes = append([]string{anc.FieldName}, prefixes...)
	}
	return strutil.ColumnPath(prefixes, c.Name)
}

// Root returns the outermost field name of the chain: the entity-level field
// the path enters through.
func (c FieldChain) Root() string {
	if len(c.Ancestors) == 0 {
		return c.Name
	}
	return c.Ancestors[len(c.Ancestors)-1].FieldName
}

// -----------------------------------------------------------------------------
// Descriptor - backend self-description
// -----------------------------------------------------------------------------

// Descriptor is the backend's self-description, passed explicitly through
// every call that needs backend-dependent behavior (autokey shape, type
// naming) instead of relying on implicit global lookup.
type Descriptor interface {
	// BackendName returns the backend's name for diagnostics.
	BackendName() string

	// AutokeyType returns the primitive type the backend assigns to
	// generated keys.
	AutokeyType() *PrimitiveType
}
