// Package query provides the backend-neutral algebra used to build typed
// queries: expression nodes, composable conditions, update assignments,
// orderings, and the select-options bundle with construction-time state
// tracking.
//
// Everything here is an immutable value tree. Backends receive the trees and
// render them; this package never touches a database.
package query

import (
	"github.com/quarrydb/quarry/pkg/codec"
	"github.com/quarrydb/quarry/pkg/schema"
)

// -----------------------------------------------------------------------------
// Capability hierarchy
// -----------------------------------------------------------------------------

// Projection is anything that can appear in a result-set column list.
type Projection interface {
	isProjection()
}

// Assignable is a projection that can also appear as a condition operand or
// as the left-hand side of an update: a plain field, or a raw expression
// addressing storage (array subscript, composite accessor). Computed
// projections are deliberately excluded.
type Assignable interface {
	Projection
	isAssignable()
}

// FieldLike is an assignable that is a literal column or sub-column and can
// report its own resolved field chain. Every FieldLike automatically
// satisfies Assignable and Projection through interface embedding.
type FieldLike interface {
	Assignable
	Chain() schema.FieldChain
}

// -----------------------------------------------------------------------------
// Concrete references
// -----------------------------------------------------------------------------

// Field is a resolved column reference. It is the canonical FieldLike.
type Field struct {
	chain schema.FieldChain
}

// F wraps a resolved field chain as a query reference.
func F(chain schema.FieldChain) Field {
	return Field{chain: chain}
}

// Chain returns the resolved field chain.
func (f Field) Chain() schema.FieldChain { return f.chain }

func (Field) isProjection() {}
func (Field) isAssignable() {}

// Raw is an opaque backend-specific projection. The payload's concrete type
// is defined by the backend's raw-expression representation; this core never
// inspects it.
type Raw struct {
	Payload any
}

func (Raw) isProjection() {}

// RawAssignable is a raw expression the backend guarantees addresses
// storage, so it may be assigned to and compared against.
type RawAssignable struct {
	Payload any
}

func (RawAssignable) isProjection() {}
func (RawAssignable) isAssignable() {}

// Aliased names a projection in the result set. Orderings may refer to
// aliased computed projections; updates may not.
type Aliased struct {
	Expr Projection
	As   string
}

func (Aliased) isProjection() {}

// -----------------------------------------------------------------------------
// Expression nodes
// -----------------------------------------------------------------------------

// Expr is one node of the untyped expression tree used in comparisons and
// update values. The variant set is closed: backend-raw payloads, field
// references, pure literal values, and nested conditions used as scalars.
type Expr interface {
	isExpr()
}

// RawExpr is an opaque backend-specific expression node.
type RawExpr struct {
	Payload any
}

func (RawExpr) isExpr() {}

// FieldExpr references a column through its field chain.
type FieldExpr struct {
	Field FieldLike
}

func (FieldExpr) isExpr() {}

// ValueExpr is a pure literal, expandable to one or more primitive values
// without backend interaction.
type ValueExpr struct {
	Lit codec.Literal
}

func (ValueExpr) isExpr() {}

// CondExpr embeds a boolean condition as a scalar expression, e.g. a
// correlated predicate compared against another boolean.
type CondExpr struct {
	Cond Cond
}

func (CondExpr) isExpr() {}

// Fx lifts a field reference into an expression node.
func Fx(f FieldLike) Expr {
	return FieldExpr{Field: f}
}

// Vx lifts a pure literal into an expression node.
func Vx(lit codec.Literal) Expr {
	return ValueExpr{Lit: lit}
}

// Rx lifts a backend raw payload into an expression node.
func Rx(payload any) Expr {
	return RawExpr{Payload: payload}
}

// Cx lifts a condition into a scalar expression node.
func Cx(c Cond) Expr {
	return CondExpr{Cond: c}
}
