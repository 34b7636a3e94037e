package codec

import (
	"github.com/quarrydb/quarry/pkg/primitive"
)

// Literal is a type-erased pure value: an application value bundled with its
// pure codec so query machinery can expand it to primitive literals without
// knowing the value's type and without backend interaction.
type Literal interface {
	// StructuralName is the bundled codec's structural name.
	StructuralName() string

	// Arity is the number of primitive values the literal expands to.
	Arity() int

	// Values expands the literal.
	Values() ([]primitive.Value, error)
}

// ScalarLiteral is a Literal backed by a primitive-capable codec. Only
// scalar literals may be inlined directly into conditions, because only the
// primitive capability guarantees a lossless single-value form.
type ScalarLiteral interface {
	Literal

	// Value expands to the single primitive value.
	Value() (primitive.Value, error)
}

type pureLit[T any] struct {
	c Pure[T]
	v T
}

func (l pureLit[T]) StructuralName() string             { return l.c.StructuralName() }
func (l pureLit[T]) Arity() int                         { return l.c.Arity() }
func (l pureLit[T]) Values() ([]primitive.Value, error) { return l.c.EncodePure(l.v) }

// Lit erases a pure codec and value into a Literal.
func Lit[T any](c Pure[T], v T) Literal {
	return pureLit[T]{c: c, v: v}
}

type scalarLit[T any] struct {
	c Primitive[T]
	v T
}

func (l scalarLit[T]) StructuralName() string             { return l.c.StructuralName() }
func (l scalarLit[T]) Arity() int                         { return 1 }
func (l scalarLit[T]) Values() ([]primitive.Value, error) { return l.c.EncodePure(l.v) }
func (l scalarLit[T]) Value() (primitive.Value, error)    { return l.c.EncodeValue(l.v) }

// Scalar erases a primitive-capable codec and value into a ScalarLiteral.
func Scalar[T any](c Primitive[T], v T) ScalarLiteral {
	return scalarLit[T]{c: c, v: v}
}
