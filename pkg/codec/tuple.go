package codec

import (
	"context"

	"github.com/quarrydb/quarry/pkg/primitive"
	"github.com/quarrydb/quarry/pkg/schema"
)

// Pair is a two-element composite value.
type Pair[A, B any] struct {
	First  A
	Second B
}

// pair is a pure multi-column codec built from two pure codecs. Its arity is
// the sum of the component arities and is independent of the input value.
type pair[A, B any] struct {
	a Pure[A]
	b Pure[B]
}

// Tuple2 combines two pure codecs into a pure codec for their pair.
// Typical use is a small embedded composite such as (lat, lon).
func Tuple2[A, B any](a Pure[A], b Pure[B]) Pure[Pair[A, B]] {
	return &pair[A, B]{a: a, b: b}
}

func (p *pair[A, B]) StructuralName() string {
	return "(" + p.a.StructuralName() + ", " + p.b.StructuralName() + ")"
}

func (p *pair[A, B]) DbType(desc schema.Descriptor) (schema.DbType, error) {
	at, err := p.a.DbType(desc)
	if err != nil {
		return nil, err
	}
	bt, err := p.b.DbType(desc)
	if err != nil {
		return nil, err
	}
	return &schema.EmbeddedType{
		Fields: []schema.Field{
			{Name: "first", Type: at},
			{Name: "second", Type: bt},
		},
	}, nil
}

func (p *pair[A, B]) Arity() int {
	return p.a.Arity() + p.b.Arity()
}

func (p *pair[A, B]) EncodePure(v Pair[A, B]) ([]primitive.Value, error) {
	av, err := p.a.EncodePure(v.First)
	if err != nil {
		return nil, err
	}
	bv, err := p.b.EncodePure(v.Second)
	if err != nil {
		return nil, err
	}
	return append(av, bv...), nil
}

func (p *pair[A, B]) Encode(ctx context.Context, store Store, v Pair[A, B]) ([]primitive.Value, error) {
	return p.EncodePure(v)
}

func (p *pair[A, B]) Decode(desc schema.Descriptor, vals []primitive.Value) (Pair[A, B], []primitive.Value, error) {
	var out Pair[A, B]
	a, rest, err := p.a.Decode(desc, vals)
	if err != nil {
		return out, nil, err
	}
	b, rest, err := p.b.Decode(desc, rest)
	if err != nil {
		return out, nil, err
	}
	out.First = a
	out.Second = b
	return out, rest, nil
}
