package codec

import (
	"context"

	"github.com/quarrydb/quarry/internal/qerr"
	"github.com/quarrydb/quarry/pkg/primitive"
	"github.com/quarrydb/quarry/pkg/schema"
)

// optional lifts a single-column codec for T into one for *T, with nil
// encoded as Null.
type optional[T any] struct {
	inner SingleColumn[T]
}

// Optional wraps a single-column codec so nil pointers persist as NULL.
//
// The inner codec must never itself encode to Null: a single column's NULL
// cannot distinguish "outer absent" from "inner absent", so such
// compositions are rejected here, at type-construction time, rather than
// surfacing as silent ambiguity during encode.
func Optional[T any](inner SingleColumn[T]) (SingleColumn[*T], error) {
	if inner.EncodesNull() {
		return nil, qerr.New(qerr.ErrNullableNested,
			"cannot wrap a codec that already encodes to null").
			With("codec", inner.StructuralName())
	}
	return &optional[T]{inner: inner}, nil
}

func (o *optional[T]) StructuralName() string { return o.inner.StructuralName() + "?" }

func (o *optional[T]) DbType(desc schema.Descriptor) (schema.DbType, error) {
	t, err := o.inner.DbType(desc)
	if err != nil {
		return nil, err
	}
	p, ok := t.(*schema.PrimitiveType)
	if !ok {
		return nil, qerr.New(qerr.ErrSchemaInvalid,
			"single-column codec must describe a primitive column").
			With("codec", o.inner.StructuralName())
	}
	return p.AsNullable(), nil
}

func (o *optional[T]) Arity() int { return 1 }

// EncodesNull is true by definition: that is the whole point of Optional.
func (o *optional[T]) EncodesNull() bool { return true }

func (o *optional[T]) EncodeValue(v *T) (primitive.Value, error) {
	if v == nil {
		return primitive.Null{}, nil
	}
	return o.inner.EncodeValue(*v)
}

func (o *optional[T]) EncodePure(v *T) ([]primitive.Value, error) {
	pv, err := o.EncodeValue(v)
	if err != nil {
		return nil, err
	}
	return []primitive.Value{pv}, nil
}

func (o *optional[T]) Encode(ctx context.Context, store Store, v *T) ([]primitive.Value, error) {
	return o.EncodePure(v)
}

func (o *optional[T]) Decode(desc schema.Descriptor, vals []primitive.Value) (*T, []primitive.Value, error) {
	if len(vals) < 1 {
		return nil, nil, qerr.New(qerr.ErrDecodeUnderflow, "no primitive value left for column").
			With("codec", o.StructuralName())
	}
	if vals[0].Kind() == primitive.KindNull {
		return nil, vals[1:], nil
	}
	v, rest, err := o.inner.Decode(desc, vals)
	if err != nil {
		return nil, nil, err
	}
	return &v, rest, nil
}
