// Package codec defines the contract connecting typed application values to
// the backend-neutral primitive representation.
//
// Every persistable type provides a codec. Codecs come in increasing
// strength: the base contract may perform nested backend operations while
// encoding; Pure codecs are structural with a fixed arity; SingleColumn
// codecs always produce exactly one value; Primitive codecs are additionally
// losslessly invertible without any context beyond the backend descriptor.
// A type should implement the strongest capability it qualifies for — weaker
// capabilities forbid optimizations such as inlining a value as a scalar
// literal in a condition.
package codec

import (
	"context"

	"github.com/quarrydb/quarry/pkg/primitive"
	"github.com/quarrydb/quarry/pkg/schema"
)

// Store is the narrow backend capability available to codecs that encode
// relational values: inserting a related row and substituting its key.
// Pure codecs never touch it.
type Store interface {
	// InsertRelated stores a related row for the given entity and returns
	// the primitive form of its key.
	InsertRelated(ctx context.Context, entity *schema.Entity, values []primitive.Value) (primitive.Value, error)
}

// Codec is the base contract every persistable type satisfies.
type Codec[T any] interface {
	// StructuralName is the pure structural name used for schema and
	// column naming. It must not depend on any backend.
	StructuralName() string

	// DbType returns the type descriptor for the given backend.
	DbType(desc schema.Descriptor) (schema.DbType, error)

	// Encode produces the ordered primitive representation of v. Complex
	// relational codecs may perform nested operations through store;
	// structural codecs ignore it.
	Encode(ctx context.Context, store Store, v T) ([]primitive.Value, error)

	// Decode consumes a positional prefix of vals and returns the decoded
	// value together with the unconsumed remainder. Running out of values
	// is a hard corrupted-row error, never silently padded.
	Decode(desc schema.Descriptor, vals []primitive.Value) (T, []primitive.Value, error)
}

// Pure is a codec with a fixed arity and no backend interaction: encoding is
// purely structural and decoding consumes exactly Arity values.
type Pure[T any] interface {
	Codec[T]

	// Arity is the fixed number of primitive values this codec produces
	// and consumes, regardless of the input value.
	Arity() int

	// EncodePure encodes without backend access.
	EncodePure(v T) ([]primitive.Value, error)
}

// SingleColumn is a pure codec whose arity is exactly one.
type SingleColumn[T any] interface {
	Pure[T]

	// EncodeValue encodes to the single primitive value.
	EncodeValue(v T) (primitive.Value, error)

	// EncodesNull reports whether some input encodes to Null. Optional
	// wrappers rely on this to reject ambiguous nullable-of-nullable
	// compositions at construction time.
	EncodesNull() bool
}

// Primitive is a single-column codec that is losslessly invertible with no
// context beyond the backend descriptor. Only primitive-capable values may
// be inlined as scalar literals in conditions without a backend round trip.
type Primitive[T any] interface {
	SingleColumn[T]

	// DecodeValue inverts EncodeValue.
	DecodeValue(desc schema.Descriptor, v primitive.Value) (T, error)
}
