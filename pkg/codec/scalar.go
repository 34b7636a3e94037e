package codec

import (
	"context"
	"time"

	"github.com/quarrydb/quarry/internal/qerr"
	"github.com/quarrydb/quarry/pkg/primitive"
	"github.com/quarrydb/quarry/pkg/schema"
)

// scalar implements Primitive[T] for a Go type with a one-to-one primitive
// mapping. All built-in scalar codecs are instances of it.
type scalar[T any] struct {
	name   string
	kind   primitive.Kind
	encode func(T) primitive.Value
	decode func(primitive.Value) (T, error)
}

func (s *scalar[T]) StructuralName() string { return s.name }

func (s *scalar[T]) DbType(desc schema.Descriptor) (schema.DbType, error) {
	return schema.Primitive(s.kind), nil
}

func (s *scalar[T]) Arity() int { return 1 }

func (s *scalar[T]) EncodesNull() bool { return false }

func (s *scalar[T]) EncodeValue(v T) (primitive.Value, error) {
	return s.encode(v), nil
}

func (s *scalar[T]) EncodePure(v T) ([]primitive.Value, error) {
	return []primitive.Value{s.encode(v)}, nil
}

func (s *scalar[T]) Encode(ctx context.Context, store Store, v T) ([]primitive.Value, error) {
	return s.EncodePure(v)
}

func (s *scalar[T]) DecodeValue(desc schema.Descriptor, v primitive.Value) (T, error) {
	return s.decode(v)
}

func (s *scalar[T]) Decode(desc schema.Descriptor, vals []primitive.Value) (T, []primitive.Value, error) {
	var zero T
	if len(vals) < 1 {
		return zero, nil, qerr.New(qerr.ErrDecodeUnderflow, "no primitive value left for column").
			With("codec", s.name)
	}
	v, err := s.decode(vals[0])
	if err != nil {
		return zero, nil, err
	}
	return v, vals[1:], nil
}

// shapeError reports a primitive value of the wrong variant for a codec.
func shapeError(name string, want primitive.Kind, got primitive.Value) error {
	return qerr.Newf(qerr.ErrDecodeShape, "expected %s value, got %s", want, got.Kind()).
		With("codec", name)
}

// String is the codec for Go strings.
func String() Primitive[string] {
	return &scalar[string]{
		name: "string",
		kind: primitive.KindString,
		encode: func(v string) primitive.Value {
			return primitive.String(v)
		},
		decode: func(v primitive.Value) (string, error) {
			s, ok := v.(primitive.String)
			if !ok {
				return "", shapeError("string", primitive.KindString, v)
			}
			return string(s), nil
		},
	}
}

// Int64 is the codec for 64-bit integers.
func Int64() Primitive[int64] {
	return &scalar[int64]{
		name: "int64",
		kind: primitive.KindInt64,
		encode: func(v int64) primitive.Value {
			return primitive.Int64(v)
		},
		decode: func(v primitive.Value) (int64, error) {
			n, ok := v.(primitive.Int64)
			if !ok {
				return 0, shapeError("int64", primitive.KindInt64, v)
			}
			return int64(n), nil
		},
	}
}

// Float64 is the codec for 64-bit floats.
func Float64() Primitive[float64] {
	return &scalar[float64]{
		name: "float64",
		kind: primitive.KindDouble,
		encode: func(v float64) primitive.Value {
			return primitive.Double(v)
		},
		decode: func(v primitive.Value) (float64, error) {
			f, ok := v.(primitive.Double)
			if !ok {
				return 0, shapeError("float64", primitive.KindDouble, v)
			}
			return float64(f), nil
		},
	}
}

// Bool is the codec for booleans.
func Bool() Primitive[bool] {
	return &scalar[bool]{
		name: "bool",
		kind: primitive.KindBool,
		encode: func(v bool) primitive.Value {
			return primitive.Bool(v)
		},
		decode: func(v primitive.Value) (bool, error) {
			b, ok := v.(primitive.Bool)
			if !ok {
				return false, shapeError("bool", primitive.KindBool, v)
			}
			return bool(b), nil
		},
	}
}

// Bytes is the codec for byte blobs.
func Bytes() Primitive[[]byte] {
	return &scalar[[]byte]{
		name: "bytes",
		kind: primitive.KindBlob,
		encode: func(v []byte) primitive.Value {
			return primitive.Blob(v)
		},
		decode: func(v primitive.Value) ([]byte, error) {
			b, ok := v.(primitive.Blob)
			if !ok {
				return nil, shapeError("bytes", primitive.KindBlob, v)
			}
			return []byte(b), nil
		},
	}
}

// UTCTime is the codec for absolute instants, stored in UTC.
func UTCTime() Primitive[time.Time] {
	return &scalar[time.Time]{
		name: "utc_time",
		kind: primitive.KindUTCTime,
		encode: func(v time.Time) primitive.Value {
			return primitive.NewUTCTime(v)
		},
		decode: func(v primitive.Value) (time.Time, error) {
			t, ok := v.(primitive.UTCTime)
			if !ok {
				return time.Time{}, shapeError("utc_time", primitive.KindUTCTime, v)
			}
			return t.Time(), nil
		},
	}
}

// ZonedTime is the codec for local timestamps carrying their zone.
func ZonedTime() Primitive[time.Time] {
	return &scalar[time.Time]{
		name: "zoned_time",
		kind: primitive.KindZonedTime,
		encode: func(v time.Time) primitive.Value {
			return primitive.NewZonedTime(v)
		},
		decode: func(v primitive.Value) (time.Time, error) {
			t, ok := v.(primitive.ZonedTime)
			if !ok {
				return time.Time{}, shapeError("zoned_time", primitive.KindZonedTime, v)
			}
			return t.Time(), nil
		},
	}
}

// Date is the codec for calendar dates.
func Date() Primitive[primitive.Date] {
	return &scalar[primitive.Date]{
		name: "date",
		kind: primitive.KindDate,
		encode: func(v primitive.Date) primitive.Value {
			return v
		},
		decode: func(v primitive.Value) (primitive.Date, error) {
			d, ok := v.(primitive.Date)
			if !ok {
				return primitive.Date{}, shapeError("date", primitive.KindDate, v)
			}
			return d, nil
		},
	}
}

// TimeOfDay is the codec for wall-clock times.
func TimeOfDay() Primitive[primitive.TimeOfDay] {
	return &scalar[primitive.TimeOfDay]{
		name: "time_of_day",
		kind: primitive.KindTimeOfDay,
		encode: func(v primitive.TimeOfDay) primitive.Value {
			return v
		},
		decode: func(v primitive.Value) (primitive.TimeOfDay, error) {
			t, ok := v.(primitive.TimeOfDay)
			if !ok {
				return primitive.TimeOfDay{}, shapeError("time_of_day", primitive.KindTimeOfDay, v)
			}
			return t, nil
		},
	}
}
