// Package primitive defines the closed set of backend-neutral values that
// cross the boundary between the typed core and a storage backend.
//
// Every persistable value is encoded into an ordered list of these variants
// before it reaches a driver, and decoded back from them afterwards. Backends
// never see application types, only primitive values.
package primitive

import (
	"bytes"
	"fmt"
	"time"

	"github.com/quarrydb/quarry/internal/qerr"
)

// Kind identifies the variant of a Value.
type Kind int

const (
	// KindNull is the SQL NULL marker.
	KindNull Kind = iota
	// KindString is a text value.
	KindString
	// KindBlob is an opaque byte sequence.
	KindBlob
	// KindInt64 is a 64-bit signed integer.
	KindInt64
	// KindDouble is a 64-bit IEEE float.
	KindDouble
	// KindBool is a boolean.
	KindBool
	// KindDate is a calendar date without time or zone.
	KindDate
	// KindTimeOfDay is a wall-clock time without date or zone.
	KindTimeOfDay
	// KindUTCTime is an absolute instant, always in UTC.
	KindUTCTime
	// KindZonedTime is a local timestamp together with its zone.
	KindZonedTime
	// KindCustom is a raw templated expression with positional substitutions.
	KindCustom
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindBlob:
		return "blob"
	case KindInt64:
		return "int64"
	case KindDouble:
		return "double"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindTimeOfDay:
		return "time_of_day"
	case KindUTCTime:
		return "utc_time"
	case KindZonedTime:
		return "zoned_time"
	case KindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Value is one backend-neutral primitive value. The set of implementations
// in this package is closed; backends switch over Kind and may assume no
// other variants exist.
type Value interface {
	Kind() Kind

	// sealed prevents implementations outside this package.
	sealed()
}

// -----------------------------------------------------------------------------
// Scalar variants
// -----------------------------------------------------------------------------

// Null is the SQL NULL value.
type Null struct{}

// Kind returns KindNull.
func (Null) Kind() Kind { return KindNull }
func (Null) sealed()    {}

// String is a text value.
type String string

// Kind returns KindString.
func (String) Kind() Kind { return KindString }
func (String) sealed()    {}

// Blob is an opaque byte sequence.
type Blob []byte

// Kind returns KindBlob.
func (Blob) Kind() Kind { return KindBlob }
func (Blob) sealed()    {}

// Int64 is a 64-bit signed integer.
type Int64 int64

// Kind returns KindInt64.
func (Int64) Kind() Kind { return KindInt64 }
func (Int64) sealed()    {}

// Double is a 64-bit IEEE float.
type Double float64

// Kind returns KindDouble.
func (Double) Kind() Kind { return KindDouble }
func (Double) sealed()    {}

// Bool is a boolean value.
type Bool bool

// Kind returns KindBool.
func (Bool) Kind() Kind { return KindBool }
func (Bool) sealed()    {}

// -----------------------------------------------------------------------------
// Temporal variants
// -----------------------------------------------------------------------------

// Date is a calendar date without time-of-day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Kind returns KindDate.
func (Date) Kind() Kind { return KindDate }
func (Date) sealed()    {}

// String formats the date as ISO 8601 (YYYY-MM-DD).
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// DateOf extracts the date components of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// TimeOfDay is a wall-clock time without date or zone.
type TimeOfDay struct {
	Hour       int
	Minute     int
	Second     int
	Nanosecond int
}

// Kind returns KindTimeOfDay.
func (TimeOfDay) Kind() Kind { return KindTimeOfDay }
func (TimeOfDay) sealed()    {}

// String formats the time as HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// nanos returns the time of day as nanoseconds since midnight.
func (t TimeOfDay) nanos() int64 {
	return ((int64(t.Hour)*60+int64(t.Minute))*60+int64(t.Second))*1e9 + int64(t.Nanosecond)
}

// UTCTime is an absolute instant. The constructor normalizes to UTC so two
// UTCTime values representing the same instant are always identical.
type UTCTime time.Time

// Kind returns KindUTCTime.
func (UTCTime) Kind() Kind { return KindUTCTime }
func (UTCTime) sealed()    {}

// NewUTCTime converts t to UTC and wraps it.
func NewUTCTime(t time.Time) UTCTime {
	return UTCTime(t.UTC())
}

// Time returns the underlying time.Time in UTC.
func (t UTCTime) Time() time.Time {
	return time.Time(t).UTC()
}

// ZonedTime is a local timestamp paired with its zone.
//
// Equality is defined on the local representation: two zoned times are equal
// only when their local clock fields and zone offsets match. Ordering is
// defined on the absolute UTC instant. The two deliberately disagree:
// 10:00+02:00 and 09:00+01:00 are the same instant (ordering says equal) but
// different local representations (equality says not equal).
type ZonedTime time.Time

// Kind returns KindZonedTime.
func (ZonedTime) Kind() Kind { return KindZonedTime }
func (ZonedTime) sealed()    {}

// NewZonedTime wraps t, keeping its location.
func NewZonedTime(t time.Time) ZonedTime {
	return ZonedTime(t)
}

// Time returns the underlying time.Time with its original location.
func (t ZonedTime) Time() time.Time {
	return time.Time(t)
}

// localEqual reports whether the local clock fields and zone offset match.
func (t ZonedTime) localEqual(o ZonedTime) bool {
	a, b := time.Time(t), time.Time(o)
	_, aOff := a.Zone()
	_, bOff := b.Zone()
	if aOff != bOff {
		return false
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by || am != bm || ad != bd {
		return false
	}
	ah, ami, as := a.Clock()
	bh, bmi, bs := b.Clock()
	return ah == bh && ami == bmi && as == bs && a.Nanosecond() == b.Nanosecond()
}

// -----------------------------------------------------------------------------
// Custom - raw expression escape hatch
// -----------------------------------------------------------------------------

// Custom carries a raw backend-native expression template plus a flat list of
// primitive values substituted positionally. A Custom value may never appear
// in another Custom's substitution list; NewCustom enforces this so the
// invariant holds everywhere instead of being re-checked recursively.
type Custom struct {
	template string
	args     []Value
}

// Kind returns KindCustom.
func (Custom) Kind() Kind { return KindCustom }
func (Custom) sealed()    {}

// NewCustom builds a Custom expression value. It fails if any substitution
// value is itself a Custom.
func NewCustom(template string, args ...Value) (Custom, error) {
	for i, a := range args {
		if a != nil && a.Kind() == KindCustom {
			return Custom{}, qerr.New(qerr.ErrCustomNested,
				"custom expression cannot substitute another custom expression").
				With("position", i).
				With("template", template)
		}
	}
	return Custom{template: template, args: append([]Value(nil), args...)}, nil
}

// Template returns the raw expression template.
func (c Custom) Template() string { return c.template }

// Args returns a copy of the positional substitution values.
func (c Custom) Args() []Value {
	return append([]Value(nil), c.args...)
}

// -----------------------------------------------------------------------------
// Equality and ordering
// -----------------------------------------------------------------------------

// Equal reports structural equality between two primitive values.
// Values of different kinds are never equal. ZonedTime compares the local
// representation, not the instant.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Null:
		return true
	case String:
		return av == b.(String)
	case Blob:
		return bytes.Equal(av, b.(Blob))
	case Int64:
		return av == b.(Int64)
	case Double:
		return av == b.(Double)
	case Bool:
		return av == b.(Bool)
	case Date:
		return av == b.(Date)
	case TimeOfDay:
		return av == b.(TimeOfDay)
	case UTCTime:
		return av.Time().Equal(b.(UTCTime).Time())
	case ZonedTime:
		return av.localEqual(b.(ZonedTime))
	case Custom:
		bv := b.(Custom)
		if av.template != bv.template || len(av.args) != len(bv.args) {
			return false
		}
		for i := range av.args {
			if !Equal(av.args[i], bv.args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare orders two primitive values of the same kind. It returns a
// negative, zero, or positive result like bytes.Compare. ZonedTime compares
// the absolute UTC instant, so two values Compare equal even when Equal says
// they differ. Null and Custom values do not have an ordering.
func Compare(a, b Value) (int, error) {
	if a == nil || b == nil {
		return 0, qerr.New(qerr.ErrDecodeShape, "cannot order nil primitive value")
	}
	if a.Kind() != b.Kind() {
		return 0, qerr.Newf(qerr.ErrDecodeShape,
			"cannot order %s against %s", a.Kind(), b.Kind())
	}
	switch av := a.(type) {
	case String:
		return cmpOrdered(string(av), string(b.(String))), nil
	case Blob:
		return bytes.Compare(av, b.(Blob)), nil
	case Int64:
		return cmpOrdered(int64(av), int64(b.(Int64))), nil
	case Double:
		return cmpOrdered(float64(av), float64(b.(Double))), nil
	case Bool:
		return cmpBool(bool(av), bool(b.(Bool))), nil
	case Date:
		bv := b.(Date)
		if c := cmpOrdered(av.Year, bv.Year); c != 0 {
			return c, nil
		}
		if c := cmpOrdered(int(av.Month), int(bv.Month)); c != 0 {
			return c, nil
		}
		return cmpOrdered(av.Day, bv.Day), nil
	case TimeOfDay:
		return cmpOrdered(av.nanos(), b.(TimeOfDay).nanos()), nil
	case UTCTime:
		return av.Time().Compare(b.(UTCTime).Time()), nil
	case ZonedTime:
		// Ordering is on the absolute instant, not the local representation.
		return av.Time().Compare(b.(ZonedTime).Time()), nil
	default:
		return 0, qerr.Newf(qerr.ErrDecodeShape, "%s values have no ordering", a.Kind())
	}
}

func cmpOrdered[T interface {
	~int | ~int64 | ~float64 | ~string
}](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
