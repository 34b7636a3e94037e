package primitive

import (
	"testing"
	"time"

	"github.com/quarrydb/quarry/internal/qerr"
)

func TestEqualScalars(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"null equals null", Null{}, Null{}, true},
		{"string equal", String("a"), String("a"), true},
		{"string not equal", String("a"), String("b"), false},
		{"int equal", Int64(7), Int64(7), true},
		{"bool not equal", Bool(true), Bool(false), false},
		{"blob equal", Blob{1, 2}, Blob{1, 2}, true},
		{"blob not equal", Blob{1, 2}, Blob{1, 3}, false},
		{"kind mismatch", String("1"), Int64(1), false},
		{"date equal", Date{2024, time.March, 5}, Date{2024, time.March, 5}, true},
		{"time of day not equal", TimeOfDay{Hour: 9}, TimeOfDay{Hour: 10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestZonedTimeEqualityUsesLocalRepresentation(t *testing.T) {
	plus2 := time.FixedZone("+02:00", 2*3600)
	plus1 := time.FixedZone("+01:00", 1*3600)

	// Same instant, different local representation.
	a := NewZonedTime(time.Date(2024, 6, 1, 10, 0, 0, 0, plus2))
	b := NewZonedTime(time.Date(2024, 6, 1, 9, 0, 0, 0, plus1))

	if Equal(a, b) {
		t.Errorf("zoned times with different local representations must not be equal")
	}

	c, err := Compare(a, b)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if c != 0 {
		t.Errorf("ordering compares UTC instants: got %d, want 0", c)
	}
}

func TestZonedTimeEqualSameRepresentation(t *testing.T) {
	plus2 := time.FixedZone("+02:00", 2*3600)

	a := NewZonedTime(time.Date(2024, 6, 1, 10, 0, 0, 0, plus2))
	b := NewZonedTime(time.Date(2024, 6, 1, 10, 0, 0, 0, plus2))

	if !Equal(a, b) {
		t.Errorf("identical local representation and zone must be equal")
	}
}

func TestZonedTimeOrdering(t *testing.T) {
	plus1 := time.FixedZone("+01:00", 1*3600)

	early := NewZonedTime(time.Date(2024, 6, 1, 9, 0, 0, 0, plus1))
	late := NewZonedTime(time.Date(2024, 6, 1, 11, 0, 0, 0, plus1))

	c, err := Compare(early, late)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if c >= 0 {
		t.Errorf("expected early < late, got %d", c)
	}
}

func TestUTCTimeNormalized(t *testing.T) {
	plus3 := time.FixedZone("+03:00", 3*3600)
	a := NewUTCTime(time.Date(2024, 6, 1, 12, 0, 0, 0, plus3))
	b := NewUTCTime(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))

	if !Equal(a, b) {
		t.Errorf("utc times representing the same instant must be equal")
	}
}

func TestNewCustomRejectsNestedCustom(t *testing.T) {
	inner, err := NewCustom("lower(?)", String("ABC"))
	if err != nil {
		t.Fatalf("NewCustom(inner): %v", err)
	}

	_, err = NewCustom("upper(?)", inner)
	if err == nil {
		t.Fatalf("expected nesting error")
	}
	if !qerr.Is(err, qerr.ErrCustomNested) {
		t.Errorf("wrong code: got %v", qerr.GetErrorCode(err))
	}
}

func TestNewCustomAllowsScalarArgs(t *testing.T) {
	c, err := NewCustom("coalesce(?, ?)", String("x"), Null{})
	if err != nil {
		t.Fatalf("NewCustom: %v", err)
	}
	if c.Template() != "coalesce(?, ?)" {
		t.Errorf("template: got %q", c.Template())
	}
	if len(c.Args()) != 2 {
		t.Errorf("args: got %d, want 2", len(c.Args()))
	}
}

func TestCompareKindMismatch(t *testing.T) {
	if _, err := Compare(String("a"), Int64(1)); err == nil {
		t.Errorf("expected error for kind mismatch")
	}
}

func TestCompareCustomHasNoOrdering(t *testing.T) {
	a, _ := NewCustom("now()")
	b, _ := NewCustom("now()")
	if _, err := Compare(a, b); err == nil {
		t.Errorf("custom values must not be orderable")
	}
}

func TestDateOrdering(t *testing.T) {
	tests := []struct {
		name string
		a, b Date
		want int
	}{
		{"same", Date{2024, 3, 5}, Date{2024, 3, 5}, 0},
		{"year", Date{2023, 12, 31}, Date{2024, 1, 1}, -1},
		{"month", Date{2024, 5, 1}, Date{2024, 3, 20}, 1},
		{"day", Date{2024, 3, 4}, Date{2024, 3, 5}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.a, tt.b)
			if err != nil {
				t.Fatalf("Compare: %v", err)
			}
			if got != tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
