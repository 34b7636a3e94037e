package backend

import (
	"testing"

	"github.com/quarrydb/quarry/pkg/primitive"
)

func TestRowsOfIterates(t *testing.T) {
	rows := RowsOf(
		[]primitive.Value{primitive.Int64(1)},
		[]primitive.Value{primitive.Int64(2)},
	)

	got, err := Collect(rows)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows: got %d, want 2", len(got))
	}
	if !primitive.Equal(got[1][0], primitive.Int64(2)) {
		t.Errorf("row 1: got %v", got[1][0])
	}
}

func TestRowsOfEmpty(t *testing.T) {
	rows := RowsOf()
	if rows.Next() {
		t.Errorf("empty iterator must not advance")
	}
	if err := rows.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
