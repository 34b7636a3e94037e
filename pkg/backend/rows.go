package backend

import "github.com/quarrydb/quarry/pkg/primitive"

// Rows is a pull iterator over result rows, mirroring database/sql: call
// Next until it returns false, read each row with Values, then check Err.
// Close is idempotent and must be called when done.
type Rows interface {
	// Next advances to the next row.
	Next() bool

	// Values returns the current row as primitive values.
	Values() ([]primitive.Value, error)

	// Err returns the error that terminated iteration, if any.
	Err() error

	// Close releases the underlying cursor.
	Close() error
}

// sliceRows adapts pre-materialized rows to the Rows interface.
type sliceRows struct {
	rows [][]primitive.Value
	pos  int
}

// RowsOf wraps materialized rows as a Rows iterator. Backends use it for
// results they compute in memory; tests use it as a stub.
func RowsOf(rows ...[]primitive.Value) Rows {
	return &sliceRows{rows: rows, pos: -1}
}

func (r *sliceRows) Next() bool {
	if r.pos+1 >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *sliceRows) Values() ([]primitive.Value, error) {
	return r.rows[r.pos], nil
}

func (r *sliceRows) Err() error   { return nil }
func (r *sliceRows) Close() error { return nil }

// Collect drains an iterator into a slice and closes it.
func Collect(rows Rows) ([][]primitive.Value, error) {
	defer rows.Close()
	var out [][]primitive.Value
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
