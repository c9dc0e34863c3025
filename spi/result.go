package spi

import (
	"iter"

	"github.com/canonical/microspi/internal/db"
	"github.com/canonical/microspi/spi/types"
)

// ResultSet is an immutable view over the tuples returned by a statement.
// It is only readable while the frame that produced it is open.
type ResultSet struct {
	frame     *Frame
	columns   []string
	types     []types.Oid
	rows      [][]types.Datum
	processed int64
}

func newResultSet(frame *Frame, table *db.TupleTable) *ResultSet {
	return &ResultSet{
		frame:     frame,
		columns:   table.Columns,
		types:     table.Types,
		rows:      table.Rows,
		processed: table.Processed,
	}
}

// Err returns ErrResultSetInvalidated once the producing frame has closed.
func (r *ResultSet) Err() error {
	if r.frame.closed {
		return ErrResultSetInvalidated
	}

	return nil
}

// Columns returns the column names.
func (r *ResultSet) Columns() []string {
	return r.columns
}

// Types returns the column type identifiers.
func (r *ResultSet) Types() []types.Oid {
	return r.types
}

// Len returns the number of rows in the set.
func (r *ResultSet) Len() int {
	return len(r.rows)
}

// Processed returns the number of rows the statement processed.
func (r *ResultSet) Processed() int64 {
	return r.processed
}

// First returns the first row. An empty set yields a row whose columns all read as NULL.
func (r *ResultSet) First() Row {
	return r.Row(0)
}

// Row returns the row at the 0-based position i, or an empty row if there is none.
func (r *ResultSet) Row(i int) Row {
	if i < 0 || i >= len(r.rows) {
		return Row{set: r}
	}

	return Row{set: r, values: r.rows[i], present: true}
}

// All iterates over the rows with their 0-based positions.
func (r *ResultSet) All() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		for i := range r.rows {
			if !yield(i, r.Row(i)) {
				return
			}
		}
	}
}

// Row is a 1-indexed sequence of typed values.
type Row struct {
	set     *ResultSet
	values  []types.Datum
	present bool
}

// Len returns the number of columns in the row.
func (r Row) Len() int {
	return len(r.values)
}

// IsEmpty returns whether the row stands in for a missing tuple.
func (r Row) IsEmpty() bool {
	return !r.present
}

// Datum returns the raw value of the 1-indexed column.
func (r Row) Datum(index int) (types.Datum, error) {
	err := r.valid()
	if err != nil {
		return types.Datum{}, err
	}

	if !r.present {
		return types.NullDatum(types.UnknownOID), nil
	}

	if index < 1 || index > len(r.values) {
		return types.Datum{}, &DecodeError{
			Column: index,
			Oid:    types.InvalidOID,
			Target: "datum",
			Reason: "column index out of range",
		}
	}

	return r.values[index-1], nil
}

// slot returns the 1-indexed column for positional reads, where a missing column reads as NULL.
func (r Row) slot(index int) (types.Datum, error) {
	err := r.valid()
	if err != nil {
		return types.Datum{}, err
	}

	if index > len(r.values) {
		return types.NullDatum(types.UnknownOID), nil
	}

	return r.values[index-1], nil
}

func (r Row) valid() error {
	if r.set == nil {
		return nil
	}

	return r.set.Err()
}
