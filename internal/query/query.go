// Package query translates high-level verbs into parameterized SQL against
// arbitrary tables, driven entirely by runtime schema discovery. Identifiers
// are bracket-quoted; values are always bound, never interpolated.
package query

import (
	"errors"
	"fmt"
)

// ErrNoPrimaryKey is returned when a key-dependent operation is attempted on
// a table that exposes no primary-key column.
var ErrNoPrimaryKey = errors.New("table has no primary key column")

// ErrEmptyUpdate is returned when an update carries no columns after the key
// column is excluded.
var ErrEmptyUpdate = errors.New("no columns to update")

// StorageError wraps any failed statement execution with its verb and table.
// The engine never retries and never partially commits; callers re-issue the
// whole operation if appropriate.
type StorageError struct {
	Verb  string
	Table string
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation failed (%s %q): %v", e.Verb, e.Table, e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }

// Value is a single cell: a string or SQL NULL. Everything is text on the way
// out; the engine does not infer richer types from backend type names.
type Value struct {
	String string
	Valid  bool
}

// Null is the SQL NULL cell.
var Null = Value{}

// NewValue wraps a non-null string value.
func NewValue(s string) Value {
	return Value{String: s, Valid: true}
}

// Row is an ordered mapping from column name to cell value. Keys are exactly
// the owning table's column names at the time of the query. Rows are
// transient; they are never cached across calls.
type Row struct {
	Columns []string
	Values  map[string]Value
}

// Get returns the cell for a column and whether the column is present.
func (r Row) Get(name string) (Value, bool) {
	value, ok := r.Values[name]
	return value, ok
}
