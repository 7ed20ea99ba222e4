package query

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/chemstore/chemstore/internal/db"
	"github.com/chemstore/chemstore/internal/observability"
	"github.com/chemstore/chemstore/internal/schema"
)

type Engine struct {
	handle  *db.Handle
	catalog *schema.Catalog
}

func NewEngine(handle *db.Handle, catalog *schema.Catalog) *Engine {
	return &Engine{handle: handle, catalog: catalog}
}

func (e *Engine) quote(name string) string {
	return e.handle.Dialect().QuoteIdentifier(name)
}

// SelectAll returns every row of the table. Row keys are the table's column
// names as reported by the catalog; cells are text or NULL.
func (e *Engine) SelectAll(ctx context.Context, table string) ([]Row, error) {
	start := time.Now()
	rows, err := e.runSelect(ctx, table, "", nil)
	observeVerb("select_all", table, start, err)
	return rows, err
}

// Search returns the rows of the table where any character-like column
// contains text as a substring. A table with no character-like columns yields
// an empty result without issuing a query. Case sensitivity of the match is
// backend-dependent.
func (e *Engine) Search(ctx context.Context, table, text string) ([]Row, error) {
	start := time.Now()

	columns, err := e.catalog.Columns(ctx, table)
	if err != nil {
		observeVerb("search", table, start, err)
		return nil, err
	}

	textColumns := make([]string, 0, len(columns))
	for _, column := range columns {
		if isTextLike(column.Type) {
			textColumns = append(textColumns, column.Name)
		}
	}
	if len(textColumns) == 0 {
		observeVerb("search", table, start, nil)
		return []Row{}, nil
	}

	predicates := make([]string, 0, len(textColumns))
	for _, name := range textColumns {
		predicates = append(predicates, e.quote(name)+" LIKE ?")
	}
	where := " WHERE " + strings.Join(predicates, " OR ")

	pattern := "%" + text + "%"
	args := make([]any, len(textColumns))
	for i := range args {
		args[i] = pattern
	}

	rows, err := e.selectInto(ctx, table, columns, where, args)
	observeVerb("search", table, start, err)
	return rows, err
}

// UpdateRow updates the single row identified by keyValue. The table's first
// primary-key column identifies the row; multi-column primary keys are not
// supported, only the first discovered key column is used. The key column is
// excluded from the SET clause even if present in values.
func (e *Engine) UpdateRow(ctx context.Context, table string, values map[string]Value, keyValue string) error {
	start := time.Now()
	err := e.updateRow(ctx, table, values, keyValue)
	observeVerb("update_row", table, start, err)
	return err
}

func (e *Engine) updateRow(ctx context.Context, table string, values map[string]Value, keyValue string) error {
	columns, err := e.catalog.Columns(ctx, table)
	if err != nil {
		return err
	}

	var key *schema.ColumnDescriptor
	for i := range columns {
		if columns[i].PrimaryKey {
			key = &columns[i]
			break
		}
	}
	if key == nil {
		return fmt.Errorf("%w: table %q", ErrNoPrimaryKey, table)
	}

	setColumns := sortedKeys(values)
	filtered := setColumns[:0]
	for _, name := range setColumns {
		if name != key.Name {
			filtered = append(filtered, name)
		}
	}
	if len(filtered) == 0 {
		return fmt.Errorf("%w: table %q", ErrEmptyUpdate, table)
	}

	assignments := make([]string, 0, len(filtered))
	args := make([]any, 0, len(filtered)+1)
	for _, name := range filtered {
		assignments = append(assignments, e.quote(name)+"=?")
		args = append(args, bindValue(values[name]))
	}
	args = append(args, keyValue)

	statement := "UPDATE " + e.quote(table) +
		" SET " + strings.Join(assignments, ", ") +
		" WHERE " + e.quote(key.Name) + "=?"

	return e.exec(ctx, "update", table, statement, args)
}

// InsertRow inserts a single row over exactly the columns present in values.
// An empty values map is a no-op. A NULL cell is bound as a textual NULL
// rather than omitted. No generated-key retrieval is provided.
func (e *Engine) InsertRow(ctx context.Context, table string, values map[string]Value) error {
	if len(values) == 0 {
		return nil
	}
	start := time.Now()

	names := sortedKeys(values)
	quoted := make([]string, 0, len(names))
	marks := make([]string, 0, len(names))
	args := make([]any, 0, len(names))
	for _, name := range names {
		quoted = append(quoted, e.quote(name))
		marks = append(marks, "?")
		args = append(args, bindValue(values[name]))
	}

	statement := "INSERT INTO " + e.quote(table) +
		" (" + strings.Join(quoted, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"

	err := e.exec(ctx, "insert", table, statement, args)
	observeVerb("insert_row", table, start, err)
	return err
}

func (e *Engine) runSelect(ctx context.Context, table, where string, args []any) ([]Row, error) {
	columns, err := e.catalog.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	return e.selectInto(ctx, table, columns, where, args)
}

func (e *Engine) selectInto(ctx context.Context, table string, columns []schema.ColumnDescriptor, where string, args []any) ([]Row, error) {
	conn, err := e.handle.Conn(ctx)
	if err != nil {
		return nil, err
	}
	statement := e.handle.Dialect().Rebind("SELECT * FROM " + e.quote(table) + where)

	e.handle.Lock()
	defer e.handle.Unlock()

	rows, err := conn.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, &StorageError{Verb: "select", Table: table, Cause: err}
	}
	defer func() { _ = rows.Close() }()

	resultColumns, err := rows.Columns()
	if err != nil {
		return nil, &StorageError{Verb: "select", Table: table, Cause: err}
	}

	names := make([]string, 0, len(columns))
	for _, column := range columns {
		names = append(names, column.Name)
	}

	results := make([]Row, 0)
	for rows.Next() {
		cells := make([]sql.NullString, len(resultColumns))
		targets := make([]any, len(resultColumns))
		for i := range cells {
			targets[i] = &cells[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, &StorageError{Verb: "select", Table: table, Cause: err}
		}

		scanned := make(map[string]Value, len(resultColumns))
		for i, name := range resultColumns {
			scanned[name] = Value{String: cells[i].String, Valid: cells[i].Valid}
		}

		row := Row{Columns: names, Values: make(map[string]Value, len(names))}
		for _, name := range names {
			row.Values[name] = scanned[name]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Verb: "select", Table: table, Cause: err}
	}
	return results, nil
}

func (e *Engine) exec(ctx context.Context, verb, table, statement string, args []any) error {
	conn, err := e.handle.Conn(ctx)
	if err != nil {
		return err
	}
	rebound := e.handle.Dialect().Rebind(statement)

	e.handle.Lock()
	defer e.handle.Unlock()

	if _, err := conn.ExecContext(ctx, rebound, args...); err != nil {
		return &StorageError{Verb: verb, Table: table, Cause: err}
	}
	return nil
}

// isTextLike reports whether a backend type name indicates character-like
// storage. Matches the same CHAR/TEXT/MEMO substrings the search verb has
// always used, case-insensitively.
func isTextLike(typeName string) bool {
	upper := strings.ToUpper(typeName)
	return strings.Contains(upper, "CHAR") ||
		strings.Contains(upper, "TEXT") ||
		strings.Contains(upper, "MEMO")
}

// bindValue turns a cell into its driver argument. NULL binds as a generic
// textual NULL so drivers without type inference on nil accept it.
func bindValue(value Value) any {
	return sql.NullString{String: value.String, Valid: value.Valid}
}

func sortedKeys(values map[string]Value) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func observeVerb(verb, table string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.ObserveStoreOperation(verb, table, status, time.Since(start))
}
