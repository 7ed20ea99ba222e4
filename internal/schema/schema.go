// Package schema answers "what tables exist" and "what are this table's
// columns" through live introspection of the backing store. Descriptors are
// snapshots; they can go stale if the schema changes concurrently, and
// callers re-query rather than rely on invalidation.
package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/chemstore/chemstore/internal/db"
)

// ColumnDescriptor is an immutable snapshot of one column's metadata.
type ColumnDescriptor struct {
	Name string
	// Type is the backend-reported SQL type name, e.g. "VARCHAR".
	Type string
	// PrimaryKey marks membership in the table's primary key.
	PrimaryKey bool
}

// IntrospectionError wraps a failed catalog query with its context.
type IntrospectionError struct {
	Op    string
	Table string
	Cause error
}

func (e *IntrospectionError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("schema introspection failed (%s): %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("schema introspection failed (%s %q): %v", e.Op, e.Table, e.Cause)
}

func (e *IntrospectionError) Unwrap() error { return e.Cause }

type Catalog struct {
	handle *db.Handle
}

func NewCatalog(handle *db.Handle) *Catalog {
	return &Catalog{handle: handle}
}

// ListTables returns every user-visible table, excluding names that carry the
// backing engine's reserved catalog prefix. Order is whatever the backend
// returns.
func (c *Catalog) ListTables(ctx context.Context) ([]string, error) {
	conn, err := c.handle.Conn(ctx)
	if err != nil {
		return nil, err
	}
	dialect := c.handle.Dialect()

	c.handle.Lock()
	defer c.handle.Unlock()

	rows, err := conn.QueryContext(ctx, dialect.ListTablesQuery())
	if err != nil {
		return nil, &IntrospectionError{Op: "list tables", Cause: err}
	}
	defer func() { _ = rows.Close() }()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &IntrospectionError{Op: "list tables", Cause: err}
		}
		if strings.HasPrefix(name, dialect.ReservedPrefix()) {
			continue
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, &IntrospectionError{Op: "list tables", Cause: err}
	}
	return tables, nil
}

// Columns returns descriptors for every column of the table. Primary-key
// membership is resolved first, then each enumerated column is marked against
// that set. A table with zero primary-key columns is valid here; only
// key-dependent operations reject it later.
func (c *Catalog) Columns(ctx context.Context, table string) ([]ColumnDescriptor, error) {
	conn, err := c.handle.Conn(ctx)
	if err != nil {
		return nil, err
	}
	dialect := c.handle.Dialect()

	c.handle.Lock()
	defer c.handle.Unlock()

	primaryKeys := map[string]struct{}{}
	pkRows, err := conn.QueryContext(ctx, dialect.Rebind(dialect.PrimaryKeysQuery()), table)
	if err != nil {
		return nil, &IntrospectionError{Op: "primary keys", Table: table, Cause: err}
	}
	for pkRows.Next() {
		var name string
		if err := pkRows.Scan(&name); err != nil {
			_ = pkRows.Close()
			return nil, &IntrospectionError{Op: "primary keys", Table: table, Cause: err}
		}
		primaryKeys[name] = struct{}{}
	}
	if err := pkRows.Err(); err != nil {
		_ = pkRows.Close()
		return nil, &IntrospectionError{Op: "primary keys", Table: table, Cause: err}
	}
	_ = pkRows.Close()

	colRows, err := conn.QueryContext(ctx, dialect.Rebind(dialect.ColumnsQuery()), table)
	if err != nil {
		return nil, &IntrospectionError{Op: "columns", Table: table, Cause: err}
	}
	defer func() { _ = colRows.Close() }()

	columns := make([]ColumnDescriptor, 0)
	for colRows.Next() {
		var name, typeName string
		if err := colRows.Scan(&name, &typeName); err != nil {
			return nil, &IntrospectionError{Op: "columns", Table: table, Cause: err}
		}
		_, isPK := primaryKeys[name]
		columns = append(columns, ColumnDescriptor{Name: name, Type: typeName, PrimaryKey: isPK})
	}
	if err := colRows.Err(); err != nil {
		return nil, &IntrospectionError{Op: "columns", Table: table, Cause: err}
	}
	return columns, nil
}

// TableExists probes the table list for an exact name match.
func (c *Catalog) TableExists(ctx context.Context, table string) (bool, error) {
	tables, err := c.ListTables(ctx)
	if err != nil {
		return false, err
	}
	for _, name := range tables {
		if name == table {
			return true, nil
		}
	}
	return false, nil
}
