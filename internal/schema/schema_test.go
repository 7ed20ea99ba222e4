package schema

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/chemstore/chemstore/internal/config"
	"github.com/chemstore/chemstore/internal/db"
)

const (
	listTablesSQL = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = 'main' AND table_type = 'BASE TABLE'`

	primaryKeysSQL = `
SELECT unnest(constraint_column_names) AS column_name
FROM duckdb_constraints()
WHERE table_name = ? AND constraint_type = 'PRIMARY KEY'`

	columnsSQL = `
SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = 'main' AND table_name = ?
ORDER BY ordinal_position`
)

func TestListTablesExcludesReservedPrefix(t *testing.T) {
	catalog, mock := newCatalog(t)

	mock.ExpectQuery(regexp.QuoteMeta(listTablesSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
			AddRow("Chemicals").
			AddRow("duckdb_internal_stats").
			AddRow("SDS"))

	tables, err := catalog.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("tables = %v", tables)
	}
	for _, name := range tables {
		if name == "duckdb_internal_stats" {
			t.Fatal("reserved-prefix table should be excluded")
		}
	}
	assertSQLMock(t, mock)
}

func TestColumnsMarksExactlyPrimaryKeyMembers(t *testing.T) {
	catalog, mock := newCatalog(t)

	mock.ExpectQuery(regexp.QuoteMeta(primaryKeysSQL)).
		WithArgs("Chemicals").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))
	mock.ExpectQuery(regexp.QuoteMeta(columnsSQL)).
		WithArgs("Chemicals").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}).
			AddRow("id", "COUNTER").
			AddRow("name", "TEXT").
			AddRow("cas", "TEXT"))

	columns, err := catalog.Columns(context.Background(), "Chemicals")
	if err != nil {
		t.Fatalf("Columns() error = %v", err)
	}
	if len(columns) != 3 {
		t.Fatalf("columns = %v", columns)
	}
	for _, column := range columns {
		wantPK := column.Name == "id"
		if column.PrimaryKey != wantPK {
			t.Fatalf("column %q PrimaryKey = %v", column.Name, column.PrimaryKey)
		}
	}
	if columns[0].Type != "COUNTER" {
		t.Fatalf("columns[0].Type = %q", columns[0].Type)
	}
	assertSQLMock(t, mock)
}

func TestColumnsAllowsZeroPrimaryKeyColumns(t *testing.T) {
	catalog, mock := newCatalog(t)

	mock.ExpectQuery(regexp.QuoteMeta(primaryKeysSQL)).
		WithArgs("Notes").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}))
	mock.ExpectQuery(regexp.QuoteMeta(columnsSQL)).
		WithArgs("Notes").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}).
			AddRow("body", "TEXT"))

	columns, err := catalog.Columns(context.Background(), "Notes")
	if err != nil {
		t.Fatalf("Columns() error = %v", err)
	}
	if len(columns) != 1 || columns[0].PrimaryKey {
		t.Fatalf("columns = %v", columns)
	}
	assertSQLMock(t, mock)
}

func TestColumnsWrapsIntrospectionFailure(t *testing.T) {
	catalog, mock := newCatalog(t)

	cause := errors.New("catalog unavailable")
	mock.ExpectQuery(regexp.QuoteMeta(primaryKeysSQL)).
		WithArgs("Chemicals").
		WillReturnError(cause)

	_, err := catalog.Columns(context.Background(), "Chemicals")
	if err == nil {
		t.Fatal("expected introspection error")
	}
	var introspectionErr *IntrospectionError
	if !errors.As(err, &introspectionErr) {
		t.Fatalf("error = %T, want *IntrospectionError", err)
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause should be preserved")
	}
	assertSQLMock(t, mock)
}

func TestTableExists(t *testing.T) {
	catalog, mock := newCatalog(t)

	mock.ExpectQuery(regexp.QuoteMeta(listTablesSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("Users"))

	exists, err := catalog.TableExists(context.Background(), "Users")
	if err != nil {
		t.Fatalf("TableExists() error = %v", err)
	}
	if !exists {
		t.Fatal("expected Users to exist")
	}
	assertSQLMock(t, mock)
}

func newCatalog(t *testing.T) (*Catalog, sqlmock.Sqlmock) {
	t.Helper()
	database, mock := newSQLMock(t)
	dialect, err := db.DialectFor(config.BackendDuckDB)
	if err != nil {
		t.Fatalf("DialectFor() error = %v", err)
	}
	handle, err := db.NewWithDB(database, dialect)
	if err != nil {
		t.Fatalf("NewWithDB() error = %v", err)
	}
	return NewCatalog(handle), mock
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	database, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
