//go:build integration

package query

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/chemstore/chemstore/internal/config"
	"github.com/chemstore/chemstore/internal/db"
	"github.com/chemstore/chemstore/internal/schema"
)

// Exercises the generated SQL against an embedded database instead of a
// statement mock: the full insert, select, search, update round trip over a
// freshly created table.
func TestEngineRoundTripDuckDB(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	handle, err := db.New(config.DatabaseConfig{
		Backend: config.BackendDuckDB,
		Path:    filepath.Join(t.TempDir(), "roundtrip.db"),
	})
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { _ = handle.Close() })

	conn, err := handle.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn() error = %v", err)
	}
	if _, err := conn.ExecContext(ctx, `CREATE TABLE Chemicals (id INTEGER PRIMARY KEY, name VARCHAR, cas VARCHAR)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	catalog := schema.NewCatalog(handle)
	engine := NewEngine(handle, catalog)

	tables, err := catalog.ListTables(ctx)
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}
	if len(tables) != 1 || tables[0] != "Chemicals" {
		t.Fatalf("tables = %v", tables)
	}

	columns, err := catalog.Columns(ctx, "Chemicals")
	if err != nil {
		t.Fatalf("Columns() error = %v", err)
	}
	if len(columns) != 3 || columns[0].Name != "id" || !columns[0].PrimaryKey {
		t.Fatalf("columns = %+v", columns)
	}

	if err := engine.InsertRow(ctx, "Chemicals", map[string]Value{
		"id":   NewValue("1"),
		"name": NewValue("Acetone"),
		"cas":  NewValue("67-64-1"),
	}); err != nil {
		t.Fatalf("InsertRow() error = %v", err)
	}
	if err := engine.InsertRow(ctx, "Chemicals", map[string]Value{
		"id":   NewValue("2"),
		"name": NewValue("Benzene"),
		"cas":  Null,
	}); err != nil {
		t.Fatalf("InsertRow() error = %v", err)
	}

	rows, err := engine.SelectAll(ctx, "Chemicals")
	if err != nil {
		t.Fatalf("SelectAll() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("SelectAll() returned %d rows", len(rows))
	}
	byID := map[string]Row{}
	for _, row := range rows {
		id, _ := row.Get("id")
		byID[id.String] = row
	}
	if cell, _ := byID["1"].Get("name"); cell.String != "Acetone" {
		t.Fatalf("row 1 name = %+v", cell)
	}
	if cell, _ := byID["2"].Get("cas"); cell.Valid {
		t.Fatalf("row 2 cas = %+v, want NULL", cell)
	}

	found, err := engine.Search(ctx, "Chemicals", "ceto")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("Search() returned %d rows", len(found))
	}
	if cell, _ := found[0].Get("name"); cell.String != "Acetone" {
		t.Fatalf("search hit = %+v", found[0].Values)
	}

	if err := engine.UpdateRow(ctx, "Chemicals", map[string]Value{
		"name": NewValue("Propanone"),
	}, "1"); err != nil {
		t.Fatalf("UpdateRow() error = %v", err)
	}
	rows, err = engine.SelectAll(ctx, "Chemicals")
	if err != nil {
		t.Fatalf("SelectAll() error = %v", err)
	}
	for _, row := range rows {
		id, _ := row.Get("id")
		if id.String != "1" {
			continue
		}
		if cell, _ := row.Get("name"); cell.String != "Propanone" {
			t.Fatalf("updated name = %+v", cell)
		}
	}

	if err := engine.UpdateRow(ctx, "Chemicals", map[string]Value{"id": NewValue("9")}, "1"); !errors.Is(err, ErrEmptyUpdate) {
		t.Fatalf("key-only update error = %v, want ErrEmptyUpdate", err)
	}
}
