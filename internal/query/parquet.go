package query

import (
	"context"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

// ExportParquet snapshots the whole table into a parquet file with one
// optional string column per table column. Returns the number of exported
// rows. Intended for archival of inventory tables into the document store.
func (e *Engine) ExportParquet(ctx context.Context, table string, w io.Writer) (int64, error) {
	columns, err := e.catalog.Columns(ctx, table)
	if err != nil {
		return 0, err
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("table %q has no columns", table)
	}

	rows, err := e.SelectAll(ctx, table)
	if err != nil {
		return 0, err
	}

	group := parquet.Group{}
	for _, column := range columns {
		group[column.Name] = parquet.Optional(parquet.String())
	}
	schemaDef := parquet.NewSchema(table, group)

	writer := parquet.NewGenericWriter[map[string]any](w, schemaDef)
	for _, row := range rows {
		record := make(map[string]any, len(row.Columns))
		for _, name := range row.Columns {
			if cell, ok := row.Values[name]; ok && cell.Valid {
				record[name] = cell.String
			}
		}
		if _, err := writer.Write([]map[string]any{record}); err != nil {
			return 0, fmt.Errorf("write parquet row: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("close parquet writer: %w", err)
	}
	return int64(len(rows)), nil
}
