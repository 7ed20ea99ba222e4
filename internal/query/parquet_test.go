package query

import (
	"bytes"
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/parquet-go/parquet-go"
)

func TestExportParquetRoundTrip(t *testing.T) {
	engine, mock := newEngine(t)
	expectChemicalsColumns(mock)
	expectChemicalsColumns(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "Chemicals"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "cas"}).
			AddRow("1", "Acetone", "67-64-1").
			AddRow("2", "Benzene", nil))

	var buf bytes.Buffer
	count, err := engine.ExportParquet(context.Background(), "Chemicals", &buf)
	if err != nil {
		t.Fatalf("ExportParquet() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d", count)
	}

	file, err := parquet.OpenFile(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	reader := parquet.NewGenericReader[map[string]any](bytes.NewReader(buf.Bytes()), file.Schema())
	defer func() { _ = reader.Close() }()

	records := make([]map[string]any, 2)
	for i := range records {
		records[i] = map[string]any{}
	}
	n, err := reader.Read(records)
	if n != 2 {
		t.Fatalf("Read() = %d rows, err = %v", n, err)
	}
	if records[0]["name"] != "Acetone" {
		t.Fatalf("records[0][name] = %#v", records[0]["name"])
	}
	if value, ok := records[1]["cas"]; ok && value != nil {
		t.Fatalf("records[1][cas] = %#v, want null", value)
	}
	assertSQLMock(t, mock)
}
