package db

import (
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// duckdbDialect backs the embedded file-database deployment. The driver
// accepts `?` placeholders natively, so Rebind is the identity.
type duckdbDialect struct{}

func (duckdbDialect) Name() string       { return "duckdb" }
func (duckdbDialect) DriverName() string { return "duckdb" }

func (duckdbDialect) Rebind(query string) string { return query }

func (duckdbDialect) QuoteIdentifier(name string) string { return quoteIdent(name) }

func (duckdbDialect) ReservedPrefix() string { return "duckdb_" }

func (duckdbDialect) ListTablesQuery() string {
	return `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = 'main' AND table_type = 'BASE TABLE'`
}

func (duckdbDialect) PrimaryKeysQuery() string {
	return `
SELECT unnest(constraint_column_names) AS column_name
FROM duckdb_constraints()
WHERE table_name = ? AND constraint_type = 'PRIMARY KEY'`
}

func (duckdbDialect) ColumnsQuery() string {
	return `
SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = 'main' AND table_name = ?
ORDER BY ordinal_position`
}

func (duckdbDialect) UsersTableDDL(table string) []string {
	seq := strings.ToLower(table) + "_id_seq"
	return []string{
		fmt.Sprintf(`CREATE SEQUENCE IF NOT EXISTS %s`, seq),
		fmt.Sprintf(`CREATE TABLE %s (
  id INTEGER PRIMARY KEY DEFAULT nextval('%s'),
  username VARCHAR UNIQUE,
  password_hash VARCHAR,
  role VARCHAR
)`, quoteIdent(table), seq),
	}
}

func (duckdbDialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Constraint Error") || strings.Contains(msg, "unique constraint")
}
