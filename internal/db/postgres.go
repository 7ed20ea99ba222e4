package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const pgUniqueViolationCode = "23505"

type postgresDialect struct{}

func (postgresDialect) Name() string       { return "postgres" }
func (postgresDialect) DriverName() string { return "pgx" }

func (postgresDialect) Rebind(query string) string { return rebindNumeric(query) }

func (postgresDialect) QuoteIdentifier(name string) string { return quoteIdent(name) }

func (postgresDialect) ReservedPrefix() string { return "pg_" }

func (postgresDialect) ListTablesQuery() string {
	return `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'`
}

func (postgresDialect) PrimaryKeysQuery() string {
	return `
SELECT ku.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage ku
  ON tc.constraint_name = ku.constraint_name
 AND tc.table_schema = ku.table_schema
WHERE tc.constraint_type = 'PRIMARY KEY'
  AND tc.table_schema = current_schema()
  AND tc.table_name = ?
ORDER BY ku.ordinal_position`
}

func (postgresDialect) ColumnsQuery() string {
	return `
SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = ?
ORDER BY ordinal_position`
}

// UsersTableDDL quotes the table name so the created relation keeps its
// mixed-case spelling; an unquoted name would fold to lower case and break
// the existence probe on later starts.
func (postgresDialect) UsersTableDDL(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE %s (
  id BIGSERIAL PRIMARY KEY,
  username TEXT UNIQUE,
  password_hash TEXT,
  role TEXT
)`, quoteIdent(table)),
	}
}

func (postgresDialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	return false
}
