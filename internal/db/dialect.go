package db

import (
	"strconv"
	"strings"
)

// Dialect captures the backend-specific pieces of SQL generation and
// introspection. Everything else in the data-access layer is written against
// `?` placeholders and rebound here.
type Dialect interface {
	Name() string
	DriverName() string

	// Rebind rewrites `?` placeholders into the backend's positional form.
	Rebind(query string) string

	// QuoteIdentifier delimits a table or column name for this backend.
	// Identifiers are the only SQL text that ever comes from outside; values
	// are always bound.
	QuoteIdentifier(name string) string

	// ReservedPrefix is the name prefix the backing engine uses for its own
	// catalog tables. Tables carrying it are never listed.
	ReservedPrefix() string

	// ListTablesQuery returns every user-visible base table name.
	ListTablesQuery() string

	// PrimaryKeysQuery takes the table name as its single bound parameter and
	// returns the column names participating in the primary key.
	PrimaryKeysQuery() string

	// ColumnsQuery takes the table name as its single bound parameter and
	// returns (column_name, type_name) in ordinal position order.
	ColumnsQuery() string

	// UsersTableDDL returns the statements that create the credential table.
	UsersTableDDL(table string) []string

	// IsUniqueViolation reports whether err was caused by a unique constraint.
	IsUniqueViolation(err error) bool
}

// quoteIdent wraps a name in double quotes, doubling any embedded quote. Both
// wired backends use the standard delimiter, so the dialects share it.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// rebindNumeric rewrites `?` into $1, $2, ... for backends that only accept
// numbered placeholders. Generated statements never contain literals, so a
// bare scan over the text is sufficient.
func rebindNumeric(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
