package repository

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

type dialect struct {
	driver string
	schema string
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
}

func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(driver) {
	case DriverSQLite, "sqlite3":
		return dialect{driver: DriverSQLite, schema: sqliteSchema}, nil
	case DriverPostgres, "postgresql", "pq":
		return dialect{driver: DriverPostgres, schema: postgresSchema, numbered: true}, nil
	}
	return dialect{}, fmt.Errorf("%q: %w", driver, ErrUnsupportedDriver)
}

// rebind rewrites ? placeholders for dialects that number them.
// Queries in this package never put ? inside string literals.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
