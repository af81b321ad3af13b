package database

import (
	"strconv"
	"strings"
)

// Rebind rewrites "?" placeholders to the driver's bind syntax. Queries are
// written once with "?" and rebound for PostgreSQL ($1, $2, ...).
// Question marks inside single-quoted literals are left alone.
func Rebind(d Driver, query string) string {
	if d != DriverPostgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	quoted := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			quoted = !quoted
			b.WriteByte(c)
		case c == '?' && !quoted:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
