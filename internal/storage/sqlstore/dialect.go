// Package sqlstore implements the ledger store on database/sql. Driver
// specifics (placeholders, row locking, schema) come from a Dialect supplied
// by the postgres and sqlite packages.
package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect captures what differs between SQL backends.
type Dialect struct {
	Name string

	// NumberedPlaceholders rewrites ? into $1, $2, ...
	NumberedPlaceholders bool

	// LockClause is appended to row reads made for update, e.g. " FOR UPDATE".
	LockClause string
}

// Rebind rewrites a query written with ? placeholders for this dialect.
func (d Dialect) Rebind(query string) string {
	if !d.NumberedPlaceholders {
		return query
	}
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
