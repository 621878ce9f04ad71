// Package sqlstore reads and writes the ledger in a SQL database. One query
// builder serves both Postgres (pgx) and SQLite (modernc); a Dialect covers
// the differences in placeholders, case-insensitive matching and time storage.
package sqlstore

import (
	"strconv"
	"strings"
	"time"
)

// sqliteTimeLayout is how SQLite stores timestamps: UTC, fixed width, so text
// comparison orders them correctly.
const sqliteTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Dialect describes one SQL flavour.
type Dialect struct {
	Name string

	placeholder func(n int) string
	match       func(column, pattern string) string
	timeArg     func(t time.Time) any
}

// Postgres uses $n placeholders, ILIKE and native timestamps.
var Postgres = Dialect{
	Name:        "postgres",
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	match: func(column, pattern string) string {
		return column + " ILIKE " + pattern + ` ESCAPE '\'`
	},
	timeArg: func(t time.Time) any { return t },
}

// SQLite uses ? placeholders and text timestamps. Its LIKE only folds ASCII,
// so both sides go through fold_case (registered in sqlite.go) first.
var SQLite = Dialect{
	Name:        "sqlite",
	placeholder: func(int) string { return "?" },
	match: func(column, pattern string) string {
		return "fold_case(" + column + ") LIKE fold_case(" + pattern + `) ESCAPE '\'`
	},
	timeArg: func(t time.Time) any { return t.UTC().Format(sqliteTimeLayout) },
}

// likePattern wraps s for a substring match, escaping LIKE metacharacters
// with a backslash.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
