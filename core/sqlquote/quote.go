// Package sqlquote renders identifiers and typed cell values as SQL text
// for the statements the differential engine generates.
package sqlquote

import (
	"sort"
	"strings"
	"unicode"
)

// keywords holds every reserved word of the storage engine's SQL dialect,
// in sorted order so Quote can binary search it.
var keywords = []string{
	"ABORT", "ACTION", "ADD", "AFTER", "ALL", "ALTER", "ANALYZE", "AND", "AS",
	"ASC", "ATTACH", "AUTOINCREMENT", "BEFORE", "BEGIN", "BETWEEN", "BY",
	"CASCADE", "CASE", "CAST", "CHECK", "COLLATE", "COLUMN", "COMMIT",
	"CONFLICT", "CONSTRAINT", "CREATE", "CROSS", "CURRENT_DATE",
	"CURRENT_TIME", "CURRENT_TIMESTAMP", "DATABASE", "DEFAULT", "DEFERRABLE",
	"DEFERRED", "DELETE", "DESC", "DETACH", "DISTINCT", "DROP", "EACH",
	"ELSE", "END", "ESCAPE", "EXCEPT", "EXCLUSIVE", "EXISTS", "EXPLAIN",
	"FAIL", "FOR", "FOREIGN", "FROM", "FULL", "GLOB", "GROUP", "HAVING", "IF",
	"IGNORE", "IMMEDIATE", "IN", "INDEX", "INDEXED", "INITIALLY", "INNER",
	"INSERT", "INSTEAD", "INTERSECT", "INTO", "IS", "ISNULL", "JOIN", "KEY",
	"LEFT", "LIKE", "LIMIT", "MATCH", "NATURAL", "NO", "NOT", "NOTNULL",
	"NULL", "OF", "OFFSET", "ON", "OR", "ORDER", "OUTER", "PLAN", "PRAGMA",
	"PRIMARY", "QUERY", "RAISE", "RECURSIVE", "REFERENCES", "REGEXP",
	"REINDEX", "RELEASE", "RENAME", "REPLACE", "RESTRICT", "RIGHT",
	"ROLLBACK", "ROW", "SAVEPOINT", "SELECT", "SET", "TABLE", "TEMP",
	"TEMPORARY", "THEN", "TO", "TRANSACTION", "TRIGGER", "UNION", "UNIQUE",
	"UPDATE", "USING", "VACUUM", "VALUES", "VIEW", "VIRTUAL", "WHEN", "WHERE",
	"WITH", "WITHOUT",
}

func init() {
	if !sort.StringsAreSorted(keywords) {
		panic("sqlquote: keywords table is not sorted")
	}
}

// Quote renders an identifier safely for interpolation into generated SQL,
// using the minimum amount of transformation necessary.
//
// Rules, applied in order:
//  1. The empty string becomes "".
//  2. Every character must be a letter, an underscore, or - everywhere but
//     the first position - a digit; any other character forces
//     double-quoting with internal quotes doubled (numeric-suffixed
//     identifiers like "t1" are otherwise left unquoted).
//  3. A case-insensitive match against a reserved word forces quoting.
//  4. Otherwise the identifier passes through verbatim.
func Quote(id string) string {
	if id == "" {
		return `""`
	}

	for i, c := range id {
		if unicode.IsLetter(c) || c == '_' {
			continue
		}
		if i > 0 && unicode.IsDigit(c) {
			continue
		}
		return quoteDouble(id)
	}

	if isKeyword(id) {
		return quoteDouble(id)
	}
	return id
}

func quoteDouble(id string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, c := range id {
		if c == '"' {
			b.WriteByte('"')
		}
		b.WriteRune(c)
	}
	b.WriteByte('"')
	return b.String()
}

func isKeyword(id string) bool {
	upper := strings.ToUpper(id)
	i := sort.SearchStrings(keywords, upper)
	return i < len(keywords) && keywords[i] == upper
}
