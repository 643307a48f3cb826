package sqlquote

import (
	"strconv"
	"strings"
)

// Literal renders a typed cell value - as returned by database/sql's
// Scan into an any - as an SQL literal:
//
//   - int64            -> decimal
//   - float64          -> shortest round-trip form
//   - string           -> single-quoted, internal quotes doubled
//   - []byte           -> x'<lowercase hex>', or NULL if nil
//   - nil              -> NULL
//
// This mirrors the engine's five-way typed union (Integer, Float, Text,
// Blob, Null) without needing a bespoke tagged type: database/sql drivers
// for this storage engine already surface exactly these Go types.
func Literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return quoteText(x)
	case []byte:
		if x == nil {
			return "NULL"
		}
		return quoteBlob(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return "NULL"
	}
}

func quoteText(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, c := range s {
		if c == '\'' {
			b.WriteByte('\'')
		}
		b.WriteRune(c)
	}
	b.WriteByte('\'')
	return b.String()
}

const hexDigits = "0123456789abcdef"

func quoteBlob(data []byte) string {
	var b strings.Builder
	b.Grow(len(data)*2 + 3)
	b.WriteString("x'")
	for _, c := range data {
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0xf])
	}
	b.WriteByte('\'')
	return b.String()
}
