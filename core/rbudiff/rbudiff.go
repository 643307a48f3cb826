// Package rbudiff emits the staged "data_<table>" INSERT statements
// SQLite's Resumable Bulk Update (RBU) extension expects to apply as a
// batched update against the real table, rather than the row-at-a-time
// INSERT/UPDATE/DELETE statements tablediff produces.
package rbudiff

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chinarulezzz/repqlite/core/delta"
	coreerrors "github.com/chinarulezzz/repqlite/core/errors"
	"github.com/chinarulezzz/repqlite/core/schema"
	"github.com/chinarulezzz/repqlite/core/sqlquote"
	"github.com/chinarulezzz/repqlite/internal/logging"
)

// RBUDiffer emits SQL that populates a staged data_<table> table in RBU
// format, with blob-valued columns delta-encoded against their previous
// value whenever that shrinks the row. RBU mode always resolves primary
// keys from the declared schema, never the engine's true/rowid key, and
// requires the table's CREATE TABLE text to match exactly between main
// and aux.
type RBUDiffer struct {
	DB *sql.DB
}

// DiffTable writes the RBU staging INSERTs that carry main.table's
// content forward to match aux.table.
func (d *RBUDiffer) DiffTable(table string, out io.Writer) error {
	match, err := schema.MatchesSchema(d.DB, "main", "aux", table)
	if err != nil {
		return err
	}
	if !match {
		return &coreerrors.SchemaMismatchError{Table: table}
	}

	t, err := schema.ResolveColumns(d.DB, "main", table, schema.SchemaPk)
	if err != nil {
		if errors.Is(err, coreerrors.ErrNoPrimaryKey) {
			logging.TableSkipped(table, "no usable PK columns")
			return nil
		}
		return fmt.Errorf("table %s: %w", table, err)
	}

	azCol := t.Columns
	nPK := t.NPK
	nCol := len(azCol)
	bOtaRowid := 0
	if t.ImplicitRowid {
		bOtaRowid = 1
	}

	id := sqlquote.Quote(table)
	createStmt := createDataTableSQL(table, azCol, bOtaRowid)
	insertPrefix := insertPrefixSQL(table, azCol, bOtaRowid)
	query := rbudiffQuery(id, azCol, nPK, bOtaRowid)

	rows, err := d.DB.Query(query)
	if err != nil {
		return fmt.Errorf("running RBU diff query for %s: %w", table, err)
	}
	defer rows.Close()

	wroteCreate := false
	vals := make([]any, 2*nCol+1)
	ptrs := make([]any, len(vals))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		if !wroteCreate {
			fmt.Fprintf(out, "%s\n", createStmt)
			wroteCreate = true
		}
		fmt.Fprint(out, insertPrefix)
		writeRbuRow(out, vals, nCol, nPK, bOtaRowid)
		fmt.Fprint(out, ");\n")
	}
	return rows.Err()
}

func escapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func createDataTableSQL(table string, azCol []string, bOtaRowid int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS 'data_%s'(", escapeSingleQuotes(table))
	if bOtaRowid == 1 {
		b.WriteString("rbu_rowid, ")
	}
	b.WriteString(strings.Join(azCol[bOtaRowid:], ", "))
	b.WriteString(", rbu_control);")
	return b.String()
}

func insertPrefixSQL(table string, azCol []string, bOtaRowid int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO 'data_%s' (", escapeSingleQuotes(table))
	if bOtaRowid == 1 {
		b.WriteString("rbu_rowid, ")
	}
	b.WriteString(strings.Join(azCol[bOtaRowid:], ", "))
	b.WriteString(", rbu_control) VALUES(")
	return b.String()
}

func pkEquality(id string, azCol []string, nPK int) string {
	parts := make([]string, nPK)
	for i := 0; i < nPK; i++ {
		parts[i] = fmt.Sprintf("(n.%s IS o.%s)", azCol[i], azCol[i])
	}
	return strings.Join(parts, " AND ")
}

func nullList(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "NULL"
	}
	return strings.Join(parts, ", ")
}

// rbudiffQuery builds the UNION ALL query whose rows drive the
// data_<table> INSERT statements: newly inserted rows (rbu_control=0),
// deleted rows (rbu_control=1), and - when the table has data columns at
// all - changed rows (rbu_control=a per-column '.'/'x' string). The PK
// columns get their own '.' placeholder in that string only when they're
// real columns; an implicit rowid has no slot of its own in ota_control,
// so writeRbuRow's control[i-bOtaRowid] indexing stays in bounds.
func rbudiffQuery(id string, azCol []string, nPK, bOtaRowid int) string {
	nCol := len(azCol)
	hasDataCols := nCol > nPK

	var b strings.Builder

	b.WriteString("SELECT ")
	b.WriteString(strings.Join(azCol, ", "))
	b.WriteString(", 0, ")
	b.WriteString(nullList(nCol))
	fmt.Fprintf(&b, " FROM aux.%s AS n WHERE NOT EXISTS (\n", id)
	fmt.Fprintf(&b, "    SELECT 1 FROM main.%s AS o WHERE %s\n)", id, pkEquality(id, azCol, nPK))

	b.WriteString("\nUNION ALL\nSELECT ")
	b.WriteString(strings.Join(azCol[:nPK], ", "))
	if hasDataCols {
		b.WriteString(", ")
		b.WriteString(nullList(nCol - nPK))
	}
	b.WriteString(", 1, ")
	b.WriteString(nullList(nCol))
	fmt.Fprintf(&b, " FROM main.%s AS n WHERE NOT EXISTS (\n", id)
	fmt.Fprintf(&b, "    SELECT 1 FROM aux.%s AS o WHERE %s\n) ", id, pkEquality(id, azCol, nPK))

	if hasDataCols {
		dataCols := azCol[nPK:]

		b.WriteString("\nUNION ALL\nSELECT ")
		prefixed := make([]string, nPK)
		for i, c := range azCol[:nPK] {
			prefixed[i] = "n." + c
		}
		b.WriteString(strings.Join(prefixed, ", "))
		b.WriteString(",\n")

		newExprs := make([]string, len(dataCols))
		for i, c := range dataCols {
			newExprs[i] = fmt.Sprintf("    CASE WHEN n.%s IS o.%s THEN NULL ELSE n.%s END", c, c, c)
		}
		b.WriteString(strings.Join(newExprs, " ,\n"))

		b.WriteString(", '")
		if bOtaRowid == 0 {
			b.WriteString(strings.Repeat(".", nPK))
		}
		b.WriteString("' ||\n")

		flagExprs := make([]string, len(dataCols))
		for i, c := range dataCols {
			flagExprs[i] = fmt.Sprintf("    CASE WHEN n.%s IS o.%s THEN '.' ELSE 'x' END", c, c)
		}
		b.WriteString(strings.Join(flagExprs, " ||\n"))
		b.WriteString("\nAS ota_control, ")
		b.WriteString(nullList(nPK))
		b.WriteString(",\n")

		oldExprs := make([]string, len(dataCols))
		for i, c := range dataCols {
			oldExprs[i] = fmt.Sprintf("    CASE WHEN n.%s IS o.%s THEN NULL ELSE o.%s END", c, c, c)
		}
		b.WriteString(strings.Join(oldExprs, " ,\n"))

		fmt.Fprintf(&b, "\nFROM main.%s AS o, aux.%s AS n\nWHERE %s AND ota_control LIKE '%%x%%'", id, id, pkEquality(id, azCol, nPK))
	}

	b.WriteString("\nORDER BY ")
	ordinals := make([]string, nPK)
	for i := range ordinals {
		ordinals[i] = fmt.Sprintf("%d", i+1)
	}
	b.WriteString(strings.Join(ordinals, ", "))
	return b.String()
}

// writeRbuRow renders one row of the rbudiffQuery result set as the
// comma-separated value list of a data_<table> INSERT, applying blob
// delta compression to changed blob columns.
func writeRbuRow(out io.Writer, vals []any, nCol, nPK, bOtaRowid int) {
	if isIntegerControl(vals[nCol]) {
		for i := 0; i <= nCol; i++ {
			if i > 0 {
				fmt.Fprint(out, ", ")
			}
			fmt.Fprint(out, sqlquote.Literal(vals[i]))
		}
		return
	}

	control := []byte(vals[nCol].(string))
	for i := 0; i < nCol; i++ {
		done := false
		if i >= nPK {
			if newBlob, ok := vals[i].([]byte); ok {
				if oldBlob, ok2 := vals[nCol+1+i].([]byte); ok2 {
					d := delta.Create(oldBlob, newBlob)
					if len(d) < len(newBlob) {
						fmt.Fprintf(out, "x'%x'", d)
						control[i-bOtaRowid] = 'f'
						done = true
					}
				}
			}
		}
		if !done {
			fmt.Fprint(out, sqlquote.Literal(vals[i]))
		}
		fmt.Fprint(out, ", ")
	}
	fmt.Fprintf(out, "'%s'", control)
}

func isIntegerControl(v any) bool {
	switch v.(type) {
	case int64, int:
		return true
	default:
		return false
	}
}
