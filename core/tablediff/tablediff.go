// Package tablediff generates the plain SQL statements (INSERT, UPDATE,
// DELETE, ALTER TABLE, DROP TABLE/INDEX) that transform one table's
// content and structure into another's.
package tablediff

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	coreerrors "github.com/chinarulezzz/repqlite/core/errors"
	"github.com/chinarulezzz/repqlite/core/schema"
	"github.com/chinarulezzz/repqlite/core/sqlquote"
	"github.com/chinarulezzz/repqlite/internal/logging"
)

// StandardDiffer emits the SQL that transforms the "main" database's
// copy of a table into the "aux" database's copy: row-level INSERT,
// UPDATE and DELETE statements where the schemas match, or a DROP plus
// full dump where they don't.
type StandardDiffer struct {
	DB     *sql.DB
	PKMode schema.PKMode
}

// DiffTable writes the SQL needed to turn main.table into aux.table.
func (d *StandardDiffer) DiffTable(table string, out io.Writer) error {
	id := sqlquote.Quote(table)

	inAux, err := schema.Exists(d.DB, "aux", table)
	if err != nil {
		return err
	}
	if !inAux {
		inMain, err := schema.Exists(d.DB, "main", table)
		if err != nil {
			return err
		}
		if inMain {
			fmt.Fprintf(out, "DROP TABLE %s;\n", id)
		}
		return nil
	}

	inMain, err := schema.Exists(d.DB, "main", table)
	if err != nil {
		return err
	}
	if !inMain {
		return dumpTable(d.DB, table, out)
	}

	left, errLeft := schema.ResolveColumns(d.DB, "main", table, d.PKMode)
	right, errRight := schema.ResolveColumns(d.DB, "aux", table, d.PKMode)

	if noUsablePK(errLeft) || noUsablePK(errRight) {
		logging.TableSkipped(table, "no usable PK columns")
		return nil
	}

	n := 0
	mismatch := errLeft != nil || errRight != nil
	if !mismatch {
		for n < len(left.Columns) && n < len(right.Columns) &&
			strings.EqualFold(left.Columns[n], right.Columns[n]) {
			n++
		}
		mismatch = left.NPK != right.NPK || n < len(left.Columns)
	}
	if mismatch {
		fmt.Fprintf(out, "DROP TABLE %s; -- due to schema mismatch\n", id)
		return dumpTable(d.DB, table, out)
	}

	az, az2 := left.Columns, right.Columns
	nPK := left.NPK
	n2 := len(az2)

	for i := n; i < n2; i++ {
		fmt.Fprintf(out, "ALTER TABLE %s ADD COLUMN %s;\n", id, az2[i])
	}

	nQ := nPK + 1 + 2*(n2-nPK)

	var sql strings.Builder
	if n2 > nPK {
		writeChangedRowBranch(&sql, id, az, az2, nPK, n, n2)
		sql.WriteString(" UNION ALL\n")
	}
	writeDeletedRowBranch(&sql, id, az, az2, nPK, n2)
	sql.WriteString(" UNION ALL\n")
	writeInsertedRowBranch(&sql, id, az, az2, nPK, n2)
	writeOrderBy(&sql, nPK)

	if err := dropMissingIndexes(d.DB, table, out); err != nil {
		return err
	}

	rows, err := d.DB.Query(sql.String())
	if err != nil {
		return fmt.Errorf("running diff query for %s: %w", table, err)
	}
	defer rows.Close()

	vals := make([]any, nQ)
	ptrs := make([]any, nQ)
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		writeRowChange(out, id, az2, nPK, n2, nQ, vals)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	return createMissingIndexes(d.DB, table, out)
}

func writeChangedRowBranch(sql *strings.Builder, id string, az, az2 []string, nPK, n, n2 int) {
	sql.WriteString("SELECT ")
	for i := 0; i < nPK; i++ {
		if i > 0 {
			sql.WriteString(", ")
		}
		fmt.Fprintf(sql, "B.%s", az[i])
	}
	if nPK == n2 {
		sql.WriteString(", 1 -- changed row\n")
	} else {
		sql.WriteString(", 1, -- changed row\n")
	}

	for i := nPK; i < n; i++ {
		fmt.Fprintf(sql, "       A.%s IS NOT B.%s, B.%s", az[i], az2[i], az2[i])
		if i+1 != n2 {
			sql.WriteString(",")
		}
		sql.WriteString("\n")
	}
	for i := n; i < n2; i++ {
		fmt.Fprintf(sql, "       B.%s IS NOT NULL, B.%s", az2[i], az2[i])
		if i+1 != n2 {
			sql.WriteString(",")
		}
		sql.WriteString("\n")
	}

	fmt.Fprintf(sql, "  FROM main.%s A, aux.%s B\n", id, id)
	sql.WriteString(" WHERE")
	for i := 0; i < nPK; i++ {
		if i > 0 {
			sql.WriteString(" AND")
		}
		fmt.Fprintf(sql, " A.%s=B.%s", az[i], az[i])
	}
	sql.WriteString("\n   AND (")
	sep := ""
	for i := nPK; i < n; i++ {
		fmt.Fprintf(sql, "%sA.%s IS NOT B.%s", sep, az[i], az2[i])
		if i+1 == n2 {
			sql.WriteString(")")
		}
		sql.WriteString("\n")
		sep = "        OR "
	}
	for i := n; i < n2; i++ {
		fmt.Fprintf(sql, "%sB.%s IS NOT NULL", sep, az2[i])
		if i+1 == n2 {
			sql.WriteString(")")
		}
		sql.WriteString("\n")
		sep = "        OR "
	}
}

func writeDeletedRowBranch(sql *strings.Builder, id string, az, az2 []string, nPK, n2 int) {
	sql.WriteString("SELECT ")
	for i := 0; i < nPK; i++ {
		if i > 0 {
			sql.WriteString(", ")
		}
		fmt.Fprintf(sql, "A.%s", az[i])
	}
	if nPK == n2 {
		sql.WriteString(", 2 -- deleted row\n")
	} else {
		sql.WriteString(", 2, -- deleted row\n")
	}
	for i := nPK; i < n2; i++ {
		sql.WriteString("       NULL, NULL")
		if i != n2-1 {
			sql.WriteString(",")
		}
		sql.WriteString("\n")
	}
	fmt.Fprintf(sql, "  FROM main.%s A\n", id)
	fmt.Fprintf(sql, " WHERE NOT EXISTS(SELECT 1 FROM aux.%s B\n", id)
	sql.WriteString("                   WHERE")
	for i := 0; i < nPK; i++ {
		if i > 0 {
			sql.WriteString(" AND")
		}
		fmt.Fprintf(sql, " A.%s=B.%s", az[i], az[i])
	}
	sql.WriteString(")\n")
}

func writeInsertedRowBranch(sql *strings.Builder, id string, az, az2 []string, nPK, n2 int) {
	sql.WriteString("SELECT ")
	for i := 0; i < nPK; i++ {
		if i > 0 {
			sql.WriteString(", ")
		}
		fmt.Fprintf(sql, "B.%s", az[i])
	}
	if nPK == n2 {
		sql.WriteString(", 3 -- inserted row\n")
	} else {
		sql.WriteString(", 3, -- inserted row\n")
	}
	for i := nPK; i < n2; i++ {
		fmt.Fprintf(sql, "       1, B.%s", az2[i])
		if i != n2-1 {
			sql.WriteString(",")
		}
		sql.WriteString("\n")
	}
	fmt.Fprintf(sql, "  FROM aux.%s B\n", id)
	fmt.Fprintf(sql, " WHERE NOT EXISTS(SELECT 1 FROM main.%s A\n", id)
	sql.WriteString("                   WHERE")
	for i := 0; i < nPK; i++ {
		if i > 0 {
			sql.WriteString(" AND")
		}
		fmt.Fprintf(sql, " A.%s=B.%s", az[i], az[i])
	}
	sql.WriteString(")\n")
}

func writeOrderBy(sql *strings.Builder, nPK int) {
	sql.WriteString(" ORDER BY ")
	for i := 1; i <= nPK; i++ {
		if i > 1 {
			sql.WriteString(", ")
		}
		fmt.Fprintf(sql, "%d", i)
	}
	sql.WriteString(";\n")
}

func writeRowChange(out io.Writer, id string, az2 []string, nPK, n2, nQ int, vals []any) {
	iType := toInt(vals[nPK])
	switch iType {
	case 1: // changed row
		fmt.Fprintf(out, "UPDATE %s", id)
		sep := " SET"
		for i := nPK + 1; i < nQ; i += 2 {
			if toInt(vals[i]) == 0 {
				continue
			}
			fmt.Fprintf(out, "%s %s=", sep, az2[(i+nPK-1)/2])
			sep = ","
			fmt.Fprint(out, sqlquote.Literal(vals[i+1]))
		}
		writeWhereClause(out, az2, nPK, vals)
		fmt.Fprint(out, ";\n")

	case 2: // deleted row
		fmt.Fprintf(out, "DELETE FROM %s", id)
		writeWhereClause(out, az2, nPK, vals)
		fmt.Fprint(out, ";\n")

	default: // inserted row
		fmt.Fprintf(out, "INSERT INTO %s(%s", id, az2[0])
		for i := 1; i < len(az2); i++ {
			fmt.Fprintf(out, ",%s", az2[i])
		}
		fmt.Fprint(out, ") VALUES")
		sep := "("
		for i := 0; i < nPK; i++ {
			fmt.Fprint(out, sep)
			sep = ","
			fmt.Fprint(out, sqlquote.Literal(vals[i]))
		}
		for i := nPK + 2; i < nQ; i += 2 {
			fmt.Fprint(out, ",")
			fmt.Fprint(out, sqlquote.Literal(vals[i]))
		}
		fmt.Fprint(out, ");\n")
	}
}

func writeWhereClause(out io.Writer, az2 []string, nPK int, vals []any) {
	sep := " WHERE"
	for i := 0; i < nPK; i++ {
		fmt.Fprintf(out, "%s %s=", sep, az2[i])
		fmt.Fprint(out, sqlquote.Literal(vals[i]))
		sep = " AND"
	}
}

func noUsablePK(err error) bool {
	return err != nil && errors.Is(err, coreerrors.ErrNoPrimaryKey)
}

func toInt(v any) int {
	switch x := v.(type) {
	case int64:
		return int(x)
	case int:
		return x
	default:
		return 0
	}
}

func dropMissingIndexes(db *sql.DB, table string, out io.Writer) error {
	rows, err := db.Query(
		`SELECT name FROM main.sqlite_schema`+
			` WHERE type='index' AND tbl_name=? AND sql IS NOT NULL`+
			`   AND sql NOT IN (SELECT sql FROM aux.sqlite_schema`+
			`                    WHERE type='index' AND tbl_name=? AND sql IS NOT NULL)`,
		table, table)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		fmt.Fprintf(out, "DROP INDEX %s;\n", sqlquote.Quote(name))
	}
	return rows.Err()
}

func createMissingIndexes(db *sql.DB, table string, out io.Writer) error {
	rows, err := db.Query(
		`SELECT sql FROM aux.sqlite_schema`+
			` WHERE type='index' AND tbl_name=? AND sql IS NOT NULL`+
			`   AND sql NOT IN (SELECT sql FROM main.sqlite_schema`+
			`                    WHERE type='index' AND tbl_name=? AND sql IS NOT NULL)`,
		table, table)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s;\n", text)
	}
	return rows.Err()
}
