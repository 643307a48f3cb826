package tablediff

import (
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chinarulezzz/repqlite/core/schema"
	"github.com/chinarulezzz/repqlite/core/sqlquote"
)

// dumpTable writes SQL that recreates aux.table from scratch: its
// CREATE TABLE statement, one INSERT per row, and its indexes. Used for
// tables present only in aux, or whose schema diverged too far from
// main's to express as a patch.
func dumpTable(db *sql.DB, table string, out io.Writer) error {
	id := sqlquote.Quote(table)

	var createSQL sql.NullString
	err := db.QueryRow(`SELECT sql FROM aux.sqlite_schema WHERE name=?`, table).Scan(&createSQL)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("reading schema for aux.%s: %w", table, err)
	}
	if createSQL.Valid {
		fmt.Fprintf(out, "%s;\n", createSQL.String)
	}

	t, resolveErr := schema.ResolveColumns(db, "aux", table, schema.TruePk)

	var rows *sql.Rows
	var insertPrefix string
	if resolveErr != nil {
		rows, err = db.Query(fmt.Sprintf("SELECT * FROM aux.%s", id))
		if err != nil {
			return fmt.Errorf("dumping aux.%s: %w", table, err)
		}
		insertPrefix = fmt.Sprintf("INSERT INTO %s VALUES", id)
	} else {
		selectCols := strings.Join(t.Columns, ", ")
		q := fmt.Sprintf("SELECT %s FROM aux.%s ORDER BY %s", selectCols, id, orderByOrdinals(t.NPK))
		rows, err = db.Query(q)
		if err != nil {
			return fmt.Errorf("dumping aux.%s: %w", table, err)
		}
		insertPrefix = fmt.Sprintf("INSERT INTO %s(%s) VALUES", id, selectCols)
	}
	defer rows.Close()

	colNames, err := rows.Columns()
	if err != nil {
		return err
	}
	vals := make([]any, len(colNames))
	ptrs := make([]any, len(colNames))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		fmt.Fprint(out, insertPrefix)
		sep := "("
		for _, v := range vals {
			fmt.Fprint(out, sep)
			fmt.Fprint(out, sqlquote.Literal(v))
			sep = ","
		}
		fmt.Fprint(out, ");\n")
	}
	if err := rows.Err(); err != nil {
		return err
	}

	idxRows, err := db.Query(
		`SELECT sql FROM aux.sqlite_schema WHERE type='index' AND tbl_name=? AND sql IS NOT NULL`,
		table)
	if err != nil {
		return err
	}
	defer idxRows.Close()
	for idxRows.Next() {
		var text string
		if err := idxRows.Scan(&text); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s;\n", text)
	}
	return idxRows.Err()
}

func orderByOrdinals(nPK int) string {
	var b strings.Builder
	for i := 1; i <= nPK; i++ {
		if i > 1 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(i))
	}
	return b.String()
}
