// Package schema resolves table column layouts and primary keys across
// the two attached databases the differential engine compares, and
// verifies that a table's declared schema agrees between them.
package schema

import (
	"database/sql"
	"fmt"
	"strings"

	coreerrors "github.com/chinarulezzz/repqlite/core/errors"
	"github.com/chinarulezzz/repqlite/core/sqlquote"
)

// PKMode selects which primary key the differ treats as authoritative.
type PKMode int

const (
	// TruePk uses the engine-reported true primary key, which may be the
	// implicit rowid.
	TruePk PKMode = iota
	// SchemaPk uses the declared PRIMARY KEY clause, falling back to the
	// implicit rowid only if none is declared. Mandatory for RBU mode.
	// Neither differ filters out rows with a NULL in a PK column under
	// this mode.
	SchemaPk
)

// rowidAliases are tried in order when a table's true PK is the implicit
// rowid and a name must be synthesized for it.
var rowidAliases = []string{"rowid", "_rowid_", "oid"}

// Table is a derived, never-persisted description of a table's columns.
// The first NPK entries of Columns are the primary key, in declared
// order; the remainder are data columns.
type Table struct {
	Name          string
	Columns       []string
	NPK           int
	ImplicitRowid bool
}

// PKColumns returns the primary key columns.
func (t *Table) PKColumns() []string { return t.Columns[:t.NPK] }

// DataColumns returns the non-primary-key columns.
func (t *Table) DataColumns() []string { return t.Columns[t.NPK:] }

// ResolveColumns returns the ordered column list for dbName.table with PK
// columns first, consulting either the engine's true primary key or the
// schema-declared one depending on mode.
//
// If the table's PK is the implicit rowid and all three rowid aliases
// collide with declared column names, the table is unrepresentable and
// ResolveColumns returns an error satisfying errors.Is(err,
// coreerrors.ErrNoPrimaryKey); the caller must skip the table.
func ResolveColumns(db *sql.DB, dbName, table string, mode PKMode) (*Table, error) {
	nPK, err := resolvePKCount(db, dbName, table, mode)
	if err != nil {
		return nil, err
	}
	// A count of 0 means the true PK is the hidden rowid of a table that
	// also declares a PRIMARY KEY.
	placePK := nPK > 0
	if !placePK {
		nPK = 1
	}

	rows, err := db.Query(fmt.Sprintf("PRAGMA %s.table_info(%s)", dbName, sqlquote.Literal(table)))
	if err != nil {
		return nil, fmt.Errorf("reading table_info for %s.%s: %w", dbName, table, err)
	}
	defer rows.Close()

	pkSlots := make([]string, nPK)
	var dataCols []string
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull int
		var dflt any
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scanning table_info for %s.%s: %w", dbName, table, err)
		}
		if placePK && pk > 0 && pk <= nPK {
			pkSlots[pk-1] = sqlquote.Quote(name)
		} else {
			dataCols = append(dataCols, sqlquote.Quote(name))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	implicitRowid := pkSlots[0] == ""
	if implicitRowid {
		alias := pickRowidAlias(pkSlots, dataCols)
		if alias == "" {
			return nil, &coreerrors.NoPrimaryKeyError{Table: table}
		}
		pkSlots[0] = alias
	}

	cols := make([]string, 0, len(pkSlots)+len(dataCols))
	cols = append(cols, pkSlots...)
	cols = append(cols, dataCols...)

	return &Table{
		Name:          table,
		Columns:       cols,
		NPK:           nPK,
		ImplicitRowid: implicitRowid,
	}, nil
}

// pickRowidAlias returns the first of rowid, _rowid_, oid that collides
// with neither an already-resolved PK slot nor a data column, or "" if
// all three collide.
func pickRowidAlias(pkSlots, dataCols []string) string {
	for _, alias := range rowidAliases {
		collide := false
		for _, c := range pkSlots[1:] {
			if strings.EqualFold(c, alias) {
				collide = true
				break
			}
		}
		for _, c := range dataCols {
			if !collide && strings.EqualFold(c, alias) {
				collide = true
			}
		}
		if !collide {
			return alias
		}
	}
	return ""
}

func resolvePKCount(db *sql.DB, dbName, table string, mode PKMode) (int, error) {
	if mode == SchemaPk {
		return resolveSchemaPKCount(db, dbName, table)
	}
	return resolveTruePKCount(db, dbName, table)
}

func resolveSchemaPKCount(db *sql.DB, dbName, table string) (int, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA %s.table_info(%s)", dbName, sqlquote.Literal(table)))
	if err != nil {
		return 0, fmt.Errorf("reading table_info for %s.%s: %w", dbName, table, err)
	}
	defer rows.Close()

	nPK := 0
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull int
		var dflt any
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return 0, err
		}
		if pk > 0 {
			nPK++
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if nPK == 0 {
		nPK = 1
	}
	return nPK, nil
}

func resolveTruePKCount(db *sql.DB, dbName, table string) (int, error) {
	pkIndex, err := findPKIndex(db, dbName, table)
	if err != nil {
		return 0, err
	}
	if pkIndex == "" {
		return 1, nil
	}

	rows, err := db.Query(fmt.Sprintf("PRAGMA %s.index_xinfo(%s)", dbName, sqlquote.Literal(pkIndex)))
	if err != nil {
		return 0, fmt.Errorf("reading index_xinfo for %s.%s: %w", dbName, pkIndex, err)
	}
	defer rows.Close()

	var nCol, nKey int
	withoutRowid := false
	for rows.Next() {
		var seqno, cid int
		var name any
		var desc, key int
		var coll any
		if err := rows.Scan(&seqno, &cid, &name, &desc, &coll, &key); err != nil {
			return 0, err
		}
		nCol++
		if key != 0 {
			nKey++
		} else if cid >= 0 {
			withoutRowid = true
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	// The key entries are the true PK when every entry is a key entry, or
	// when a non-key entry is a real table column (cid >= 0), as in a
	// WITHOUT ROWID table. A rowid table's PK-origin index instead carries
	// the rowid (cid -1) as a trailing non-key entry: its true PK is the
	// hidden rowid, and 0 tells ResolveColumns to keep the declared
	// PRIMARY KEY columns as data columns.
	if nCol == nKey || withoutRowid {
		return nKey, nil
	}
	return 0, nil
}

// findPKIndex returns the name of the index whose origin is "pk", or ""
// if the table has no PK-backing index (INTEGER PRIMARY KEY, or no
// declared PRIMARY KEY at all).
func findPKIndex(db *sql.DB, dbName, table string) (string, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA %s.index_list(%s)", dbName, sqlquote.Literal(table)))
	if err != nil {
		return "", fmt.Errorf("reading index_list for %s.%s: %w", dbName, table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var seq int
		var name string
		var unique int
		var origin string
		var partial int
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return "", err
		}
		if strings.EqualFold(origin, "pk") {
			return name, nil
		}
	}
	return "", rows.Err()
}
