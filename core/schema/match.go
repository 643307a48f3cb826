package schema

import (
	"database/sql"
	"fmt"
)

// MatchesSchema reports whether table has the identical CREATE TABLE sql
// in both attached databases, and therefore needs only a row diff rather
// than a structural patch.
func MatchesSchema(db *sql.DB, leftDB, rightDB, table string) (bool, error) {
	leftSQL, err := tableSQL(db, leftDB, table)
	if err != nil {
		return false, err
	}
	rightSQL, err := tableSQL(db, rightDB, table)
	if err != nil {
		return false, err
	}
	return leftSQL == rightSQL, nil
}

// Exists reports whether table is present in dbName's sqlite_schema.
func Exists(db *sql.DB, dbName, table string) (bool, error) {
	sql, err := tableSQL(db, dbName, table)
	if err != nil {
		return false, err
	}
	return sql != "", nil
}

func tableSQL(db *sql.DB, dbName, table string) (string, error) {
	var text sql.NullString
	err := db.QueryRow(
		fmt.Sprintf(`SELECT sql FROM %s.sqlite_schema WHERE type = 'table' AND name = ?`, dbName),
		table,
	).Scan(&text)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading sqlite_schema for %s.%s: %w", dbName, table, err)
	}
	return text.String, nil
}

// UnionTables returns the sorted, deduplicated set of ordinary table
// names (type = 'table', excluding sqlite_ internal tables) present in
// either attached database.
func UnionTables(db *sql.DB, leftDB, rightDB string) ([]string, error) {
	seen := make(map[string]struct{})
	var ordered []string

	add := func(dbName string) error {
		rows, err := db.Query(fmt.Sprintf(
			`SELECT name FROM %s.sqlite_schema`+
				` WHERE type = 'table' AND name NOT LIKE 'sqlite_%%'`+
				`   AND (sql IS NULL OR sql NOT LIKE 'CREATE VIRTUAL%%') ORDER BY name`,
			dbName,
		))
		if err != nil {
			return fmt.Errorf("enumerating tables in %s: %w", dbName, err)
		}
		defer rows.Close()
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				ordered = append(ordered, name)
			}
		}
		return rows.Err()
	}

	if err := add(leftDB); err != nil {
		return nil, err
	}
	if err := add(rightDB); err != nil {
		return nil, err
	}

	sortedUnique(ordered)
	return ordered, nil
}

func sortedUnique(names []string) {
	// insertion sort is fine: table counts per database are small and this
	// keeps the dependency list free of an extra import for one call site.
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
}
