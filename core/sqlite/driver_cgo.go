//go:build cgo_sqlite

// CGO driver using mattn/go-sqlite3.
//
// Build with: go build -tags cgo_sqlite
// Requires: CGO_ENABLED=1
//
// The actual driver implementation lives in contrib/sqlite-external to
// keep this optional, CGO-requiring dependency clearly separated from
// the rest of the module.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/chinarulezzz/repqlite/contrib/sqlite-external"
	sqlite3 "github.com/mattn/go-sqlite3"
)

const (
	driverName    = "sqlite3"
	driverType    = "cgo"
	driverPackage = "github.com/mattn/go-sqlite3 (via contrib/sqlite-external)"
)

// LoadExtension loads a native SQLite extension library into db's
// connection, as repqlite's -L/--lib flag requests. Only the CGO build
// can do this; the pure Go driver has no dlopen.
func LoadExtension(db *sql.DB, path string) error {
	conn, err := db.Conn(context.Background())
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("sqlite: unexpected driver connection type %T", driverConn)
		}
		return c.LoadExtension(path, "")
	})
}
