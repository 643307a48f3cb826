// Package sqlite provides a unified interface for opening the database
// files that the differential engine reads and patches.
//
// Build modes:
//   - Default (CGO_ENABLED=0): uses the pure Go modernc.org/sqlite driver
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): uses mattn/go-sqlite3 via
//     contrib/sqlite-external
//
// The storage engine itself - opening files, executing SQL, reading
// metadata - is treated as an external collaborator throughout this
// module; this package only picks which database/sql driver fronts it.
// Use Open instead of sql.Open so callers don't need to know the driver
// name for the active build mode.
package sqlite

import (
	"database/sql"
)

// Open opens a database using the driver appropriate for the build mode.
func Open(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	// The engine is forced single-threaded by the diff driver; a single
	// connection avoids any pooling surprises while a diff is in flight.
	db.SetMaxOpenConns(1)
	return db, nil
}
