// Package sqliteexternal provides the optional CGO SQLite driver.
//
// This package is part of the main github.com/chinarulezzz/repqlite
// module and exists only to isolate the CGO-requiring dependency
// (github.com/mattn/go-sqlite3) from the default pure Go build.
//
//	import _ "github.com/chinarulezzz/repqlite/contrib/sqlite-external"
//
// Build with:
//
//	CGO_ENABLED=1 go build -tags cgo_sqlite
//
// By default repqlite uses modernc.org/sqlite, which requires no CGO.
// See github.com/chinarulezzz/repqlite/core/sqlite for details.
//
// Use the CGO driver when extension libraries must be loaded with
// sqlite3_load_extension - the pure Go driver cannot load native
// extensions - or when the database files involved are large enough
// that the CGO implementation's speed advantage matters.
package sqliteexternal
