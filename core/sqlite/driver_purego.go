//go:build !cgo_sqlite

package sqlite

import (
	"database/sql"

	coreerrors "github.com/chinarulezzz/repqlite/core/errors"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const (
	driverName    = "sqlite"
	driverType    = "purego"
	driverPackage = "modernc.org/sqlite"
)

// LoadExtension always fails in the pure Go build: modernc.org/sqlite
// has no dlopen capability to load native extension libraries. Build
// with -tags cgo_sqlite to use -L/--lib.
func LoadExtension(db *sql.DB, path string) error {
	return coreerrors.Wrapf(coreerrors.ErrUnsupported, "loading extension %q requires the cgo_sqlite build", path)
}
