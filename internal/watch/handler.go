package watch

import (
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/chinarulezzz/repqlite/core/dbdiff"
	"github.com/chinarulezzz/repqlite/core/journal"
	"github.com/chinarulezzz/repqlite/core/sqlite"
	"github.com/chinarulezzz/repqlite/internal/logging"
)

// Replicator drives one diff-then-patch cycle per changed primary: it
// diffs the primary against its backup copy under <dir>/backup/<name>,
// appends the result to <dir>/patches/<name>, and immediately replays
// whatever the diff just wrote back against the backup so it converges
// to match the primary.
type Replicator struct {
	Config dbdiff.Config
}

// NewReplicator builds a Replicator bound to cfg; its Handle method is the
// Handler to pass to Controller.
func NewReplicator(cfg dbdiff.Config) *Replicator {
	return &Replicator{Config: cfg}
}

// Handle implements Handler: it runs one diff+patch cycle for the
// primary database dir/name.
func (r *Replicator) Handle(dir, name string) error {
	primary := filepath.Join(dir, name)
	backup := filepath.Join(dir, "backup", name)
	patch := filepath.Join(dir, "patches", name)

	offset, err := dbdiff.Run(r.Config, backup, primary, patch)
	if err != nil {
		return fmt.Errorf("diffing %s against backup: %w", primary, err)
	}
	if offset < 0 {
		return nil
	}

	applyDB, err := openForPatch(backup)
	if err != nil {
		return err
	}
	defer applyDB.Close()

	applied, err := journal.ApplyFrom(applyDB, patch, offset)
	logging.PatchApplied(backup, offset, applied, err)
	if err != nil {
		return fmt.Errorf("applying patch %s to %s: %w", patch, backup, err)
	}
	return nil
}

func openForPatch(path string) (*sql.DB, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening backup database %s: %w", path, err)
	}
	return db, nil
}
