// Package dbdiff is the top-level driver that opens two SQLite
// databases, attaches one to the other, and runs a per-table differ
// across every table either side knows about, appending the resulting
// SQL to an SCN journal.
package dbdiff

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	coreerrors "github.com/chinarulezzz/repqlite/core/errors"
	"github.com/chinarulezzz/repqlite/core/journal"
	"github.com/chinarulezzz/repqlite/core/rbudiff"
	"github.com/chinarulezzz/repqlite/core/schema"
	"github.com/chinarulezzz/repqlite/core/sqlite"
	"github.com/chinarulezzz/repqlite/core/sqlquote"
	"github.com/chinarulezzz/repqlite/core/tablediff"
	"github.com/chinarulezzz/repqlite/internal/logging"
)

// TableDiffer is the capability every per-table diff strategy
// implements. StandardDiffer and RBUDiffer both satisfy it without
// either package depending on this one.
type TableDiffer interface {
	DiffTable(table string, out io.Writer) error
}

// Config controls how Run compares two databases.
type Config struct {
	// SchemaPK makes the standard (non-RBU) differ use the declared
	// PRIMARY KEY rather than the engine's true/rowid key.
	SchemaPK bool
	// RBU switches to the RBU staging-table differ, which always uses
	// the declared PRIMARY KEY regardless of SchemaPK.
	RBU bool
	// Transaction wraps the emitted SQL in BEGIN TRANSACTION/COMMIT.
	Transaction bool
	// ExtensionLibs are native SQLite extension libraries to load into
	// the main connection before diffing. Requires the cgo_sqlite build.
	ExtensionLibs []string
}

// Run diffs mainPath against auxPath and appends the result to
// journalPath, creating it if necessary, returning the byte offset the
// new run's patch SQL starts at. It returns -1 if the run produced no
// differences, or if journalPath is empty (in which case the patch SQL
// is written to stdout and there is nothing to resume from).
func Run(cfg Config, mainPath, auxPath, journalPath string) (int64, error) {
	started := time.Now()
	offset, err := run(cfg, mainPath, auxPath, journalPath)
	logging.DiffComputed(mainPath, auxPath, offset, time.Since(started))
	return offset, err
}

func run(cfg Config, mainPath, auxPath, journalPath string) (int64, error) {
	db, err := sqlite.Open(mainPath)
	if err != nil {
		return -1, fmt.Errorf("opening %s: %w", mainPath, err)
	}
	defer db.Close()

	if _, err := db.Exec(`SELECT * FROM sqlite_schema`); err != nil {
		return -1, &coreerrors.InvalidDatabaseError{Path: mainPath, Err: err}
	}

	for _, lib := range cfg.ExtensionLibs {
		if err := sqlite.LoadExtension(db, lib); err != nil {
			return -1, fmt.Errorf("loading extension %s: %w", lib, err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("ATTACH %s AS aux", sqlquote.Literal(auxPath))); err != nil {
		return -1, fmt.Errorf("attaching %s: %w", auxPath, err)
	}
	if _, err := db.Exec(`SELECT * FROM aux.sqlite_schema`); err != nil {
		return -1, &coreerrors.InvalidDatabaseError{Path: auxPath, Err: err}
	}

	out, file, err := openJournal(journalPath)
	if err != nil {
		return -1, err
	}
	if file != nil {
		defer file.Close()
	}

	if err := journal.WriteHeader(out, time.Now()); err != nil {
		return -1, err
	}

	// fstart is captured before BEGIN TRANSACTION; is written, so a replay
	// from fstart sees the whole bracketed run. Whether the run found any
	// difference is judged from the table statements alone (bodyStart to
	// bodyEnd): an empty --transaction run returns -1, and its
	// BEGIN/COMMIT pair stays in the journal.
	fstart, err := currentOffset(file)
	if err != nil {
		return -1, err
	}

	if cfg.Transaction {
		fmt.Fprintln(out, "BEGIN TRANSACTION;")
	}
	bodyStart, err := currentOffset(file)
	if err != nil {
		return -1, err
	}

	differ, err := newDiffer(db, cfg)
	if err != nil {
		return -1, err
	}

	tables, err := schema.UnionTables(db, "main", "aux")
	if err != nil {
		return -1, err
	}
	for _, table := range tables {
		if err := differ.DiffTable(table, out); err != nil {
			return -1, fmt.Errorf("diffing table %s: %w", table, err)
		}
	}

	bodyEnd, err := currentOffset(file)
	if err != nil {
		return -1, err
	}

	if cfg.Transaction {
		fmt.Fprintln(out, "COMMIT;")
	}

	if file == nil || bodyEnd == bodyStart {
		return -1, nil
	}
	return fstart, nil
}

func newDiffer(db *sql.DB, cfg Config) (TableDiffer, error) {
	if cfg.RBU {
		return &rbudiff.RBUDiffer{DB: db}, nil
	}
	mode := schema.TruePk
	if cfg.SchemaPK {
		mode = schema.SchemaPk
	}
	return &tablediff.StandardDiffer{DB: db, PKMode: mode}, nil
}

func openJournal(journalPath string) (io.Writer, *os.File, error) {
	if journalPath == "" {
		return os.Stdout, nil, nil
	}
	f, err := os.OpenFile(journalPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening journal %s: %w", journalPath, err)
	}
	return f, f, nil
}

func currentOffset(f *os.File) (int64, error) {
	if f == nil {
		return -1, nil
	}
	return f.Seek(0, io.SeekCurrent)
}
