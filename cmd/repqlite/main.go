// Command repqlite watches a directory of primary SQLite databases and
// keeps a backup copy of each in sync: when a primary is written, its
// differential patch against the backup is computed, appended to a
// per-database SCN journal under <dir>/patches, and immediately
// replayed against the backup.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/chinarulezzz/repqlite/core/dbdiff"
	coreerrors "github.com/chinarulezzz/repqlite/core/errors"
	"github.com/chinarulezzz/repqlite/internal/logging"
	"github.com/chinarulezzz/repqlite/internal/watch"
)

// CLI mirrors the option surface of the original repqlite command
// exactly: a single positional directory argument, watched until
// interrupted, plus the flags that steer the diff engine invoked for
// each qualifying event.
var CLI struct {
	Dir string `arg:"" help:"Directory of primary databases to watch" type:"existingdir"`

	Lib []string `name:"lib" short:"L" help:"Path to a SQLite extension library to load before diffing (repeatable; requires the cgo_sqlite build)"`

	PrimaryKey  bool   `name:"primarykey" help:"Use the declared PRIMARY KEY instead of the engine's true/rowid key"`
	RBU         bool   `name:"rbu" help:"Emit RBU staging-table SQL instead of row-level INSERT/UPDATE/DELETE"`
	Transaction bool   `name:"transaction" help:"Wrap each diff's SQL in BEGIN TRANSACTION/COMMIT"`
	Event       string `name:"event" help:"Filesystem event to watch for" enum:"close_write,modify" default:"close_write"`
	Debug       int64  `name:"debug" help:"Diagnostic bitset (accepted, but nothing reads it: it has no effect)"`
	Verbose     bool   `name:"verbose" short:"v" help:"Enable progress output"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("repqlite"),
		kong.Description("Replicate SQLite databases by diffing primaries against their backups on write."),
		kong.UsageOnError(),
	)
	if err := run(); err != nil {
		ctx.FatalIfErrorf(coreerrors.Wrap(err, "repqlite"))
	}
}

func run() error {
	if CLI.Verbose {
		logging.InitLogger(logging.LevelDebug, logging.FormatText)
	}

	mask := watch.CloseWrite
	if CLI.Event == "modify" {
		mask = watch.Modify
	}

	cfg := dbdiff.Config{
		SchemaPK:      CLI.PrimaryKey,
		RBU:           CLI.RBU,
		Transaction:   CLI.Transaction,
		ExtensionLibs: CLI.Lib,
	}
	replicator := watch.NewReplicator(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watch.Run(ctx, watch.Controller{
		Dir:     CLI.Dir,
		Event:   mask,
		Handler: replicator.Handle,
	}); err != nil {
		return fmt.Errorf("watching %s: %w", CLI.Dir, err)
	}
	return nil
}
