package watch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chinarulezzz/repqlite/core/dbdiff"
	"github.com/chinarulezzz/repqlite/core/sqlite"
)

func seedFileDB(t *testing.T, path string, ddl string, inserts ...string) {
	t.Helper()
	db, err := sqlite.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec(ddl); err != nil {
		t.Fatal(err)
	}
	for _, stmt := range inserts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}
}

func TestReplicatorHandleBringsBackupInline(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "backup"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "patches"), 0o755); err != nil {
		t.Fatal(err)
	}

	primary := filepath.Join(dir, "primary.db")
	backup := filepath.Join(dir, "backup", "primary.db")

	ddl := `CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)`
	seedFileDB(t, backup, ddl, `INSERT INTO t VALUES (1,'a')`, `INSERT INTO t VALUES (2,'b')`)
	seedFileDB(t, primary, ddl, `INSERT INTO t VALUES (1,'a')`, `INSERT INTO t VALUES (2,'B')`, `INSERT INTO t VALUES (3,'c')`)

	r := NewReplicator(dbdiff.Config{})
	if err := r.Handle(dir, "primary.db"); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	db, err := sqlite.Open(backup)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var name string
	if err := db.QueryRow(`SELECT name FROM t WHERE id=2`).Scan(&name); err != nil {
		t.Fatal(err)
	}
	if name != "B" {
		t.Errorf("row 2 name = %q, want %q", name, "B")
	}

	var count int
	if err := db.QueryRow(`SELECT count(*) FROM t WHERE id=3`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("row 3 missing after patch apply")
	}
}

func TestReplicatorHandleNoDifferenceIsNoop(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "backup"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "patches"), 0o755); err != nil {
		t.Fatal(err)
	}

	primary := filepath.Join(dir, "primary.db")
	backup := filepath.Join(dir, "backup", "primary.db")

	ddl := `CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)`
	seedFileDB(t, backup, ddl, `INSERT INTO t VALUES (1,'a')`)
	seedFileDB(t, primary, ddl, `INSERT INTO t VALUES (1,'a')`)

	r := NewReplicator(dbdiff.Config{})
	if err := r.Handle(dir, "primary.db"); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	// A no-diff run still opens the journal and writes its timestamp
	// header (spec invariant: "appends no statements beyond (optionally)
	// the timestamp comment"); it must not contain any SQL after it.
	data, err := os.ReadFile(filepath.Join(dir, "patches", "primary.db"))
	if err != nil {
		t.Fatalf("reading patch file: %v", err)
	}
	lines := strings.SplitN(string(data), "\n", 2)
	if !strings.HasPrefix(lines[0], "-- ") {
		t.Errorf("patch file should start with a timestamp comment, got: %q", lines[0])
	}
	if len(lines) > 1 && strings.TrimSpace(lines[1]) != "" {
		t.Errorf("patch file should contain no SQL beyond the timestamp comment, got:\n%s", data)
	}
}
