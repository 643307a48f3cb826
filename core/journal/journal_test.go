package journal

import (
	"bufio"
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/chinarulezzz/repqlite/core/sqlite"
)

func TestWriteHeaderFormat(t *testing.T) {
	var buf bytes.Buffer
	ts := time.Date(2026, time.August, 6, 14, 5, 9, 0, time.UTC)
	if err := WriteHeader(&buf, ts); err != nil {
		t.Fatal(err)
	}
	want := "-- 06 August 2026 02:05:09 PM\n"
	if buf.String() != want {
		t.Errorf("WriteHeader = %q, want %q", buf.String(), want)
	}
}

func scanAll(t *testing.T, text string) []string {
	t.Helper()
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Split(splitStatements)
	var out []string
	for scanner.Scan() {
		out = append(out, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestSplitStatementsPlainLines(t *testing.T) {
	got := scanAll(t, "INSERT INTO t VALUES(1);\nINSERT INTO t VALUES(2);\n")
	want := []string{"INSERT INTO t VALUES(1);", "INSERT INTO t VALUES(2);"}
	if len(got) != len(want) {
		t.Fatalf("got %d statements, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("statement %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitStatementsKeepsEmbeddedNewlineInsideQuotes(t *testing.T) {
	text := "INSERT INTO t VALUES(\"line one\nline two\");\nINSERT INTO t VALUES(3);\n"
	got := scanAll(t, text)
	if len(got) != 2 {
		t.Fatalf("got %d statements, want 2: %q", len(got), got)
	}
	if !strings.Contains(got[0], "line one\nline two") {
		t.Errorf("first statement lost its embedded newline: %q", got[0])
	}
}

func TestSplitStatementsNoTrailingNewline(t *testing.T) {
	got := scanAll(t, "DELETE FROM t WHERE id=1;")
	if len(got) != 1 || got[0] != "DELETE FROM t WHERE id=1;" {
		t.Errorf("got %v, want a single statement", got)
	}
}

func TestApplyFromRunsStatementsFromOffset(t *testing.T) {
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)`); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	path := dir + "/journal.sql"
	skipped := "INSERT INTO t VALUES(99,'skip');\n"
	kept := "INSERT INTO t VALUES(1,'a');\nINSERT INTO t VALUES(2,'b');\n"
	if err := writeFile(path, skipped+kept); err != nil {
		t.Fatal(err)
	}

	applied, err := ApplyFrom(db, path, int64(len(skipped)))
	if err != nil {
		t.Fatalf("ApplyFrom: %v", err)
	}
	if applied != 2 {
		t.Errorf("applied = %d, want 2", applied)
	}

	var count int
	if err := db.QueryRow(`SELECT count(*) FROM t`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2 (offset row should have been skipped)", count)
	}
}

func TestApplyFromCollectsErrorsButKeepsGoing(t *testing.T) {
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	path := dir + "/journal.sql"
	text := "INSERT INTO t VALUES(1);\nTHIS IS NOT SQL;\nINSERT INTO t VALUES(2);\n"
	if err := writeFile(path, text); err != nil {
		t.Fatal(err)
	}

	applied, err := ApplyFrom(db, path, 0)
	if err == nil {
		t.Fatal("expected an error from the invalid statement")
	}
	if applied != 2 {
		t.Errorf("applied = %d, want 2 (the two valid statements)", applied)
	}

	var count int
	if err := db.QueryRow(`SELECT count(*) FROM t`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2 (valid statements should still apply around the bad one)", count)
	}
}

func writeFile(path, text string) error {
	return os.WriteFile(path, []byte(text), 0o644)
}
