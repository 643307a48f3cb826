package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRunStopsOnContextCancel(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Controller{
			Dir:   dir,
			Event: CloseWrite,
			Handler: func(dir, name string) error {
				return nil
			},
		})
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error after cancel: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestRunInvokesHandlerOnCloseWrite(t *testing.T) {
	dir := t.TempDir()

	seen := make(chan string, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		Run(ctx, Controller{
			Dir:   dir,
			Event: CloseWrite,
			Handler: func(dir, name string) error {
				seen <- name
				return nil
			},
		})
	}()

	// give the watcher time to register before we write.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "primary.db")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("hello"); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	select {
	case name := <-seen:
		if name != "primary.db" {
			t.Errorf("handler saw name %q, want %q", name, "primary.db")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handler was never invoked for the close_write event")
	}
}

func TestRunSkipsJournalFiles(t *testing.T) {
	dir := t.TempDir()

	seen := make(chan string, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		Run(ctx, Controller{
			Dir:   dir,
			Event: CloseWrite,
			Handler: func(dir, name string) error {
				seen <- name
				return nil
			},
		})
	}()

	time.Sleep(100 * time.Millisecond)

	journalPath := filepath.Join(dir, "primary.db-journal")
	if err := os.WriteFile(journalPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// handleEvents examines only the first event of each read(), so let
	// the journal file's event be read on its own before the real file
	// is written.
	time.Sleep(200 * time.Millisecond)
	realPath := filepath.Join(dir, "primary.db")
	if err := os.WriteFile(realPath, []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case name := <-seen:
		if name != "primary.db" {
			t.Errorf("handler saw %q, want the real file, not the journal", name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handler was never invoked")
	}
}
