package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSchemaMismatchError(t *testing.T) {
	err := &SchemaMismatchError{Table: "t1"}
	if got, want := err.Error(), "schema changed for table t1"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("expected Is(err, ErrSchemaMismatch)")
	}
}

func TestNoPrimaryKeyError(t *testing.T) {
	err := &NoPrimaryKeyError{Table: "t5"}
	if got, want := err.Error(), "table t5 has no usable PK columns"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrNoPrimaryKey) {
		t.Errorf("expected Is(err, ErrNoPrimaryKey)")
	}
}

func TestInvalidDatabaseError(t *testing.T) {
	underlying := fmt.Errorf("disk error")
	err := &InvalidDatabaseError{Path: "db.sqlite", Err: underlying}
	if got := err.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}

	bare := &InvalidDatabaseError{Path: "db.sqlite"}
	if !errors.Is(bare, ErrInvalidDatabase) {
		t.Errorf("expected Is(bare, ErrInvalidDatabase)")
	}
}

func TestWrap(t *testing.T) {
	if got := Wrap(nil, "context"); got != nil {
		t.Errorf("Wrap(nil, ...) = %v, want nil", got)
	}

	base := errors.New("boom")
	wrapped := Wrap(base, "opening database")
	if !errors.Is(wrapped, base) {
		t.Errorf("expected wrapped error to satisfy errors.Is against base")
	}
	if got, want := wrapped.Error(), "opening database: boom"; got != want {
		t.Errorf("Wrap() = %q, want %q", got, want)
	}
}

func TestWrapf(t *testing.T) {
	if got := Wrapf(nil, "context %d", 1); got != nil {
		t.Errorf("Wrapf(nil, ...) = %v, want nil", got)
	}

	base := errors.New("boom")
	wrapped := Wrapf(base, "table %s", "t1")
	if got, want := wrapped.Error(), "table t1: boom"; got != want {
		t.Errorf("Wrapf() = %q, want %q", got, want)
	}
}
