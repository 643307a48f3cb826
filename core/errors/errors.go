// Package errors provides standardized error types and helpers for the repqlite codebase.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases.
var (
	// ErrNoPrimaryKey indicates a table has no usable primary key (all rowid
	// aliases collide with declared columns).
	ErrNoPrimaryKey = errors.New("no usable primary key")
	// ErrSchemaMismatch indicates the same table has diverging schemas in the
	// two attached databases.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrInvalidDatabase indicates a file does not appear to be a valid
	// database of the configured storage engine.
	ErrInvalidDatabase = errors.New("invalid database")
	// ErrUnsupported indicates an unsupported operation or option combination.
	ErrUnsupported = errors.New("unsupported")
)

// ArgumentError represents a command-line argument error: unknown flag,
// missing path, bad option value. Callers print it prefixed with the
// program name and a --help hint, then exit 1.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string {
	return e.Message
}

// SchemaMismatchError represents a table whose declared schema differs
// between the primary and backup databases.
type SchemaMismatchError struct {
	Table string
	Err   error
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema changed for table %s", e.Table)
}

func (e *SchemaMismatchError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrSchemaMismatch
}

// NoPrimaryKeyError represents a table that must be skipped because none of
// the implicit rowid aliases are free.
type NoPrimaryKeyError struct {
	Table string
}

func (e *NoPrimaryKeyError) Error() string {
	return fmt.Sprintf("table %s has no usable PK columns", e.Table)
}

func (e *NoPrimaryKeyError) Unwrap() error {
	return ErrNoPrimaryKey
}

// InvalidDatabaseError represents a file that failed to open as a valid
// database of the configured storage engine.
type InvalidDatabaseError struct {
	Path string
	Err  error
}

func (e *InvalidDatabaseError) Error() string {
	return fmt.Sprintf("%q does not appear to be a valid database: %v", e.Path, e.Err)
}

func (e *InvalidDatabaseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidDatabase
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
