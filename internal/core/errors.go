package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for session and file lookups.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrFileNotFound    = errors.New("file not found in session")
	ErrNoFile          = errors.New("no file provided")
)

// UnsupportedFormatError is returned when a file's extension is outside the
// recognized set. The file is skipped; sibling files keep processing.
type UnsupportedFormatError struct {
	FileName  string
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Extension == "" {
		return fmt.Sprintf("unsupported file type for %q: no extension", e.FileName)
	}
	return fmt.Sprintf("unsupported file type: %s", e.Extension)
}

// DecodeError is returned when a file has a recognized extension but its
// content cannot be parsed into a table.
type DecodeError struct {
	FileName string
	Format   Format
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s as %s: %v", e.FileName, e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// InvalidColumnError is returned when a column selection names a column the
// table does not have, or names one column twice.
type InvalidColumnError struct {
	Column    string
	Duplicate bool
}

func (e *InvalidColumnError) Error() string {
	if e.Duplicate {
		return fmt.Sprintf("invalid column %q: selected more than once", e.Column)
	}
	return fmt.Sprintf("invalid column %q: column not found", e.Column)
}

// EncodeError is returned when a table cannot be serialized to the target
// format. No partial output is produced.
type EncodeError struct {
	Format Format
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
