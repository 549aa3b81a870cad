package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord matches any *MalformedRecordError via errors.Is
	ErrMalformedRecord = errors.New("malformed record")
	// ErrIO matches any *IOError via errors.Is
	ErrIO = errors.New("io failure")
)

// MalformedRecordError identifies the first row of a table that could not be parsed.
// Line is 1 based and counts the header row.
type MalformedRecordError struct {
	Source string
	Line   int
	Field  string
	Value  string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	msg := fmt.Sprintf("malformed record in %s at line %d", e.Source, e.Line)
	if e.Field != "" {
		msg += fmt.Sprintf(", field %q", e.Field)
	}
	if e.Value != "" {
		msg += fmt.Sprintf(" (value %q)", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

func (e *MalformedRecordError) Is(target error) bool { return target == ErrMalformedRecord }

// IOError is returned when the underlying file or stream cannot be opened or read
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("error reading %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }
