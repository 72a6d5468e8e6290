package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is the sentinel behind every ParseError.
	ErrParse = errors.New("export parse failed")

	// ErrTooFewLines is returned for tabular content without a header and at least one data line.
	ErrTooFewLines = errors.New("need a header line and at least one data line")

	// ErrNoHeaders is returned when the header line has no usable column names.
	ErrNoHeaders = errors.New("no usable header columns")
)

// ParseError reports why one uploaded file could not be parsed.
type ParseError struct {
	Filename string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Filename, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}
