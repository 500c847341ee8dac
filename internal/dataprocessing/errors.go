package dataprocessing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSheetNotFound indicates a named sheet is absent from the workbook.
var ErrSheetNotFound = errors.New("sheet not found in workbook")

// ErrEmptySheet indicates a sheet has no header row to read.
var ErrEmptySheet = errors.New("sheet has no header row")

// SchemaError indicates a sheet is missing one or more of the required
// region key columns.
type SchemaError struct {
	Sheet   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("sheet %q is missing required columns: %s", e.Sheet, strings.Join(e.Missing, ", "))
}

// ParseError indicates a cell or column label could not be coerced to the
// expected numeric type.
type ParseError struct {
	Sheet  string
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sheet %q column %q: cannot parse %q: %v", e.Sheet, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
