package report

import (
	"errors"
	"fmt"
)

// ErrReportNotFound is returned when the container holds no element at the
// configured report tag or ordinal.
var ErrReportNotFound = errors.New("report: embedded report element not found")

// SourceMismatchError reports a container that was not produced by the
// supported scanner. Callers should skip the file.
type SourceMismatchError struct {
	Manufacturer string
	Model        string
}

func (e *SourceMismatchError) Error() string {
	return fmt.Sprintf("report: file does not contain Hologic Discovery W data (manufacturer %q, model %q)",
		e.Manufacturer, e.Model)
}

// VersionMismatchWarning is attached to a Blob when the scanner software
// version differs from the tested one. It is never returned as a failure.
type VersionMismatchWarning struct {
	Got  string
	Want string
}

func (w *VersionMismatchWarning) Error() string {
	return fmt.Sprintf("report: software version %q was not tested (expected %q), check the results", w.Got, w.Want)
}

// MalformedTableError reports inconsistent cell geometry or a non-numeric
// value in a numeric slot.
type MalformedTableError struct {
	Reason string
	// Cell is the offending cell, nil when the problem is table-wide
	Cell *Cell
}

func (e *MalformedTableError) Error() string {
	if e.Cell == nil {
		return "report: malformed results table: " + e.Reason
	}
	return fmt.Sprintf("report: malformed results table at [%d][%d] = %q: %s",
		e.Cell.Column, e.Cell.Row, e.Cell.Raw, e.Reason)
}

// MissingFieldError names a required report field that was not present.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("report: required field %q not found", e.Field)
}

// FieldFormatError reports a field whose value could not be interpreted.
type FieldFormatError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldFormatError) Error() string {
	return fmt.Sprintf("report: field %q has unexpected value %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldFormatError) Unwrap() error {
	return e.Err
}

// MissingMeasurementError is returned by Collapse when a wanted
// (column, measurement) pair does not exist in the table.
type MissingMeasurementError struct {
	Column      string
	Measurement string
}

func (e *MissingMeasurementError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("report: measurement %q not in results table", e.Measurement)
	}
	return fmt.Sprintf("report: column %q not in results table", e.Column)
}
