package telemetry

import (
	"fmt"
)

// MalformedInputError reports a telemetry export that cannot be
// decoded: a missing required header column, or a row whose timestamp
// or value does not parse.
type MalformedInputError struct {
	// File is the base name of the export, empty when decoding a stream.
	File string
	// Line is the 1-based line of the offending row, 0 for file-level
	// problems such as a missing header column.
	Line int
	// Column is the CSV column involved, when known.
	Column string
	Reason string
}

func (e *MalformedInputError) Error() string {
	msg := "malformed telemetry"
	if e.File != "" {
		msg += " in " + e.File
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" line %d", e.Line)
	}
	return msg + ": " + e.Reason
}

// MissingSignalError reports a frame that lacks a signal required by a
// calculation. It names the absent signal so callers can say which
// column the export never carried.
type MissingSignalError struct {
	Signal Signal
}

func (e *MissingSignalError) Error() string {
	return fmt.Sprintf("missing required signal %q", string(e.Signal))
}
