package core

// errors.go defines the error kinds of the conversion engine.
//
// Only FormatError, MappingError and destination errors abort an operation.
// FetchError and WriteError are reported per record and counted as failures
// by the Exporter; a record missing its name is not an error at all, the
// Builder simply declines to produce a card.

import (
	"errors"
	"fmt"
)

var (
	// ErrNoHeader is wrapped by FormatError when the CSV has no header row.
	ErrNoHeader = errors.New("csv has no headers")

	// ErrNothingMapped is wrapped by MappingError when every column is Skip.
	ErrNothingMapped = errors.New("nothing mapped")

	// ErrNoRecords is returned when an export is requested with no data rows.
	ErrNoRecords = errors.New("no contacts to export")

	// ErrDestination is wrapped when the output directory cannot be used at all.
	ErrDestination = errors.New("export destination unusable")
)

// FormatError reports CSV input that cannot be loaded.
type FormatError struct {
	Line int   // 1-based line of the failure, 0 if unknown
	Err  error // Underlying parse error
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid csv at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("invalid csv: %v", e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// MappingError reports a column mapping that cannot drive an export.
type MappingError struct {
	Reason string
	Err    error
}

func (e *MappingError) Error() string {
	switch {
	case e.Err != nil && e.Reason != "":
		return fmt.Sprintf("mapping error: %s: %v", e.Reason, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("mapping error: %v", e.Err)
	default:
		return "mapping error: " + e.Reason
	}
}

func (e *MappingError) Unwrap() error { return e.Err }

// FetchError reports a photo that could not be retrieved or encoded.
type FetchError struct {
	URL    string
	Status int // HTTP status when the server answered, 0 otherwise
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("photo fetch %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("photo fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// WriteError reports a failed output file write.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// IsFatal reports whether err aborts a whole load or export rather than a
// single record.
func IsFatal(err error) bool {
	var fe *FormatError
	var me *MappingError
	return errors.As(err, &fe) || errors.As(err, &me) ||
		errors.Is(err, ErrDestination) || errors.Is(err, ErrNoRecords)
}
