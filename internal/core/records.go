package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Record is one parsed CSV data row keyed by column name.
// Values are kept exactly as read; resolution trims them.
type Record struct {
	line   int
	values map[string]string
}

// NewRecord builds a record from a column→value map. The map is copied.
func NewRecord(values map[string]string) Record {
	m := make(map[string]string, len(values))
	for k, v := range values {
		m[k] = v
	}
	return Record{values: m}
}

// Get returns the cell for column, or "" when the row had no such cell.
func (r Record) Get(column string) string {
	return r.values[column]
}

// Line returns the 1-based source line of the row, 0 for synthetic records.
func (r Record) Line() int {
	return r.line
}

// Values returns a copy of the row.
func (r Record) Values() map[string]string {
	m := make(map[string]string, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

// RecordSet is the result of loading a CSV file.
type RecordSet struct {
	Columns []string // Header names in file order, duplicates preserved
	Records []Record
}

// Len returns the number of data rows.
func (s *RecordSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// ParseRecords reads comma-delimited CSV with a header row.
//
// Each data row is zipped against the header positionally. Short rows leave
// the missing columns empty, long rows have their extra cells dropped. When
// a header name repeats, the later cell wins in the record.
func ParseRecords(r io.Reader) (*RecordSet, error) {
	src, counter := WrapForParsing(r)

	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &FormatError{Err: ErrNoHeader}
	}
	if err != nil {
		return nil, formatErr(err)
	}
	if isEmptyRow(header) {
		return nil, &FormatError{Line: 1, Err: ErrNoHeader}
	}

	set := &RecordSet{Columns: append([]string(nil), header...)}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, formatErr(err)
		}

		line, _ := cr.FieldPos(0)
		values := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				values[col] = row[i]
			}
		}
		set.Records = append(set.Records, Record{line: line, values: values})
	}

	slog.Debug("csv loaded",
		"columns", len(set.Columns),
		"records", len(set.Records),
		"bytes", counter.BytesRead,
	)
	return set, nil
}

// formatErr converts a csv reader error into a FormatError, keeping the line.
func formatErr(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &FormatError{Line: pe.Line, Err: pe.Err}
	}
	return &FormatError{Err: fmt.Errorf("read: %w", err)}
}

// isEmptyRow returns true if all cells are blank.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
