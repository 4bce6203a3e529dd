package core

import (
	"fmt"
	"sort"
	"strings"
)

// ColumnMapping binds CSV columns to field tags. Columns not assigned are
// Skip. A mapping is immutable once built and safe to share.
type ColumnMapping struct {
	columns []string
	tags    map[string]FieldTag
}

// NewColumnMapping validates assignment against the header and returns the
// mapping. Assigning a column that is not in columns, or a tag outside the
// catalog, is a MappingError.
func NewColumnMapping(columns []string, assignment map[string]FieldTag) (*ColumnMapping, error) {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}

	tags := make(map[string]FieldTag, len(assignment))
	var unknown []string
	for col, tag := range assignment {
		if !known[col] {
			unknown = append(unknown, col)
			continue
		}
		if !tag.Valid() {
			return nil, &MappingError{Reason: fmt.Sprintf("column %q: unknown field tag %d", col, int(tag))}
		}
		tags[col] = tag
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &MappingError{Reason: fmt.Sprintf("column not found: %s", strings.Join(unknown, ", "))}
	}

	return &ColumnMapping{
		columns: append([]string(nil), columns...),
		tags:    tags,
	}, nil
}

// ParseAssignment converts column→label pairs (as found in mapping files,
// CLI flags and API requests) to tags.
func ParseAssignment(labels map[string]string) (map[string]FieldTag, error) {
	out := make(map[string]FieldTag, len(labels))
	for col, label := range labels {
		tag, err := ParseFieldTag(label)
		if err != nil {
			return nil, &MappingError{Reason: fmt.Sprintf("column %q", col), Err: err}
		}
		out[col] = tag
	}
	return out, nil
}

// Labels returns the non-Skip bindings as column→label, for display and
// mapping files.
func (m *ColumnMapping) Labels() map[string]string {
	out := make(map[string]string)
	for col, tag := range m.tags {
		if tag != FieldSkip {
			out[col] = tag.String()
		}
	}
	return out
}

// Validate requires at least one column bound to a non-Skip field.
//
// Missing First/Last Name bindings are not rejected here; every record then
// fails the builder's name check and is counted as failed. Use
// MissingRequired to warn about that case up front.
func (m *ColumnMapping) Validate() error {
	for _, col := range m.columns {
		if m.tags[col] != FieldSkip {
			return nil
		}
	}
	return &MappingError{Err: ErrNothingMapped}
}

// MissingRequired returns the required tags no column is bound to.
func (m *ColumnMapping) MissingRequired() []FieldTag {
	bound := make(map[FieldTag]bool)
	for _, tag := range m.tags {
		bound[tag] = true
	}
	var missing []FieldTag
	for _, tag := range RequiredFields() {
		if !bound[tag] {
			missing = append(missing, tag)
		}
	}
	return missing
}

// Resolver returns the lookup used by the builder.
func (m *ColumnMapping) Resolver() *Resolver {
	r := &Resolver{}
	for _, col := range m.columns {
		tag := m.tags[col]
		if tag == FieldSkip || r.bound[tag] {
			continue
		}
		r.column[tag] = col
		r.bound[tag] = true
	}
	return r
}

// Resolver answers "what is the value of field X for this record". For each
// tag it remembers the first column, in header order, bound to it.
type Resolver struct {
	column [fieldCount]string
	bound  [fieldCount]bool
}

// Resolve returns the trimmed value of the column bound to tag, or "" when
// no column is bound.
func (r *Resolver) Resolve(rec Record, tag FieldTag) string {
	if !tag.Valid() || !r.bound[tag] {
		return ""
	}
	return strings.TrimSpace(rec.Get(r.column[tag]))
}

// Column returns the column bound to tag.
func (r *Resolver) Column(tag FieldTag) (string, bool) {
	if !tag.Valid() {
		return "", false
	}
	return r.column[tag], r.bound[tag]
}
