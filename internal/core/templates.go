package core

// templates.go handles reusable column mappings ("mapping templates"):
//
//   - SuggestMapping pre-binds columns whose header names a catalog field
//   - LoadMappingFile reads a saved mapping from TOML or YAML
//   - MatchScore tells how well a saved mapping fits the current header
//
// Saved mappings store the header they were made for so a mismatch can be
// reported before an export silently resolves everything to empty.

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// TemplateMatchThreshold is the minimum score for a saved mapping to be
// considered a match for a header.
const TemplateMatchThreshold = 0.7

// MappingTemplate is a saved column mapping.
type MappingTemplate struct {
	Name    string            `toml:"name" yaml:"name" json:"name,omitempty"`
	Headers []string          `toml:"headers" yaml:"headers" json:"headers,omitempty"`
	Columns map[string]string `toml:"columns" yaml:"columns" json:"columns"` // column → field label
}

// Assignment converts the template's labels to tags.
func (t *MappingTemplate) Assignment() (map[string]FieldTag, error) {
	return ParseAssignment(t.Columns)
}

// MatchScore returns the share of the template's recorded headers present
// in headers. Templates without recorded headers score against their mapped
// column names instead.
func (t *MappingTemplate) MatchScore(headers []string) float64 {
	want := t.Headers
	if len(want) == 0 {
		for col := range t.Columns {
			want = append(want, col)
		}
	}
	return matchTemplateHeaders(headers, want)
}

// matchTemplateHeaders calculates how well CSV headers match template headers.
func matchTemplateHeaders(csvHeaders, templateHeaders []string) float64 {
	if len(templateHeaders) == 0 {
		return 0
	}

	csvSet := make(map[string]bool)
	for _, h := range csvHeaders {
		csvSet[normalizeHeader(h)] = true
	}

	matched := 0
	for _, h := range templateHeaders {
		if csvSet[normalizeHeader(h)] {
			matched++
		}
	}

	return float64(matched) / float64(len(templateHeaders))
}

// LoadMappingFile reads a mapping template. The format is chosen by
// extension: .toml, or .yaml/.yml.
func LoadMappingFile(path string) (*MappingTemplate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &MappingError{Reason: "open mapping file", Err: err}
	}
	defer f.Close()

	return DecodeMapping(f, filepath.Ext(path))
}

// DecodeMapping decodes a mapping template in the format named by ext.
func DecodeMapping(r io.Reader, ext string) (*MappingTemplate, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &MappingError{Reason: "read mapping", Err: err}
	}

	var tmpl MappingTemplate
	switch strings.ToLower(ext) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&tmpl); err != nil {
			return nil, &MappingError{Reason: "parse toml mapping", Err: err}
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&tmpl); err != nil && err != io.EOF {
			return nil, &MappingError{Reason: "parse yaml mapping", Err: err}
		}
	default:
		return nil, &MappingError{Reason: fmt.Sprintf("unsupported mapping file type %q (use .toml, .yaml or .yml)", ext)}
	}

	if len(tmpl.Columns) == 0 {
		return nil, &MappingError{Reason: "mapping file has no columns", Err: ErrNothingMapped}
	}
	return &tmpl, nil
}

// EncodeMapping writes a template in the format named by ext.
func EncodeMapping(w io.Writer, tmpl *MappingTemplate, ext string) error {
	switch strings.ToLower(ext) {
	case ".toml":
		return toml.NewEncoder(w).Encode(tmpl)
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tmpl); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported mapping file type %q", ext)
	}
}

// SuggestMapping binds each column whose header equals a field label or a
// known alias. Each field is suggested for at most one column, the first in
// header order; everything else stays Skip.
func SuggestMapping(columns []string) map[string]FieldTag {
	lookup := make(map[string]FieldTag)
	for _, f := range catalog {
		if f.Tag == FieldSkip {
			continue
		}
		lookup[normalizeHeader(f.Label)] = f.Tag
		for _, a := range f.Aliases {
			lookup[normalizeHeader(a)] = f.Tag
		}
	}

	out := make(map[string]FieldTag)
	taken := make(map[FieldTag]bool)
	for _, col := range columns {
		tag, ok := lookup[normalizeHeader(col)]
		if !ok || taken[tag] {
			continue
		}
		if _, dup := out[col]; dup {
			continue
		}
		out[col] = tag
		taken[tag] = true
	}
	return out
}

// normalizeHeader lowercases a header and collapses separators so that
// "First_Name", "first-name" and " First Name " compare equal.
func normalizeHeader(h string) string {
	h = strings.ToLower(CleanCell(h))
	h = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(h)
	return strings.Join(strings.Fields(h), " ")
}
