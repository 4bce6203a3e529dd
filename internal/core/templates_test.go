package core

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSuggestMapping(t *testing.T) {
	columns := []string{"first_name", "Surname", "E-Mail", "Mobile", "Cell", "Company", "Unrelated"}

	got := SuggestMapping(columns)
	want := map[string]FieldTag{
		"first_name": FieldFirstName,
		"Surname":    FieldLastName,
		"E-Mail":     FieldEmailWork,
		"Mobile":     FieldPhoneMobile,
		"Company":    FieldOrganization,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SuggestMapping mismatch (-want +got):\n%s", diff)
	}
}

func TestSuggestMapping_Sample(t *testing.T) {
	got := SuggestMapping(SampleHeader)
	if len(got) != len(SampleHeader) {
		t.Errorf("suggested %d of %d sample columns: %v", len(got), len(SampleHeader), got)
	}
	if got["ZIP"] != FieldZIP || got["Phone"] != FieldPhoneMobile {
		t.Errorf("unexpected suggestion: %v", got)
	}
}

func TestMatchScore(t *testing.T) {
	tmpl := &MappingTemplate{
		Headers: []string{"First Name", "Last Name", "Phone", "Email"},
		Columns: map[string]string{"First Name": "First Name"},
	}

	tests := []struct {
		name    string
		headers []string
		want    float64
	}{
		{"exact", []string{"First Name", "Last Name", "Phone", "Email"}, 1},
		{"normalized", []string{"first_name", "LAST NAME", "phone", "email"}, 1},
		{"half", []string{"First Name", "Phone", "Other"}, 0.5},
		{"none", []string{"x"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tmpl.MatchScore(tt.headers); got != tt.want {
				t.Errorf("MatchScore = %v, want %v", got, tt.want)
			}
		})
	}

	noHeaders := &MappingTemplate{Columns: map[string]string{"A": "First Name", "B": "Last Name"}}
	if got := noHeaders.MatchScore([]string{"A", "C"}); got != 0.5 {
		t.Errorf("MatchScore without headers = %v, want 0.5", got)
	}
}

func TestDecodeMapping(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		data string
	}{
		{
			name: "toml",
			ext:  ".toml",
			data: "name = \"crm\"\nheaders = [\"Given\", \"Family\"]\n\n[columns]\nGiven = \"First Name\"\nFamily = \"Last Name\"\n",
		},
		{
			name: "yaml",
			ext:  ".YML",
			data: "name: crm\nheaders: [Given, Family]\ncolumns:\n  Given: First Name\n  Family: Last Name\n",
		},
	}
	want := &MappingTemplate{
		Name:    "crm",
		Headers: []string{"Given", "Family"},
		Columns: map[string]string{"Given": "First Name", "Family": "Last Name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeMapping(strings.NewReader(tt.data), tt.ext)
			if err != nil {
				t.Fatalf("DecodeMapping: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}

			assignment, err := got.Assignment()
			if err != nil {
				t.Fatalf("Assignment: %v", err)
			}
			if assignment["Family"] != FieldLastName {
				t.Errorf("Assignment = %v", assignment)
			}
		})
	}
}

func TestDecodeMapping_Errors(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		data string
	}{
		{"unknown toml key", ".toml", "colums = 1\n"},
		{"unknown yaml key", ".yaml", "colums: {}\n"},
		{"empty yaml", ".yaml", ""},
		{"no columns", ".toml", "name = \"x\"\n"},
		{"bad extension", ".json", "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeMapping(strings.NewReader(tt.data), tt.ext)
			var me *MappingError
			if !errors.As(err, &me) {
				t.Errorf("err = %v, want *MappingError", err)
			}
		})
	}
}

func TestEncodeMapping_RoundTripsThroughFile(t *testing.T) {
	tmpl := &MappingTemplate{
		Name:    "export",
		Headers: []string{"A", "B"},
		Columns: map[string]string{"A": "First Name", "B": "Address - ZIP"},
	}

	for _, ext := range []string{".toml", ".yaml"} {
		t.Run(ext, func(t *testing.T) {
			var buf bytes.Buffer
			if err := EncodeMapping(&buf, tmpl, ext); err != nil {
				t.Fatalf("EncodeMapping: %v", err)
			}

			path := filepath.Join(t.TempDir(), "mapping"+ext)
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				t.Fatal(err)
			}
			got, err := LoadMappingFile(path)
			if err != nil {
				t.Fatalf("LoadMappingFile: %v", err)
			}
			if diff := cmp.Diff(tmpl, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadMappingFile_Missing(t *testing.T) {
	_, err := LoadMappingFile(filepath.Join(t.TempDir(), "none.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}
