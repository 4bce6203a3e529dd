package core

import (
	"encoding/csv"
	"io"
)

// SampleHeader is the header row of the example CSV offered to users.
var SampleHeader = []string{
	"First Name", "Last Name", "Phone", "Email", "Organization", "Title", "Website",
	"Birthday", "Photo URL", "Notes", "Street", "City", "State", "ZIP", "Country",
}

// SampleRow is the single example contact.
var SampleRow = []string{
	"Jane", "Smith", "5551234567", "jane@work.com", "Widgets Inc", "Developer",
	"https://widgets.com", "1990-05-15", "https://example.com/jane.jpg", "Met at conference",
	"456 Elm St", "Clovis", "CA", "93611", "USA",
}

// WriteSample writes the example CSV to w. Every header in it is picked up
// by SuggestMapping.
func WriteSample(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SampleHeader); err != nil {
		return err
	}
	if err := cw.Write(SampleRow); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
