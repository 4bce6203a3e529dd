package core

import (
	"fmt"
	"strings"
)

// FieldTag identifies a vCard target field a CSV column can be bound to.
type FieldTag int

const (
	FieldSkip FieldTag = iota
	FieldFirstName
	FieldLastName
	FieldPhoneMobile
	FieldPhoneWork
	FieldEmailWork
	FieldEmailHome
	FieldOrganization
	FieldTitle
	FieldWebsite
	FieldBirthday
	FieldPhotoURL
	FieldNotes
	FieldStreet
	FieldCity
	FieldState
	FieldZIP
	FieldCountry

	fieldCount
)

// FieldInfo describes one entry of the field catalog.
type FieldInfo struct {
	Tag      FieldTag `json:"-"`
	Label    string   `json:"label"`    // Display label, also the mapping file value
	Required bool     `json:"required"` // Record is skipped when this resolves empty
	Aliases  []string `json:"-"`        // Header spellings used by SuggestMapping
}

// catalog is ordered the way fields are offered to the user.
var catalog = [fieldCount]FieldInfo{
	{Tag: FieldSkip, Label: "Skip"},
	{Tag: FieldFirstName, Label: "First Name", Required: true, Aliases: []string{"first", "firstname", "given name"}},
	{Tag: FieldLastName, Label: "Last Name", Required: true, Aliases: []string{"last", "lastname", "surname", "family name"}},
	{Tag: FieldPhoneMobile, Label: "Phone (Mobile)", Aliases: []string{"phone", "mobile", "cell", "mobile phone"}},
	{Tag: FieldPhoneWork, Label: "Phone (Work)", Aliases: []string{"work phone", "office phone"}},
	{Tag: FieldEmailWork, Label: "Email (Work)", Aliases: []string{"email", "e-mail", "work email"}},
	{Tag: FieldEmailHome, Label: "Email (Home)", Aliases: []string{"home email", "personal email"}},
	{Tag: FieldOrganization, Label: "Organization", Aliases: []string{"company", "org", "organisation"}},
	{Tag: FieldTitle, Label: "Title", Aliases: []string{"job title", "position"}},
	{Tag: FieldWebsite, Label: "Website", Aliases: []string{"url", "web", "homepage"}},
	{Tag: FieldBirthday, Label: "Birthday", Aliases: []string{"bday", "birth date", "date of birth", "dob"}},
	{Tag: FieldPhotoURL, Label: "Photo URL", Aliases: []string{"photo", "avatar", "picture"}},
	{Tag: FieldNotes, Label: "Notes", Aliases: []string{"note", "comments"}},
	{Tag: FieldStreet, Label: "Address - Street", Aliases: []string{"street", "address"}},
	{Tag: FieldCity, Label: "Address - City", Aliases: []string{"city", "town"}},
	{Tag: FieldState, Label: "Address - State", Aliases: []string{"state", "province", "region"}},
	{Tag: FieldZIP, Label: "Address - ZIP", Aliases: []string{"zip", "zip code", "postal code", "postcode"}},
	{Tag: FieldCountry, Label: "Address - Country", Aliases: []string{"country"}},
}

// Fields returns the catalog in display order, Skip first.
func Fields() []FieldInfo {
	out := make([]FieldInfo, len(catalog))
	copy(out, catalog[:])
	return out
}

// RequiredFields returns the tags a record needs to produce a vCard.
func RequiredFields() []FieldTag {
	var tags []FieldTag
	for _, f := range catalog {
		if f.Required {
			tags = append(tags, f.Tag)
		}
	}
	return tags
}

// String returns the display label.
func (t FieldTag) String() string {
	if t < 0 || t >= fieldCount {
		return fmt.Sprintf("FieldTag(%d)", int(t))
	}
	return catalog[t].Label
}

// Valid reports whether t is a catalog entry.
func (t FieldTag) Valid() bool {
	return t >= 0 && t < fieldCount
}

// MarshalText encodes the tag as its label.
func (t FieldTag) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, &MappingError{Reason: fmt.Sprintf("unknown field tag %d", int(t))}
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a label, see ParseFieldTag.
func (t *FieldTag) UnmarshalText(b []byte) error {
	tag, err := ParseFieldTag(string(b))
	if err != nil {
		return err
	}
	*t = tag
	return nil
}

// ParseFieldTag looks up a field by label, ignoring case and surrounding
// whitespace. An empty label is Skip.
func ParseFieldTag(label string) (FieldTag, error) {
	key := strings.TrimSpace(label)
	if key == "" {
		return FieldSkip, nil
	}
	for _, f := range catalog {
		if strings.EqualFold(f.Label, key) {
			return f.Tag, nil
		}
	}
	return FieldSkip, &MappingError{Reason: fmt.Sprintf("unknown field %q", label)}
}
